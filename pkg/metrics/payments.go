package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics counts payment creations and validation rejections.
type PaymentMetrics struct {
	created  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Payments persisted, by currency.",
	}, []string{"currency"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_rejected_total",
		Help: "Payment requests rejected by validation, by offending field.",
	}, []string{"field"})
	reg.MustRegister(created, rejected)
	return &PaymentMetrics{created: created, rejected: rejected}
}

// IncCreated increments the created counter for the currency.
func (m *PaymentMetrics) IncCreated(currency string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(currencyLabel(currency)).Inc()
}

// IncRejected increments the rejection counter for the field that failed.
func (m *PaymentMetrics) IncRejected(field string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(field)).Inc()
}

// currencyLabel keeps the label set bounded: anything that is not a three
// letter upper-case code is counted as "other".
func currencyLabel(currency string) string {
	if len(currency) != 3 {
		return "other"
	}
	for i := 0; i < len(currency); i++ {
		if currency[i] < 'A' || currency[i] > 'Z' {
			return "other"
		}
	}
	return currency
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
