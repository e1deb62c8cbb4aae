package types

import "github.com/shopspring/decimal"

func init() {
	// Amounts and prices travel as JSON numbers, matching what store clients send.
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentItem is one cart line captured on a payment. It is stored verbatim
// inside the payment row and never reconciled against the catalog.
type PaymentItem struct {
	ProductID string          `json:"productId" validate:"max=255"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// PaymentMetadata is the typed extension block accepted on payment creation.
// Unknown keys are rejected when the request body is decoded.
type PaymentMetadata struct {
	Channel    string            `json:"channel,omitempty" validate:"omitempty,max=50"`
	Reference  string            `json:"reference,omitempty" validate:"omitempty,max=255"`
	Notes      string            `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Attributes map[string]string `json:"attributes,omitempty" validate:"omitempty,max=20"`
}

// IsZero reports whether no metadata field was supplied.
func (m PaymentMetadata) IsZero() bool {
	return m.Channel == "" && m.Reference == "" && m.Notes == "" && len(m.Attributes) == 0
}
