package payments

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
)

const maxCurrencyLen = 10

// amountCeiling is the first value NUMERIC(18,2) cannot hold.
var amountCeiling = decimal.New(1, 16)

// ValidateCreate checks a creation request. The first violation wins, in
// this order: userId, currency, amount, paymentMethod, items. Amounts must
// fit the stored NUMERIC(18,2) exactly, so sub-cent values are rejected
// instead of being rounded by the database.
func ValidateCreate(req CreatePaymentRequest) error {
	switch {
	case blank(req.UserID):
		return fieldError("userId", "userId is required")
	case blank(req.Currency):
		return fieldError("currency", "currency is required")
	case len(strings.TrimSpace(req.Currency)) > maxCurrencyLen:
		return fieldError("currency", fmt.Sprintf("currency must be at most %d characters", maxCurrencyLen))
	case !req.Amount.IsPositive():
		return fieldError("amount", "amount must be greater than 0")
	case !req.Amount.Equal(req.Amount.Truncate(2)):
		return fieldError("amount", "amount must have at most 2 decimal places")
	case req.Amount.GreaterThanOrEqual(amountCeiling):
		return fieldError("amount", "amount is too large")
	case blank(req.PaymentMethod):
		return fieldError("paymentMethod", "paymentMethod is required")
	case len(req.Items) == 0:
		return fieldError("items", "items must contain at least one item")
	}
	return nil
}

// RejectedField returns the field named by a validation error, if any.
func RejectedField(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return ""
	}
	if details, ok := typed.Details().(map[string]string); ok {
		return details["field"]
	}
	return ""
}

func fieldError(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]string{
		"field":  field,
		"reason": fmt.Sprintf("%s failed validation", field),
	})
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
