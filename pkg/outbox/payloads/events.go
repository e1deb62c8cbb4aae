package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentCreatedEvent announces a newly persisted payment record.
type PaymentCreatedEvent struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	UserID        string          `json:"user_id"`
	StoreID       *string         `json:"store_id,omitempty"`
	CartID        *string         `json:"cart_id,omitempty"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
	ProcessedAt   time.Time       `json:"processed_at"`
}
