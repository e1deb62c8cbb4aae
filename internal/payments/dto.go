package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/types"
)

// CreatePaymentRequest is the body accepted by POST /api/payments. Presence
// checks live in ValidateCreate so they run in a fixed order.
type CreatePaymentRequest struct {
	UserID        string                 `json:"userId" validate:"max=255"`
	StoreID       *string                `json:"storeId,omitempty" validate:"omitempty,max=255"`
	CartID        *string                `json:"cartId,omitempty" validate:"omitempty,max=255"`
	Currency      string                 `json:"currency" validate:"max=10"`
	Amount        decimal.Decimal        `json:"amount"`
	PaymentMethod string                 `json:"paymentMethod" validate:"max=255"`
	Items         []types.PaymentItem    `json:"items" validate:"dive"`
	Metadata      *types.PaymentMetadata `json:"metadata,omitempty" validate:"omitempty"`
}

// CreatePaymentResponse is returned after a payment is stored.
type CreatePaymentResponse struct {
	PaymentID   uuid.UUID `json:"paymentId"`
	Status      string    `json:"status"`
	ProcessedAt time.Time `json:"processedAt"`
}

// PaymentDTO is the public shape of a stored payment record.
type PaymentDTO struct {
	PaymentID     uuid.UUID              `json:"paymentId"`
	UserID        string                 `json:"userId"`
	StoreID       *string                `json:"storeId,omitempty"`
	CartID        *string                `json:"cartId,omitempty"`
	Currency      string                 `json:"currency"`
	Amount        decimal.Decimal        `json:"amount"`
	Status        string                 `json:"status"`
	PaymentMethod string                 `json:"paymentMethod"`
	Items         []types.PaymentItem    `json:"items"`
	Metadata      *types.PaymentMetadata `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	ProcessedAt   *time.Time             `json:"processedAt,omitempty"`
}

// PaymentList is one page of payments plus the unpaged total.
type PaymentList struct {
	Items      []PaymentDTO `json:"items"`
	TotalCount int64        `json:"totalCount"`
}

// ListParams filters and pages GET /api/payments.
type ListParams struct {
	Page     int
	PageSize int
	Status   string
}

// FromModel maps a stored record to its response shape.
func FromModel(m models.PaymentRecord) PaymentDTO {
	items := []types.PaymentItem(m.Items)
	if items == nil {
		items = []types.PaymentItem{}
	}
	dto := PaymentDTO{
		PaymentID:     m.PaymentID,
		UserID:        m.UserID,
		StoreID:       m.StoreID,
		CartID:        m.CartID,
		Currency:      m.Currency,
		Amount:        m.Amount,
		Status:        string(m.Status),
		PaymentMethod: m.PaymentMethod,
		Items:         items,
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
	}
	if meta := m.Metadata.Data(); !meta.IsZero() {
		dto.Metadata = &meta
	}
	return dto
}
