package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	"github.com/angelmondragon/eshoplite-backend/pkg/types"
)

// PaymentRecord is the append-only record of a processed payment.
type PaymentRecord struct {
	PaymentID     uuid.UUID                                 `gorm:"column:payment_id;type:uuid;primaryKey"`
	UserID        string                                    `gorm:"column:user_id;size:255;not null"`
	StoreID       *string                                   `gorm:"column:store_id;size:255"`
	CartID        *string                                   `gorm:"column:cart_id;size:255"`
	Currency      string                                    `gorm:"column:currency;size:10;not null"`
	Amount        decimal.Decimal                           `gorm:"column:amount;type:numeric(18,2);not null"`
	Status        enums.PaymentStatus                       `gorm:"column:status;size:50;not null"`
	PaymentMethod string                                    `gorm:"column:payment_method;size:255;not null"`
	Items         datatypes.JSONSlice[types.PaymentItem]    `gorm:"column:items;not null"`
	Metadata      datatypes.JSONType[types.PaymentMetadata] `gorm:"column:metadata"`
	CreatedAt     time.Time                                 `gorm:"column:created_at;not null"`
	ProcessedAt   *time.Time                                `gorm:"column:processed_at"`
}

func (PaymentRecord) TableName() string {
	return "payments"
}
