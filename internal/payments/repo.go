package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/pagination"
)

// Repository persists payment records. Records are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PaymentRecord) (*models.PaymentRecord, error)
	List(ctx context.Context, params ListParams) ([]models.PaymentRecord, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.PaymentRecord) (*models.PaymentRecord, error) {
	if record == nil {
		return nil, errors.New("payment record required")
	}
	if record.PaymentID == uuid.Nil {
		record.PaymentID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.PaymentRecord, int64, error) {
	page := pagination.NormalizePage(params.Page, params.PageSize)

	query := r.db.WithContext(ctx).Model(&models.PaymentRecord{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	records := []models.PaymentRecord{}
	if int64(page.Offset()) >= total {
		return records, total, nil
	}
	err := query.
		Order("created_at DESC").
		Order("payment_id DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).Where("payment_id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
