package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/eshoplite-backend/pkg/pagination"
	"github.com/angelmondragon/eshoplite-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the payment record operations exposed over HTTP.
type Service interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error)
	GetPayments(ctx context.Context, params ListParams) (*PaymentList, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*PaymentDTO, error)
}

// ServiceParams wires the payment service. Outbox and Metrics are optional.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the payment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     clock,
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	ctx = s.logg.WithOperation(ctx, "payments.create")
	if err := ValidateCreate(req); err != nil {
		s.metrics.IncRejected(RejectedField(err))
		return nil, err
	}

	now := s.now().UTC()
	record := &models.PaymentRecord{
		PaymentID:     uuid.New(),
		UserID:        req.UserID,
		StoreID:       req.StoreID,
		CartID:        req.CartID,
		Currency:      req.Currency,
		Amount:        req.Amount,
		Status:        enums.PaymentStatusSuccess,
		PaymentMethod: req.PaymentMethod,
		Items:         datatypes.NewJSONSlice(req.Items),
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.NewJSONType(*req.Metadata)
	} else {
		record.Metadata = datatypes.NewJSONType(types.PaymentMetadata{})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCreated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   record.PaymentID,
			OccurredAt:    now,
			Data: payloads.PaymentCreatedEvent{
				PaymentID:     record.PaymentID,
				UserID:        record.UserID,
				StoreID:       record.StoreID,
				CartID:        record.CartID,
				Currency:      record.Currency,
				Amount:        record.Amount,
				Status:        string(record.Status),
				PaymentMethod: record.PaymentMethod,
				ItemCount:     len(req.Items),
				ProcessedAt:   now,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "payment.create_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to store payment")
	}

	s.metrics.IncCreated(record.Currency)
	logCtx := s.logg.WithUserID(s.logg.WithPaymentID(ctx, record.PaymentID.String()), record.UserID)
	if record.StoreID != nil {
		logCtx = s.logg.WithStoreID(logCtx, *record.StoreID)
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"currency": record.Currency,
		"amount":   record.Amount.String(),
		"items":    len(req.Items),
	})
	s.logg.Info(logCtx, "payment.created")

	return &CreatePaymentResponse{
		PaymentID:   record.PaymentID,
		Status:      string(record.Status),
		ProcessedAt: now,
	}, nil
}

func (s *service) GetPayments(ctx context.Context, params ListParams) (*PaymentList, error) {
	page := pagination.NormalizePage(params.Page, params.PageSize)
	params.Page, params.PageSize = page.Page, page.PageSize

	records, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.logg.Error(s.logg.WithOperation(ctx, "payments.list"), "payment.list_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to list payments")
	}

	items := make([]PaymentDTO, 0, len(records))
	for _, record := range records {
		items = append(items, FromModel(record))
	}
	return &PaymentList{Items: items, TotalCount: total}, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentDTO, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		logCtx := s.logg.WithPaymentID(ctx, id.String())
		s.logg.Error(logCtx, "payment.get_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load payment")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	dto := FromModel(*record)
	return &dto, nil
}
