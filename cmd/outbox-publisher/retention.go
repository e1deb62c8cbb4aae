package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
)

const (
	defaultRetentionDays     = 30
	defaultRetentionInterval = 24 * time.Hour
)

type retentionRepository interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// retentionSweeper periodically drops outbox rows that were published long
// enough ago that nobody will replay them.
type retentionSweeper struct {
	logg      *logger.Logger
	db        txRunner
	repo      retentionRepository
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func newRetentionSweeper(logg *logger.Logger, db txRunner, repo retentionRepository, days int, interval time.Duration) (*retentionSweeper, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if days <= 0 {
		days = defaultRetentionDays
	}
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &retentionSweeper{
		logg:      logg,
		db:        db,
		repo:      repo,
		retention: time.Duration(days) * 24 * time.Hour,
		interval:  interval,
		now:       time.Now,
	}, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *retentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.sweep(ctx); err != nil {
			s.logg.Error(ctx, "outbox retention sweep failed", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *retentionSweeper) sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	var deleted int64
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.DeletePublishedBefore(tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	s.logg.Info(logCtx, "outbox retention sweep complete")
	return deleted, nil
}
