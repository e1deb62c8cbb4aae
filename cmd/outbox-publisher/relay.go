package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	sendTimeout        = 15 * time.Second
	maxPause           = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type database interface {
	txRunner
	Ping(context.Context) error
}

type sender interface {
	Ping(context.Context) error
	Send(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

type router interface {
	Route(models.OutboxEvent) (registry.Delivery, error)
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type RelayParams struct {
	Outbox  config.OutboxConfig
	Logger  *logger.Logger
	DB      database
	Sender  sender
	Store   outboxStore
	Routes  router
	Metrics *metrics.OutboxMetrics
}

// Relay moves committed outbox rows onto Pub/Sub. Each batch is claimed and
// settled inside one transaction.
type Relay struct {
	logg        *logger.Logger
	db          database
	sender      sender
	store       outboxStore
	routes      router
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	pace        *pacer
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.Sender == nil:
		return nil, errors.New("pubsub sender is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Routes == nil:
		return nil, errors.New("event routes are required")
	}
	batch := p.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	attempts := p.Outbox.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	poll := time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPoll
	}
	return &Relay{
		logg:        p.Logger,
		db:          p.DB,
		sender:      p.Sender,
		store:       p.Store,
		routes:      p.Routes,
		metrics:     p.Metrics,
		batchSize:   batch,
		maxAttempts: attempts,
		pace:        newPacer(poll, maxPause),
	}, nil
}

// Run checks both dependencies once, then drains batches until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		r.logg.Error(ctx, "outbox relay database ping failed", err)
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.sender.Ping(ctx); err != nil {
		r.logg.Error(ctx, "outbox relay pubsub ping failed", err)
		return fmt.Errorf("pubsub ping: %w", err)
	}

	for {
		if ctx.Err() != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return ctx.Err()
		}
		res, err := r.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			wait = r.pace.failure()
		case res.stalled():
			// Nothing went out, so pace it like a failing batch.
			r.logg.Warn(r.logg.WithField(ctx, "failed", res.failed), "outbox relay batch published nothing")
			wait = r.pace.failure()
		case res.claimed > 0:
			r.pace.reset()
			continue
		default:
			r.pace.reset()
			wait = r.pace.idle()
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// batchResult tallies how the rows of one claimed batch were settled.
type batchResult struct {
	claimed   int
	published int
	failed    int
}

// stalled reports a batch where sends were attempted and none went through.
func (b batchResult) stalled() bool {
	return b.failed > 0 && b.published == 0
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeFailed
	outcomeTerminal
)

// drain claims one batch and settles every row in it.
func (r *Relay) drain(ctx context.Context) (batchResult, error) {
	var res batchResult
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		res = batchResult{}
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		res.claimed = len(rows)
		for _, row := range rows {
			out, err := r.settle(ctx, tx, row)
			if err != nil {
				return err
			}
			switch out {
			case outcomePublished:
				res.published++
			case outcomeFailed:
				res.failed++
			}
		}
		return nil
	})
	return res, err
}

// settle publishes one row and records the outcome. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	eventType := string(row.EventType)
	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    eventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	})

	delivery, err := r.routes.Route(row)
	if err == nil {
		logCtx = r.logg.WithFields(logCtx, map[string]any{"topic": delivery.Topic, "event_id": delivery.EventID})
		err = r.send(ctx, delivery)
	}

	switch {
	case err == nil:
		if markErr := r.store.MarkPublishedTx(tx, row.ID); markErr != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", row.ID, markErr)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Info(logCtx, "outbox event published")
		return outcomePublished, nil

	case errors.Is(err, registry.ErrPoison), row.AttemptCount+1 >= r.maxAttempts:
		reason := "poison"
		if !errors.Is(err, registry.ErrPoison) {
			reason = "max_attempts"
			err = fmt.Errorf("giving up after %d attempts: %w", row.AttemptCount+1, err)
		}
		r.logg.Warn(r.logg.WithFields(logCtx, map[string]any{"terminal_reason": reason, "error": err.Error()}), "outbox event abandoned")
		if markErr := r.store.MarkTerminalTx(tx, row.ID, err, r.maxAttempts); markErr != nil {
			return outcomeTerminal, fmt.Errorf("mark terminal %s: %w", row.ID, markErr)
		}
		r.metrics.IncTerminal(eventType)
		return outcomeTerminal, nil

	default:
		r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed")
		if markErr := r.store.MarkFailedTx(tx, row.ID, err); markErr != nil {
			return outcomeFailed, fmt.Errorf("mark failed %s: %w", row.ID, markErr)
		}
		r.metrics.IncFailed(eventType)
		return outcomeFailed, nil
	}
}

func (r *Relay) send(ctx context.Context, d registry.Delivery) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, err := r.sender.Send(sendCtx, d.Topic, d.Data, d.Attributes)
	return err
}

// pacer spaces out polls: a fixed interval when idle, doubling pauses while
// batches keep failing.
type pacer struct {
	base, max, current time.Duration
	rnd                *rand.Rand
}

func newPacer(base, max time.Duration) *pacer {
	return &pacer{base: base, max: max, current: base, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *pacer) reset() { p.current = p.base }

func (p *pacer) idle() time.Duration { return p.jitter(p.base) }

func (p *pacer) failure() time.Duration {
	p.current *= 2
	if p.current > p.max {
		p.current = p.max
	}
	return p.jitter(p.current)
}

func (p *pacer) jitter(d time.Duration) time.Duration {
	return d + time.Duration(p.rnd.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
