package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox/registry"
)

type memStore struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	capped    int
	fetchErr  error
}

func (m *memStore) FetchUnpublishedForPublish(_ *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var pending []models.OutboxEvent
	for _, r := range m.rows {
		if r.PublishedAt == nil && r.AttemptCount < maxAttempts && len(pending) < limit {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (m *memStore) update(id uuid.UUID, fn func(*models.OutboxEvent)) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			fn(&m.rows[i])
		}
	}
}

func (m *memStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	now := time.Now()
	m.update(id, func(r *models.OutboxEvent) { r.PublishedAt = &now })
	return nil
}

func (m *memStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	m.update(id, func(r *models.OutboxEvent) { r.AttemptCount++ })
	return nil
}

func (m *memStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	m.terminal = append(m.terminal, id)
	m.capped = attempts
	m.update(id, func(r *models.OutboxEvent) { r.AttemptCount = attempts })
	return nil
}

type sent struct {
	topic string
	data  []byte
	attrs map[string]string
}

type scriptedSender struct {
	errs []error
	out  []sent
}

func (s *scriptedSender) Ping(context.Context) error { return nil }

func (s *scriptedSender) Send(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	s.out = append(s.out, sent{topic: topic, data: data, attrs: attrs})
	if len(s.errs) == 0 {
		return "srv-1", nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return "", err
}

type stubRoutes struct {
	poison map[uuid.UUID]bool
}

func (s stubRoutes) Route(row models.OutboxEvent) (registry.Delivery, error) {
	if s.poison[row.ID] {
		return registry.Delivery{}, fmt.Errorf("%w: bad row", registry.ErrPoison)
	}
	return registry.Delivery{
		Topic:      "payments-topic",
		EventID:    row.ID.String(),
		Data:       row.Payload,
		Attributes: map[string]string{"aggregate_id": row.AggregateID.String()},
	}, nil
}

type passthroughDB struct{}

func (passthroughDB) Ping(context.Context) error { return nil }

func (passthroughDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

func row(attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPaymentCreated,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		AttemptCount:  attempts,
	}
}

func newTestRelay(t *testing.T, store *memStore, snd *scriptedSender, routes router, reg prometheus.Registerer) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:  config.OutboxConfig{BatchSize: 5, PollIntervalMS: 10, MaxAttempts: 3},
		Logger:  logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
		DB:      passthroughDB{},
		Sender:  snd,
		Store:   store,
		Routes:  routes,
		Metrics: metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return relay
}

func TestDrainSettlesEachRowIndependently(t *testing.T) {
	first, second := row(0), row(0)
	store := &memStore{rows: []models.OutboxEvent{first, second}}
	snd := &scriptedSender{errs: []error{errors.New("unavailable")}}
	reg := prometheus.NewRegistry()
	relay := newTestRelay(t, store, snd, stubRoutes{}, reg)

	res, err := relay.drain(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if res.claimed != 2 || res.published != 1 || res.failed != 1 {
		t.Fatalf("unexpected batch result %+v", res)
	}
	if res.stalled() {
		t.Fatal("a batch with a published row is not stalled")
	}
	if len(store.failed) != 1 || store.failed[0] != first.ID {
		t.Fatalf("expected first row marked failed, got %v", store.failed)
	}
	if len(store.published) != 1 || store.published[0] != second.ID {
		t.Fatalf("expected second row published, got %v", store.published)
	}
	if got := counterTotal(t, reg, "outbox_published_total"); got != 1 {
		t.Fatalf("expected 1 published, got %v", got)
	}
}

func TestDrainForwardsRoutedDelivery(t *testing.T) {
	r := row(0)
	store := &memStore{rows: []models.OutboxEvent{r}}
	snd := &scriptedSender{}
	relay := newTestRelay(t, store, snd, stubRoutes{}, prometheus.NewRegistry())

	if _, err := relay.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(snd.out) != 1 {
		t.Fatalf("expected one send, got %d", len(snd.out))
	}
	got := snd.out[0]
	if got.topic != "payments-topic" || string(got.data) != string(r.Payload) {
		t.Fatalf("unexpected send %+v", got)
	}
	if got.attrs["aggregate_id"] != r.AggregateID.String() {
		t.Fatalf("attributes not forwarded: %v", got.attrs)
	}
}

func TestDrainAbandonsPoisonRows(t *testing.T) {
	bad := row(0)
	store := &memStore{rows: []models.OutboxEvent{bad}}
	snd := &scriptedSender{}
	reg := prometheus.NewRegistry()
	relay := newTestRelay(t, store, snd, stubRoutes{poison: map[uuid.UUID]bool{bad.ID: true}}, reg)

	if _, err := relay.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(snd.out) != 0 {
		t.Fatal("poison rows must not be sent")
	}
	if len(store.terminal) != 1 || store.capped != 3 {
		t.Fatalf("expected terminal mark with attempts 3, got %v / %d", store.terminal, store.capped)
	}
	if got := counterTotal(t, reg, "outbox_terminal_total"); got != 1 {
		t.Fatalf("expected 1 terminal, got %v", got)
	}
}

func TestDrainAbandonsRowOnLastAttempt(t *testing.T) {
	last := row(2)
	store := &memStore{rows: []models.OutboxEvent{last}}
	snd := &scriptedSender{errs: []error{errors.New("unavailable")}}
	relay := newTestRelay(t, store, snd, stubRoutes{}, prometheus.NewRegistry())

	if _, err := relay.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(store.terminal) != 1 || len(store.failed) != 0 {
		t.Fatalf("expected only a terminal mark, got terminal=%v failed=%v", store.terminal, store.failed)
	}
}

type downSender struct{ sends int }

func (d *downSender) Ping(context.Context) error { return nil }

func (d *downSender) Send(context.Context, string, []byte, map[string]string) (string, error) {
	d.sends++
	return "", errors.New("unavailable")
}

func TestRunBacksOffWhileBrokerIsDown(t *testing.T) {
	store := &memStore{rows: []models.OutboxEvent{row(0), row(0)}}
	snd := &downSender{}
	relay, err := NewRelay(RelayParams{
		Outbox:  config.OutboxConfig{BatchSize: 5, PollIntervalMS: 20, MaxAttempts: 3},
		Logger:  logger.New(logger.Options{ServiceName: "relay-test", Output: io.Discard}),
		DB:      passthroughDB{},
		Sender:  snd,
		Store:   store,
		Routes:  stubRoutes{},
		Metrics: metrics.NewOutboxMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}

	// The pauses after failing batches are at least 40ms then 80ms, so the
	// third attempt cannot happen inside this window.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := relay.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	if len(store.terminal) != 0 {
		t.Fatalf("rows abandoned during outage: %v", store.terminal)
	}
	if snd.sends < 2 || snd.sends > 4 {
		t.Fatalf("expected one or two sends per row, got %d", snd.sends)
	}
}

func TestDrainReportsFetchFailure(t *testing.T) {
	store := &memStore{fetchErr: errors.New("db down")}
	relay := newTestRelay(t, store, &scriptedSender{}, stubRoutes{}, prometheus.NewRegistry())

	if _, err := relay.drain(context.Background()); err == nil {
		t.Fatal("expected fetch failure to surface")
	}
}

func TestPacerDoublesUntilCapped(t *testing.T) {
	p := newPacer(time.Second, 3*time.Second)
	if d := p.failure(); d < 2*time.Second || d >= 2*time.Second+jitterWindow {
		t.Fatalf("expected ~2s, got %v", d)
	}
	if d := p.failure(); d < 3*time.Second || d >= 3*time.Second+jitterWindow {
		t.Fatalf("expected cap at ~3s, got %v", d)
	}
	p.reset()
	if d := p.idle(); d < time.Second || d >= time.Second+jitterWindow {
		t.Fatalf("expected ~1s idle, got %v", d)
	}
}

func TestNewRelayRequiresCollaborators(t *testing.T) {
	if _, err := NewRelay(RelayParams{}); err == nil {
		t.Fatal("expected error without collaborators")
	}
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
