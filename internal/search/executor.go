package search

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
	"github.com/angelmondragon/eshoplite-backend/pkg/openai"
)

const (
	// TopK is the number of nearest neighbours requested per query.
	TopK = 3
	// ScoreThreshold is exclusive: a match must score strictly above it.
	ScoreThreshold = 0.5

	buildKey = "index-build"
)

// State is the lifecycle of the vector index.
type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// ChatCompleter produces the assistant text for a message list.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []openai.Message) (string, error)
}

// Catalog is the read side of the product table.
type Catalog interface {
	ListAll(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

// Result is what a semantic search hands back to the caller.
type Result struct {
	ResponseText string
	Products     []models.Product
}

type ExecutorParams struct {
	Catalog  Catalog
	Index    Index
	Embedder Embedder
	Chat     ChatCompleter
	Metrics  *metrics.SearchMetrics
	Logger   *logger.Logger
}

// Executor answers natural-language product queries from the vector index.
type Executor struct {
	catalog  Catalog
	index    Index
	embedder Embedder
	chat     ChatCompleter
	builder  *Builder
	metrics  *metrics.SearchMetrics
	logg     *logger.Logger

	state atomic.Int32
	group singleflight.Group
}

func NewExecutor(params ExecutorParams) (*Executor, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if params.Index == nil {
		return nil, fmt.Errorf("index is required")
	}
	return &Executor{
		catalog:  params.Catalog,
		index:    params.Index,
		embedder: params.Embedder,
		chat:     params.Chat,
		builder:  NewBuilder(params.Embedder, params.Index, params.Logger, params.Metrics),
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// State reports the current index lifecycle state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// Rebuild re-embeds the whole catalog. Concurrent callers share one build.
// An index that is already Ready keeps serving while it is refreshed.
func (e *Executor) Rebuild(ctx context.Context) (RebuildReport, error) {
	ch := e.group.DoChan(buildKey, func() (any, error) {
		return e.build(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return RebuildReport{Failed: []int64{}}, res.Err
		}
		return res.Val.(RebuildReport), nil
	case <-ctx.Done():
		return RebuildReport{Failed: []int64{}}, ctx.Err()
	}
}

// EnsureReady builds the index once if no build has completed yet.
func (e *Executor) EnsureReady(ctx context.Context) error {
	if e.State() == StateReady {
		return nil
	}
	_, err := e.Rebuild(ctx)
	return err
}

func (e *Executor) build(ctx context.Context) (RebuildReport, error) {
	started := e.state.CompareAndSwap(int32(StateEmpty), int32(StateBuilding))
	e.info(ctx, "search.index.rebuild_started")

	products, err := e.catalog.ListAll(ctx)
	if err != nil {
		if started {
			e.state.Store(int32(StateEmpty))
		}
		e.metrics.ObserveRebuild(metrics.RebuildResultFailure, e.index.Count())
		wrapped := pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load products for indexing")
		if e.logg != nil {
			e.logg.Error(ctx, "search.index.rebuild_failed", wrapped)
		}
		return RebuildReport{}, wrapped
	}

	report := e.builder.Rebuild(ctx, products)
	e.state.Store(int32(StateReady))

	result := metrics.RebuildResultSuccess
	if report.Err != nil {
		result = metrics.RebuildResultFailure
	}
	e.metrics.ObserveRebuild(result, e.index.Count())
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"attempted": report.Attempted,
			"indexed":   report.Indexed,
			"failed":    len(report.Failed),
		})
		e.logg.Info(logCtx, "search.index.rebuild_completed")
	}
	return report, nil
}

// Retrieve returns the catalog products that best match query. On error the
// products resolved before the failure are returned alongside it.
func (e *Executor) Retrieve(ctx context.Context, query string) ([]models.Product, error) {
	products := []models.Product{}
	if err := e.EnsureReady(ctx); err != nil {
		return products, err
	}
	if e.embedder == nil {
		return products, pkgerrors.New(pkgerrors.CodeProvider, "embedding provider not configured")
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return products, err
	}
	matches, err := e.index.Search(ctx, vec, TopK)
	if err != nil {
		return products, err
	}
	for _, m := range matches {
		if m.Score <= ScoreThreshold {
			continue
		}
		p, err := e.catalog.FindByID(ctx, m.Record.ID)
		if err != nil {
			return products, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "failed to load matched product")
		}
		if p == nil {
			if e.logg != nil {
				e.logg.Debug(e.logg.WithField(ctx, "product_id", m.Record.ID), "search.match_missing_product")
			}
			continue
		}
		products = append(products, *p)
	}
	return products, nil
}

// Search runs retrieval plus answer generation. Failures never escape: they
// become the response text, together with whatever products were found.
func (e *Executor) Search(ctx context.Context, query string) Result {
	start := time.Now()
	ctx = e.withQuery(ctx, query)

	products, err := e.Retrieve(ctx, query)
	if err != nil {
		return e.degraded(ctx, products, err, start)
	}
	if len(products) == 0 {
		e.metrics.ObserveSearch(metrics.SearchOutcomeNoMatch, time.Since(start))
		return Result{ResponseText: fmt.Sprintf(noAnswerTemplate, query), Products: products}
	}
	if e.chat == nil {
		return e.degraded(ctx, products, pkgerrors.New(pkgerrors.CodeProvider, "chat provider not configured"), start)
	}
	text, err := e.chat.Complete(ctx, Messages(query, products))
	if err != nil {
		return e.degraded(ctx, products, err, start)
	}
	e.metrics.ObserveSearch(metrics.SearchOutcomeAnswered, time.Since(start))
	return Result{ResponseText: text, Products: products}
}

func (e *Executor) degraded(ctx context.Context, products []models.Product, err error, start time.Time) Result {
	e.metrics.ObserveSearch(metrics.SearchOutcomeDegraded, time.Since(start))
	if e.logg != nil {
		e.logg.Error(ctx, "search.degraded", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return Result{ResponseText: fmt.Sprintf(errorTemplate, publicMessage(err)), Products: products}
}

// publicMessage echoes messages this code wrote itself and hides the rest.
func publicMessage(err error) string {
	if te := pkgerrors.As(err); te != nil {
		return te.Message()
	}
	return "unexpected error"
}

func (e *Executor) withQuery(ctx context.Context, query string) context.Context {
	if e.logg == nil {
		return ctx
	}
	return e.logg.WithFields(e.logg.WithOperation(ctx, "search.semantic"), map[string]any{"query": query})
}

func (e *Executor) info(ctx context.Context, msg string) {
	if e.logg != nil {
		e.logg.Info(ctx, msg)
	}
}
