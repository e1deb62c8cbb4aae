package search

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/eshoplite-backend/internal/vectorindex"
	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/eshoplite-backend/pkg/errors"
	"github.com/angelmondragon/eshoplite-backend/pkg/logger"
	"github.com/angelmondragon/eshoplite-backend/pkg/metrics"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the vector store the builder writes to and the executor reads.
type Index interface {
	Upsert(ctx context.Context, rec vectorindex.ProductVector) error
	Search(ctx context.Context, query []float32, limit int) ([]vectorindex.Match, error)
	Count() int
}

// RebuildReport summarizes one pass over the catalog.
type RebuildReport struct {
	Attempted int     `json:"attempted"`
	Indexed   int     `json:"indexed"`
	Failed    []int64 `json:"failed"`
	Err       error   `json:"-"`
}

// Builder embeds products and upserts them into the index.
type Builder struct {
	embedder Embedder
	index    Index
	logg     *logger.Logger
	metrics  *metrics.SearchMetrics
}

// NewBuilder wires a builder. A nil embedder makes every product fail.
func NewBuilder(embedder Embedder, index Index, logg *logger.Logger, m *metrics.SearchMetrics) *Builder {
	return &Builder{embedder: embedder, index: index, logg: logg, metrics: m}
}

// Rebuild embeds each product and upserts it by id. A failing product is
// logged, recorded and skipped. Nothing is rolled back or retried.
func (b *Builder) Rebuild(ctx context.Context, products []models.Product) RebuildReport {
	report := RebuildReport{Attempted: len(products), Failed: []int64{}}
	for _, p := range products {
		if err := b.indexOne(ctx, p); err != nil {
			report.Failed = append(report.Failed, p.ID)
			report.Err = multierr.Append(report.Err, fmt.Errorf("product %d: %w", p.ID, err))
			b.metrics.IncEmbeddingFailure()
			if b.logg != nil {
				logCtx := b.logg.WithFields(ctx, map[string]any{"product_id": p.ID, "product_name": p.Name})
				b.logg.Warn(b.logg.WithField(logCtx, "error", err.Error()), "search.index.product_failed")
			}
			continue
		}
		report.Indexed++
		if b.logg != nil {
			b.logg.Debug(b.logg.WithField(ctx, "product_id", p.ID), "search.index.product_added")
		}
	}
	return report
}

func (b *Builder) indexOne(ctx context.Context, p models.Product) error {
	if b.embedder == nil {
		return pkgerrors.New(pkgerrors.CodeProvider, "embedding provider not configured")
	}
	vec, err := b.embedder.Embed(ctx, DescribeProduct(p))
	if err != nil {
		return err
	}
	return b.index.Upsert(ctx, vectorindex.ProductVector{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Vector:      vec,
	})
}
