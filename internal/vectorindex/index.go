// Package vectorindex holds product embeddings in process memory and answers
// exact top-K cosine similarity queries over them.
package vectorindex

import (
	"container/heap"
	"context"
	"errors"
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

// ProductVector is the derived, rebuildable record kept per product id.
type ProductVector struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	Vector      []float32
}

// Match pairs a stored record with its similarity to the query.
type Match struct {
	Record ProductVector
	Score  float64
}

// Memory is an in-memory index keyed by product id.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]ProductVector
}

// NewMemory returns an empty index.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]ProductVector)}
}

// Upsert stores rec under rec.ID, replacing any previous entry. The vector
// is normalized on insert so dot product equals cosine similarity.
func (m *Memory) Upsert(ctx context.Context, rec ProductVector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rec.Vector) == 0 {
		return errors.New("vector is empty")
	}
	rec.Vector = normalize(rec.Vector)

	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()
	return nil
}

// Search returns up to limit matches ordered by descending score. Entries
// whose dimension differs from the query are skipped.
func (m *Memory) Search(ctx context.Context, query []float32, limit int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Match{}, nil
	}
	q := normalize(query)

	h := &minHeap{}
	m.mu.RLock()
	for _, rec := range m.records {
		if len(rec.Vector) != len(q) {
			continue
		}
		cand := Match{Record: rec, Score: dotProduct(q, rec.Vector)}
		if h.Len() < limit {
			heap.Push(h, cand)
		} else if worse((*h)[0], cand) {
			(*h)[0] = cand
			heap.Fix(h, 0)
		}
	}
	m.mu.RUnlock()

	out := make([]Match, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Match)
	}
	return out, nil
}

// Count returns the number of stored records.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// worse reports whether a ranks below b. Equal scores rank the lower id first.
func worse(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Record.ID > b.Record.ID
}

type minHeap []Match

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(Match)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
