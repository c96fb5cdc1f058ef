package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/prsense-labs/prsense/internal/vectormath"
)

// Memory is the volatile in-process backend: a map keyed by identifier,
// with full-scan cosine search. State is lost on process exit.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]Record
}

// NewMemory constructs an empty volatile backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]Record)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := rec
	cp.Files = append([]string(nil), rec.Files...)
	cp.TextEmbedding = append([]float32(nil), rec.TextEmbedding...)
	cp.DiffEmbedding = append([]float32(nil), rec.DiffEmbedding...)
	m.records[rec.ID] = cp
	return nil
}

func (m *Memory) Get(_ context.Context, id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) GetAll(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Search(_ context.Context, query []float32, k int) ([]ScoredID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]ScoredID, 0, len(m.records))
	for id, rec := range m.records {
		scored = append(scored, ScoredID{ID: id, Score: vectormath.Cosine(query, rec.TextEmbedding)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *Memory) Close() error { return nil }
