// Package storage defines the detector's persistence contract and its
// four concrete back-ends: volatile memory, an embedded single-file
// relational store, a client/server relational store with native
// vector search, and a JSON file-snapshot helper.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for an identifier.
var ErrNotFound = errors.New("storage: record not found")

// Record is a descriptor plus its computed embeddings, as persisted.
type Record struct {
	ID             int64
	Title          string
	Description    string
	Files          []string
	TextEmbedding  []float32
	DiffEmbedding  []float32
	CreatedAtMilli int64
}

// CheckResult is the analytics row optionally recorded after a check.
type CheckResult struct {
	ID              int64
	ResultType      string
	OriginalID      *int64
	Confidence      float64
	TimestampMilli  int64
}

// ScoredID pairs an identifier with a similarity score, as returned by
// Search, in descending-score order.
type ScoredID struct {
	ID    int64
	Score float64
}

// AnalyticsSummary is a coarse rollup over recorded check results.
type AnalyticsSummary struct {
	TotalChecks     int64
	DuplicateCount  int64
	PossibleCount   int64
	UniqueCount     int64
}

// Backend is the uniform storage contract. All operations may perform
// I/O and must honor ctx cancellation where the underlying transport
// supports it.
type Backend interface {
	// Save upserts a record by identifier.
	Save(ctx context.Context, rec Record) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id int64) (Record, error)

	// GetAll returns every record, embeddings intact, up to an
	// implementation-defined bound. Callers treat the result as a
	// paginated snapshot, not a live cursor.
	GetAll(ctx context.Context) ([]Record, error)

	// Search returns the top k records by cosine similarity of their
	// text embedding against query, descending by score.
	Search(ctx context.Context, query []float32, k int) ([]ScoredID, error)

	// Delete removes the record for id, if any.
	Delete(ctx context.Context, id int64) error

	// Close releases any held resources.
	Close() error

	// Name identifies the backend for get_stats/storage_backend_name.
	Name() string
}

// AnalyticsBackend is implemented optionally by back-ends that can
// record and summarize check results. The core only calls these paths
// when the configured storage implements this interface.
type AnalyticsBackend interface {
	SaveCheck(ctx context.Context, result CheckResult) error
	GetAnalytics(ctx context.Context) (AnalyticsSummary, error)
}
