package storage

import (
	"context"

	"github.com/poiesic/sanket/core"
)

// VectorStore holds chunk vectors partitioned by namespace.
// Chunks and vectors are immutable within a namespace once written.
type VectorStore interface {
	// Upsert writes entries into ns. Re-upserting a chunk ID overwrites it.
	Upsert(ctx context.Context, ns core.Namespace, entries []core.IndexEntry) error

	// Query returns at most k hits from ns ordered by descending score,
	// ties broken by ascending chunk ID.
	Query(ctx context.Context, ns core.Namespace, vector []float32, k int) ([]core.Hit, error)

	// DeleteNamespace removes every entry in ns. Deleting a missing namespace is not an error.
	DeleteNamespace(ctx context.Context, ns core.Namespace) error

	// Exists reports whether ns has been created by an upsert.
	Exists(ctx context.Context, ns core.Namespace) (bool, error)

	// Namespaces lists every namespace present in the store.
	Namespaces(ctx context.Context) ([]core.Namespace, error)

	// Count returns the number of chunks stored in ns.
	Count(ctx context.Context, ns core.Namespace) (int, error)

	// Metric returns the similarity metric fixed when the store was created.
	Metric() core.Metric

	// Close releases resources held by the store.
	Close() error
}

// StateRepository persists pipeline state that must survive restarts.
type StateRepository interface {
	// LoadState returns the persisted pipeline state.
	// Returns nil, nil if no state has been saved.
	LoadState(ctx context.Context) (*core.PipelineState, error)

	// SaveState replaces the persisted pipeline state.
	SaveState(ctx context.Context, state *core.PipelineState) error

	// SaveVersionMetrics records the outcome of ingesting one document version.
	SaveVersionMetrics(ctx context.Context, metrics *core.VersionMetrics) error

	// GetVersionMetrics returns metrics for a version, or nil, nil if absent.
	GetVersionMetrics(ctx context.Context, version string) (*core.VersionMetrics, error)

	// ListVersionMetrics returns metrics for all versions ordered by completion time.
	ListVersionMetrics(ctx context.Context) ([]*core.VersionMetrics, error)

	// NextGeneration returns a monotonically increasing namespace generation number.
	NextGeneration(ctx context.Context) (uint64, error)
}

// RecordSink receives normalized accident records for downstream reporting.
// The pipeline writes to it and never reads back.
type RecordSink interface {
	WriteRecords(ctx context.Context, version string, records []core.AccidentRecord) error
}
