// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage"
)

const (
	metaTable      = "sanket_meta"
	namespaceTable = "sanket_namespaces"
	chunkTable     = "sanket_chunks"
)

// VectorConfig configures the pgvector store.
type VectorConfig struct {
	Dimensions int
	Metric     core.Metric
	// Lists is the ivfflat list count. Zero uses 100.
	Lists int
}

// VectorStore implements storage.VectorStore on PostgreSQL with pgvector.
type VectorStore struct {
	backend *Backend
	config  VectorConfig
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates the schema if needed and checks that the stored
// metric matches config.Metric.
func NewVectorStore(ctx context.Context, backend *Backend, config VectorConfig) (storage.VectorStore, error) {
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", storage.ErrDimensionMismatch)
	}
	if config.Metric == "" {
		config.Metric = core.MetricCosine
	}
	if config.Lists == 0 {
		config.Lists = 100
	}

	vs := &VectorStore{backend: backend, config: config}
	if err := vs.initialize(ctx); err != nil {
		return nil, err
	}
	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	pool := vs.backend.pool

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`, metaTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, namespaceTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			chunk_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			content TEXT NOT NULL,
			version TEXT NOT NULL,
			first_row INTEGER NOT NULL,
			last_row INTEGER NOT NULL,
			record_count INTEGER NOT NULL,
			embedding vector(%d) NOT NULL,
			PRIMARY KEY (namespace, chunk_id)
		)`, chunkTable, vs.config.Dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s
			USING ivfflat (embedding %s)
			WITH (lists = %d)`,
			chunkTable, chunkTable, operatorClass(vs.config.Metric), vs.config.Lists),
	}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	_, err := pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ('metric', $1) ON CONFLICT (key) DO NOTHING`, metaTable),
		string(vs.config.Metric))
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}

	var stored string
	err = pool.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = 'metric'`, metaTable)).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to read metric: %w", err)
	}
	if core.Metric(stored) != vs.config.Metric {
		return fmt.Errorf("%w: store uses %s, requested %s", storage.ErrMetricMismatch, stored, vs.config.Metric)
	}
	return nil
}

// operatorClass returns the ivfflat operator class for a metric.
func operatorClass(metric core.Metric) string {
	if metric == core.MetricDot {
		return "vector_ip_ops"
	}
	return "vector_cosine_ops"
}

// distanceOperator returns the pgvector operator ordering nearest first.
func distanceOperator(metric core.Metric) string {
	if metric == core.MetricDot {
		return "<#>"
	}
	return "<=>"
}

// scoreExpression converts pgvector distance into a higher-is-better score.
// <#> returns the negative inner product and <=> returns 1 - cosine.
func scoreExpression(metric core.Metric) string {
	if metric == core.MetricDot {
		return "-(embedding <#> $1)"
	}
	return "1 - (embedding <=> $1)"
}

func (vs *VectorStore) Metric() core.Metric {
	return vs.config.Metric
}

// Close is a no-op; the pool is owned by the Backend.
func (vs *VectorStore) Close() error {
	return nil
}

// Upsert writes entries into ns in one transaction.
func (vs *VectorStore) Upsert(ctx context.Context, ns core.Namespace, entries []core.IndexEntry) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	for _, entry := range entries {
		if len(entry.Vector) != vs.config.Dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, store has %d",
				storage.ErrDimensionMismatch, entry.Chunk.ID, len(entry.Vector), vs.config.Dimensions)
		}
	}

	tx, err := vs.backend.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (namespace) VALUES ($1) ON CONFLICT (namespace) DO NOTHING`, namespaceTable),
		string(ns))
	if err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (namespace, chunk_id, seq, content, version, first_row, last_row, record_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (namespace, chunk_id) DO UPDATE SET
			seq = EXCLUDED.seq,
			content = EXCLUDED.content,
			version = EXCLUDED.version,
			first_row = EXCLUDED.first_row,
			last_row = EXCLUDED.last_row,
			record_count = EXCLUDED.record_count,
			embedding = EXCLUDED.embedding`,
		chunkTable)

	batch := &pgx.Batch{}
	for _, entry := range entries {
		c := entry.Chunk
		batch.Queue(stmt,
			string(ns), c.ID, c.Seq, c.Text,
			c.Provenance.Version, c.Provenance.FirstRow, c.Provenance.LastRow, c.RecordCount,
			pgvector.NewVector(entry.Vector))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query returns the k nearest chunks in ns.
func (vs *VectorStore) Query(ctx context.Context, ns core.Namespace, vector []float32, k int) ([]core.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}
	if len(vector) != vs.config.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			storage.ErrDimensionMismatch, len(vector), vs.config.Dimensions)
	}

	exists, err := vs.Exists(ctx, ns)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: namespace %s", storage.ErrNotFound, ns)
	}

	query := fmt.Sprintf(`
		SELECT chunk_id, seq, content, version, first_row, last_row, record_count, %s AS score
		FROM %s
		WHERE namespace = $2
		ORDER BY embedding %s $1, chunk_id
		LIMIT $3`,
		scoreExpression(vs.config.Metric), chunkTable, distanceOperator(vs.config.Metric))

	rows, err := vs.backend.pool.Query(ctx, query, pgvector.NewVector(vector), string(ns), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var hits []core.Hit
	for rows.Next() {
		var (
			hit   core.Hit
			score float64
		)
		c := &hit.Chunk
		if err := rows.Scan(&c.ID, &c.Seq, &c.Text, &c.Provenance.Version,
			&c.Provenance.FirstRow, &c.Provenance.LastRow, &c.RecordCount, &score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		hit.Score = float32(score)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// DeleteNamespace removes ns and its chunks.
func (vs *VectorStore) DeleteNamespace(ctx context.Context, ns core.Namespace) error {
	tx, err := vs.backend.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1`, namespaceTable), string(ns)); err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1`, chunkTable), string(ns)); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return tx.Commit(ctx)
}

func (vs *VectorStore) Exists(ctx context.Context, ns core.Namespace) (bool, error) {
	var one int
	err := vs.backend.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT 1 FROM %s WHERE namespace = $1`, namespaceTable), string(ns)).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check namespace: %w", err)
	}
	return true, nil
}

func (vs *VectorStore) Namespaces(ctx context.Context) ([]core.Namespace, error) {
	rows, err := vs.backend.pool.Query(ctx,
		fmt.Sprintf(`SELECT namespace FROM %s ORDER BY namespace`, namespaceTable))
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	namespaces := make([]core.Namespace, len(names))
	for i, n := range names {
		namespaces[i] = core.Namespace(n)
	}
	return namespaces, nil
}

func (vs *VectorStore) Count(ctx context.Context, ns core.Namespace) (int, error) {
	var count int
	err := vs.backend.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE namespace = $1`, chunkTable), string(ns)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
