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

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/sanket/ai"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/retry"
)

const (
	DefaultBatchSize   = 64
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultTimeout     = 60 * time.Second
)

// ProgressFunc is called after each batch completes with the number of
// texts embedded so far and the total. Calls are serialized.
type ProgressFunc func(done, total int)

// Generator embeds text in batches on a bounded worker pool.
type Generator struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	normalize bool
	policy    retry.Policy
	progress  ProgressFunc
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithBatchSize sets the number of texts sent per backend call.
// Default is 64.
func WithBatchSize(size int) Option {
	return func(g *Generator) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		g.batchSize = size
		return nil
	}
}

// WithWorkers sets how many batches may be in flight at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(size int) Option {
	return func(g *Generator) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if g.pool != nil {
			g.pool.Release()
		}
		g.pool = pool
		return nil
	}
}

// WithRetryPolicy sets the retry policy applied to each batch call.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(g *Generator) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		g.policy = policy
		return nil
	}
}

// WithMetric enables unit-length normalization when metric is cosine.
func WithMetric(metric core.Metric) Option {
	return func(g *Generator) error {
		g.normalize = metric == core.MetricCosine
		return nil
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(g *Generator) error {
		g.progress = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// New creates a Generator over embedder.
func New(embedder ai.Embedder, opts ...Option) (*Generator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	g := &Generator{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		policy: retry.Policy{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   DefaultBaseDelay,
			MaxDelay:    DefaultMaxDelay,
			Timeout:     DefaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			g.Close()
			return nil, err
		}
	}

	if g.pool == nil {
		poolSize := runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
		pool, err := ants.NewPool(poolSize)
		if err != nil {
			return nil, err
		}
		g.pool = pool
	}
	g.logger = g.logger.With("component", "embedding")
	return g, nil
}

// BatchSize returns the configured batch size.
func (g *Generator) BatchSize() int {
	return g.batchSize
}

// Embed returns one vector per text in input order.
// Any batch that still fails after retries fails the whole call with a
// *core.EmbeddingError. Cancellation of ctx is returned as ctx.Err().
func (g *Generator) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return g.EmbedWithProgress(ctx, texts, g.progress)
}

// EmbedWithProgress is Embed with a per-call progress callback that
// replaces the configured one.
func (g *Generator) EmbedWithProgress(ctx context.Context, texts []string, progress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(texts)
	results := make([][]float32, total)
	batches := (total + g.batchSize - 1) / g.batchSize
	g.logger.Debug("embedding texts", "texts", total, "batches", batches, "batchSize", g.batchSize)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		mu       sync.Mutex
		done     int
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < total; start += g.batchSize {
		end := min(start+g.batchSize, total)
		batch := texts[start:end]
		offset := start

		wg.Add(1)
		err := g.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vectors, err := g.embedBatch(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			copy(results[offset:], vectors)

			mu.Lock()
			done += len(batch)
			if progress != nil {
				progress(done, total)
			}
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkDimensions(results); err != nil {
		return nil, &core.EmbeddingError{Attempts: 1, Err: err}
	}
	return results, nil
}

// EmbedOne embeds a single text with the same retry and normalization rules.
func (g *Generator) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (g *Generator) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var (
		vectors  [][]float32
		attempts int
	)
	err := g.policy.Do(ctx, func(callCtx context.Context) error {
		attempts++
		out, err := g.embedder.EmbedTexts(callCtx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return retry.Permanent(fmt.Errorf("%w: expected %d, received %d", ErrCountMismatch, len(texts), len(out)))
		}
		vectors = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Error("embedding batch failed", "texts", len(texts), "attempts", attempts, "err", err)
		return nil, &core.EmbeddingError{Attempts: attempts, Err: err}
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, &core.EmbeddingError{Attempts: attempts, Err: ErrEmptyVector}
		}
		if g.normalize {
			vectors[i] = NormalizeVector(v)
		}
	}
	return vectors, nil
}

func checkDimensions(vectors [][]float32) error {
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// Close releases the worker pool.
func (g *Generator) Close() {
	if g.pool != nil {
		g.pool.Release()
	}
}
