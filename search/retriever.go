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

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/sanket/ai"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/embedding"
	"github.com/poiesic/sanket/retry"
)

const (
	DefaultTopK         = 6
	DefaultMaxTopK      = 50
	DefaultMinScore     = 0.0
	DefaultEmbedTimeout = 15 * time.Second
	DefaultEmbedRetries = 3
)

// Index answers vector queries. See index.Manager.
type Index interface {
	Query(ctx context.Context, ns core.Namespace, vector []float32, k int) (*core.RetrievalResult, error)
	Metric() core.Metric
}

// Retriever finds the chunks most relevant to a question.
type Retriever struct {
	embedder ai.Embedder
	index    Index
	topK     int
	maxTopK  int
	minScore float32
	policy   retry.Policy
	monitor  SearchMonitor
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithTopK sets the number of hits returned when a request does not say.
// Default is 6.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return fmt.Errorf("top-k must be positive, got %d", k)
		}
		r.topK = k
		return nil
	}
}

// WithMaxTopK caps the number of hits any request may ask for.
// Default is 50.
func WithMaxTopK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return fmt.Errorf("max top-k must be positive, got %d", k)
		}
		r.maxTopK = k
		return nil
	}
}

// WithMinScore drops hits scoring below score.
// Default is 0.
func WithMinScore(score float32) Option {
	return func(r *Retriever) error {
		r.minScore = score
		return nil
	}
}

// WithEmbedTimeout bounds each question embedding attempt.
// Default is 15 seconds.
func WithEmbedTimeout(d time.Duration) Option {
	return func(r *Retriever) error {
		r.policy.Timeout = d
		return nil
	}
}

// WithEmbedRetries sets the number of question embedding attempts.
// Default is 3.
func WithEmbedRetries(attempts int) Option {
	return func(r *Retriever) error {
		if attempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		r.policy.MaxAttempts = attempts
		return nil
	}
}

// WithMonitor registers retrieval hooks.
func WithMonitor(monitor SearchMonitor) Option {
	return func(r *Retriever) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		r.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder ai.Embedder, index Index, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	r := &Retriever{
		embedder: embedder,
		index:    index,
		topK:     DefaultTopK,
		maxTopK:  DefaultMaxTopK,
		minScore: DefaultMinScore,
		policy: retry.Policy{
			MaxAttempts: DefaultEmbedRetries,
			BaseDelay:   250 * time.Millisecond,
			Timeout:     DefaultEmbedTimeout,
		},
		monitor: &noopMonitor{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.topK > r.maxTopK {
		r.topK = r.maxTopK
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// Retrieve returns the hits for req ordered by descending score.
//
// Errors:
//   - ErrEmptyQuestion for a blank question
//   - core.ErrNoActiveNamespace when nothing has been indexed yet
//   - core.ErrNamespaceNotFound for an unknown requested namespace
//   - core.ErrIndexUnavailable when the index cannot be reached
//   - core.ErrEmbedding when the question cannot be embedded
func (r *Retriever) Retrieve(ctx context.Context, req core.QueryRequest) (*core.RetrievalResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	words := keywords(question)
	r.monitor.Start(question, words)

	k := req.TopK
	if k <= 0 {
		k = r.topK
	}
	if k > r.maxTopK {
		k = r.maxTopK
	}

	vector, err := r.embed(ctx, question)
	if err != nil {
		return nil, err
	}
	r.monitor.AfterEmbedding(len(vector))

	result, err := r.index.Query(ctx, req.Namespace, vector, k)
	if err != nil {
		r.logger.Error("index query failed", "namespace", req.Namespace, "err", err)
		return nil, err
	}
	r.monitor.AfterQuery(result.Namespace, result.Hits)

	seen := make(map[string]bool, len(result.Hits))
	hits := make([]core.Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if seen[hit.Chunk.ID] {
			continue
		}
		seen[hit.Chunk.ID] = true
		if hit.Score < r.minScore {
			r.monitor.BelowFloor(hit)
			continue
		}
		if containsAll(hit.Chunk.Text, words) {
			r.monitor.VerbatimHit(hit)
		}
		hits = append(hits, hit)
	}
	result.Hits = hits

	r.logger.Debug("retrieved chunks", "namespace", result.Namespace, "k", k, "hits", len(hits), "keywords", words)
	r.monitor.Finish(result)
	return result, nil
}

func (r *Retriever) embed(ctx context.Context, question string) ([]float32, error) {
	var (
		vector   []float32
		attempts int
	)
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		v, err := r.embedder.EmbedText(ctx, question)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return retry.Permanent(embedding.ErrEmptyVector)
		}
		vector = v
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Error("error generating embedding for question", "attempts", attempts, "err", err)
		return nil, fmt.Errorf("embed question: %w", &core.EmbeddingError{Attempts: attempts, Err: err})
	}
	if r.index.Metric() == core.MetricCosine {
		vector = embedding.NormalizeVector(vector)
	}
	return vector, nil
}
