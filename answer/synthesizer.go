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

package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/sanket/ai"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/retry"
)

const (
	DefaultContextBudget = 12000
	DefaultSnippetLimit  = 1500
	DefaultTimeout       = 60 * time.Second
	DefaultAttempts      = 3
)

// NoDataAnswer is returned when nothing relevant was retrieved.
const NoDataAnswer = ai.NotAvailableAnswer

// ErrGeneratorRequired is returned when a generator is not provided.
var ErrGeneratorRequired = errors.New("generator required")

// Synthesizer builds answers from retrieval results.
type Synthesizer struct {
	generator ai.Generator
	budget    int
	snippet   int
	policy    retry.Policy
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithContextBudget sets the maximum context length in characters.
// Default is 12000.
func WithContextBudget(chars int) Option {
	return func(s *Synthesizer) error {
		if chars < 1 {
			return fmt.Errorf("context budget must be positive, got %d", chars)
		}
		s.budget = chars
		return nil
	}
}

// WithSnippetLimit caps the characters taken from any single chunk.
// Default is 1500.
func WithSnippetLimit(chars int) Option {
	return func(s *Synthesizer) error {
		if chars < 1 {
			return fmt.Errorf("snippet limit must be positive, got %d", chars)
		}
		s.snippet = chars
		return nil
	}
}

// WithRetryPolicy sets how generation failures are retried.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Synthesizer) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		s.policy = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Synthesizer.
func New(generator ai.Generator, opts ...Option) (*Synthesizer, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	s := &Synthesizer{
		generator: generator,
		budget:    DefaultContextBudget,
		snippet:   DefaultSnippetLimit,
		policy: retry.Policy{
			MaxAttempts: DefaultAttempts,
			BaseDelay:   time.Second,
			Timeout:     DefaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "synthesizer")
	return s, nil
}

// Synthesize answers question from result. The returned evidence holds
// only the hits that made it into the context.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, result *core.RetrievalResult) (*core.AnswerResponse, error) {
	response := &core.AnswerResponse{Question: question}
	if result.Empty() {
		response.Answer = NoDataAnswer
		if result != nil {
			response.Evidence.Namespace = result.Namespace
		}
		return response, nil
	}

	contextText, used := s.buildContext(result.Hits)
	response.Evidence = core.RetrievalResult{
		Namespace: result.Namespace,
		Hits:      result.Hits[:used],
	}

	var answer string
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		answer, err = s.generator.Generate(ctx, contextText, question)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("answer generation failed", "err", err)
		return nil, fmt.Errorf("generate answer: %w", core.Transient(err))
	}

	response.Answer = strings.TrimSpace(answer)
	if response.Answer == "" {
		response.Answer = NoDataAnswer
	}
	response.Grounded = true
	s.logger.Debug("answer generated", "chunks", used, "contextChars", utf8.RuneCountInString(contextText))
	return response, nil
}

// buildContext renders hits in rank order until the budget is spent and
// returns the context and the number of hits it includes.
func (s *Synthesizer) buildContext(hits []core.Hit) (string, int) {
	var b strings.Builder
	used, size := 0, 0
	for i, hit := range hits {
		block := s.renderBlock(hit)
		cost := utf8.RuneCountInString(block)
		if i > 0 {
			cost += 2
		}
		if size+cost > s.budget {
			if i == 0 {
				b.WriteString(truncate(block, s.budget))
				used = 1
			}
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		size += cost
		used++
	}
	return b.String(), used
}

func (s *Synthesizer) renderBlock(hit core.Hit) string {
	p := hit.Chunk.Provenance
	return fmt.Sprintf("[Source: %s rows %d-%d | id: %s]\n%s",
		p.Version, p.FirstRow, p.LastRow, hit.Chunk.ID, truncate(strings.TrimSpace(hit.Chunk.Text), s.snippet))
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
