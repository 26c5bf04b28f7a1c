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

package config

import (
	"fmt"
	"net/url"

	"github.com/poiesic/sanket/core"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, message string) {
		errs = append(errs, ValidationError{Field: field, Message: message})
	}

	// Source
	if c.Source.ListingURL == "" && c.Source.DocumentURL == "" {
		add("source.listing_url", "either listing_url or document_url is required")
	}
	checkURL := func(field, raw string) {
		if raw == "" {
			return
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			add(field, fmt.Sprintf("invalid URL %q", raw))
		}
	}
	checkURL("source.listing_url", c.Source.ListingURL)
	checkURL("source.document_url", c.Source.DocumentURL)
	if c.Source.RateLimit <= 0 {
		add("source.rate_limit", "rate_limit must be positive")
	}

	// AI
	if err := c.AIProviderConfig().Validate(); err != nil {
		add("ai", err.Error())
	}

	// Storage
	switch c.Storage.Driver {
	case DriverBadger:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			add("storage.database_url", "database_url is required for the postgres driver")
		}
	default:
		add("storage.driver", fmt.Sprintf("unknown driver %q, expected badger or postgres", c.Storage.Driver))
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		add("storage.path", "path is required unless in_memory is set")
	}
	if c.Storage.Dimensions < 1 {
		add("storage.dimensions", "dimensions must be positive")
	}
	if _, err := core.ParseMetric(c.Storage.Metric); err != nil {
		add("storage.metric", err.Error())
	}

	// Embedding
	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size", "batch_size must be positive")
	}
	if c.Embedding.Workers < 0 {
		add("embedding.workers", "workers must not be negative")
	}
	if c.Embedding.MaxAttempts < 1 {
		add("embedding.max_attempts", "max_attempts must be positive")
	}

	// Ingestion
	if c.Ingestion.PollInterval < 0 {
		add("ingestion.poll_interval", "poll_interval must not be negative")
	}
	if c.Ingestion.ChunkSize < 1 {
		add("ingestion.chunk_size", "chunk_size must be positive")
	}
	if c.Ingestion.UpsertBatchSize < 1 {
		add("ingestion.upsert_batch_size", "upsert_batch_size must be positive")
	}
	if c.Ingestion.SkipRateAlert < 0 || c.Ingestion.SkipRateAlert > 1 {
		add("ingestion.skip_rate_alert", "skip_rate_alert must be between 0 and 1")
	}

	// Search
	if c.Search.TopK < 1 {
		add("search.top_k", "top_k must be positive")
	}
	if c.Search.MaxTopK < c.Search.TopK {
		add("search.max_top_k", "max_top_k must not be less than top_k")
	}

	// Answer
	if c.Answer.ContextBudget < 1 {
		add("answer.context_budget", "context_budget must be positive")
	}
	if c.Answer.SnippetLimit < 1 {
		add("answer.snippet_limit", "snippet_limit must be positive")
	}
	if c.Answer.MaxAttempts < 1 {
		add("answer.max_attempts", "max_attempts must be positive")
	}

	// Optional integrations
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		add("kafka.topic", "topic is required when brokers are set")
	}
	if c.Archive.Enabled() && c.Archive.Bucket == "" {
		add("archive.bucket", "bucket is required when endpoint is set")
	}

	return errs
}
