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


// Package sanket keeps a searchable index of mine accident reports in sync
// with the regulator's published bulletins and answers questions from it.
//
// Service wires the pipeline together from a config.Config: the fetcher,
// extractor, normalizer, chunker and embedding generator feed the update
// orchestrator, which builds each document version into a fresh index
// namespace and swaps it in atomically. Queries run concurrently against
// whichever namespace is active.
package sanket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/sanket/ai"
	"github.com/poiesic/sanket/ai/mock"
	"github.com/poiesic/sanket/ai/ollama"
	"github.com/poiesic/sanket/ai/openai"
	"github.com/poiesic/sanket/answer"
	"github.com/poiesic/sanket/archive"
	"github.com/poiesic/sanket/chunking"
	"github.com/poiesic/sanket/config"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/embedding"
	"github.com/poiesic/sanket/extract"
	"github.com/poiesic/sanket/fetch"
	"github.com/poiesic/sanket/index"
	"github.com/poiesic/sanket/ingestion"
	"github.com/poiesic/sanket/normalize"
	"github.com/poiesic/sanket/notify"
	"github.com/poiesic/sanket/retry"
	"github.com/poiesic/sanket/search"
	"github.com/poiesic/sanket/storage"
	"github.com/poiesic/sanket/storage/badger"
	"github.com/poiesic/sanket/storage/postgres"
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Service runs the ingestion loop and answers questions from the active index.
type Service struct {
	config       *config.Config
	backend      *badger.Backend
	pg           *postgres.Backend
	vectors      storage.VectorStore
	state        *badger.StateRepository
	provider     ai.AIProvider
	embedder     *embedding.Generator
	index        *index.Manager
	orchestrator *ingestion.Orchestrator
	retriever    *search.Retriever
	synthesizer  *answer.Synthesizer
	publisher    notify.Publisher
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	provider      ai.AIProvider
	httpClient    *http.Client
	cycleMonitor  ingestion.CycleMonitor
	searchMonitor search.SearchMonitor
	logger        *slog.Logger
}

// WithProvider overrides the AI provider selected by the configuration.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *serviceOptions) { o.provider = provider }
}

// WithHTTPClient sets the client used to reach the publisher.
func WithHTTPClient(client *http.Client) Option {
	return func(o *serviceOptions) { o.httpClient = client }
}

// WithCycleMonitor registers update cycle hooks.
func WithCycleMonitor(monitor ingestion.CycleMonitor) Option {
	return func(o *serviceOptions) { o.cycleMonitor = monitor }
}

// WithSearchMonitor registers retrieval hooks.
func WithSearchMonitor(monitor search.SearchMonitor) Option {
	return func(o *serviceOptions) { o.searchMonitor = monitor }
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// New validates cfg and builds every component. The returned Service is
// idle until Start or Update is called.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, 0, len(errs))
		for _, e := range errs {
			joined = append(joined, e)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(joined...))
	}
	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	s := &Service{config: cfg, logger: options.logger.With("component", "service")}
	if err := s.build(ctx, options); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(ctx context.Context, options *serviceOptions) error {
	cfg := s.config
	logger := options.logger

	metric, err := cfg.Metric()
	if err != nil {
		return err
	}

	if err := s.openStorage(ctx, metric); err != nil {
		return err
	}

	s.provider = options.provider
	if s.provider == nil {
		provider, err := newProvider(cfg.AIProviderConfig())
		if err != nil {
			return fmt.Errorf("create ai provider: %w", err)
		}
		s.provider = provider
	}

	s.index, err = index.New(ctx, s.vectors, s.state, index.WithLogger(logger))
	if err != nil {
		return err
	}

	embedOpts := []embedding.Option{
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithMetric(metric),
		embedding.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Embedding.MaxAttempts,
			BaseDelay:   cfg.Embedding.BaseDelay,
			MaxDelay:    embedding.DefaultMaxDelay,
			Timeout:     cfg.Embedding.Timeout,
		}),
		embedding.WithLogger(logger),
	}
	if cfg.Embedding.Workers > 0 {
		embedOpts = append(embedOpts, embedding.WithWorkers(cfg.Embedding.Workers))
	}
	if s.embedder, err = embedding.New(s.provider.Embedder(), embedOpts...); err != nil {
		return err
	}

	fetchOpts := []fetch.Option{fetch.WithLogger(logger)}
	if options.httpClient != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(options.httpClient))
	}
	fetcher, err := fetch.New(fetch.Config{
		ListingURL:  cfg.Source.ListingURL,
		DocumentURL: cfg.Source.DocumentURL,
		Keyword:     cfg.Source.Keyword,
		Timeout:     cfg.Source.Timeout,
		RateLimit:   cfg.Source.RateLimit,
		MaxBytes:    cfg.Source.MaxBytes,
		UserAgent:   cfg.Source.UserAgent,
	}, fetchOpts...)
	if err != nil {
		return err
	}
	extractor, err := extract.New(extract.WithLogger(logger))
	if err != nil {
		return err
	}
	normalizer, err := normalize.New(normalize.WithLogger(logger))
	if err != nil {
		return err
	}
	chunker, err := chunking.New(cfg.Ingestion.ChunkSize)
	if err != nil {
		return err
	}

	s.publisher = notify.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher, err := notify.NewKafkaPublisher(notify.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, notify.WithLogger(logger))
		if err != nil {
			return err
		}
		s.publisher = publisher
	}

	var store archive.Store = archive.NoopStore{}
	if cfg.Archive.Enabled() {
		minioStore, err := archive.NewMinioArchive(ctx, archive.MinioConfig{
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			Bucket:          cfg.Archive.Bucket,
			UseSSL:          cfg.Archive.UseSSL,
		}, archive.WithLogger(logger))
		if err != nil {
			return err
		}
		store = minioStore
	}

	sink, err := s.recordSink(ctx)
	if err != nil {
		return err
	}

	s.orchestrator, err = ingestion.New(ingestion.Components{
		Fetcher:    fetcher,
		Extractor:  extractor,
		Normalizer: normalizer,
		Chunker:    chunker,
		Embedder:   s.embedder,
		Index:      s.index,
		State:      s.state,
	},
		ingestion.WithPollInterval(cfg.Ingestion.PollInterval),
		ingestion.WithRetireGrace(max(cfg.Ingestion.RetireGrace, 0)),
		ingestion.WithUpsertBatchSize(cfg.Ingestion.UpsertBatchSize),
		ingestion.WithSkipRateAlert(cfg.Ingestion.SkipRateAlert),
		ingestion.WithRecordSink(sink),
		ingestion.WithArchive(store),
		ingestion.WithPublisher(s.publisher),
		ingestion.WithMonitor(options.cycleMonitor),
		ingestion.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	s.retriever, err = search.NewRetriever(s.provider.Embedder(), s.index,
		search.WithTopK(cfg.Search.TopK),
		search.WithMaxTopK(cfg.Search.MaxTopK),
		search.WithMinScore(float32(cfg.Search.MinScore)),
		search.WithEmbedTimeout(cfg.Search.EmbedTimeout),
		search.WithMonitor(options.searchMonitor),
		search.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	s.synthesizer, err = answer.New(s.provider.Generator(),
		answer.WithContextBudget(cfg.Answer.ContextBudget),
		answer.WithSnippetLimit(cfg.Answer.SnippetLimit),
		answer.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Answer.MaxAttempts,
			BaseDelay:   time.Second,
			MaxDelay:    10 * time.Second,
			Timeout:     cfg.Answer.Timeout,
		}),
		answer.WithLogger(logger),
	)
	return err
}

// openStorage opens the Badger backend that always holds pipeline state,
// plus the vector store selected by the storage driver.
func (s *Service) openStorage(ctx context.Context, metric core.Metric) error {
	cfg := s.config.Storage
	backend, err := badger.OpenBackend(cfg.Path, cfg.InMemory)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	s.backend = backend
	s.state = badger.NewStateRepository(backend)

	if cfg.Driver == config.DriverPostgres {
		if s.pg, err = postgres.Open(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		s.vectors, err = postgres.NewVectorStore(ctx, s.pg, postgres.VectorConfig{
			Dimensions: cfg.Dimensions,
			Metric:     metric,
			Lists:      cfg.Lists,
		})
		return err
	}
	s.vectors, err = badger.NewVectorStore(backend, metric)
	return err
}

func (s *Service) recordSink(ctx context.Context) (storage.RecordSink, error) {
	if s.pg != nil {
		return postgres.NewRecordSink(ctx, s.pg)
	}
	return badger.NewRecordSink(s.backend), nil
}

func newProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	case ai.ProviderMock:
		return mock.NewMockProvider(), nil
	default:
		return openai.NewProvider(cfg)
	}
}

// Start sweeps stale namespaces and begins polling the publisher.
func (s *Service) Start(ctx context.Context) error {
	return s.orchestrator.Start(ctx)
}

// Stop halts polling and cancels any in-flight cycle.
func (s *Service) Stop() {
	s.orchestrator.Stop()
}

// TriggerUpdate requests an immediate cycle. It returns false when the
// request was dropped because a cycle is running or already pending.
func (s *Service) TriggerUpdate() bool {
	return s.orchestrator.Trigger()
}

// Update runs one cycle synchronously. force reprocesses the latest
// document even when its fingerprint is unchanged.
func (s *Service) Update(ctx context.Context, force bool) (*ingestion.CycleReport, error) {
	return s.orchestrator.RunOnce(ctx, force)
}

// Query retrieves evidence for question and synthesizes an answer.
// topK and ns are optional. Index storage failures are returned as errors
// wrapping core.ErrIndexUnavailable, never as an empty answer.
func (s *Service) Query(ctx context.Context, question string, topK int, ns core.Namespace) (*core.AnswerResponse, error) {
	result, err := s.retriever.Retrieve(ctx, core.QueryRequest{
		Question:  question,
		TopK:      topK,
		Namespace: ns,
	})
	if err != nil {
		return nil, err
	}
	return s.synthesizer.Synthesize(ctx, question, result)
}

// IndexStatus reports the active namespace, last update and cycle state.
func (s *Service) IndexStatus(ctx context.Context) (core.IndexStatus, error) {
	return s.orchestrator.Status(ctx)
}

// VersionHistory lists the metrics recorded for every processed version.
func (s *Service) VersionHistory(ctx context.Context) ([]*core.VersionMetrics, error) {
	return s.state.ListVersionMetrics(ctx)
}

// Close stops the orchestrator and releases every resource.
func (s *Service) Close() error {
	if s.orchestrator != nil {
		s.orchestrator.Stop()
	}
	var errs []error
	if s.embedder != nil {
		s.embedder.Close()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("error closing publisher", "err", err)
			errs = append(errs, err)
		}
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.vectors != nil {
		if err := s.vectors.Close(); err != nil {
			s.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if s.state != nil {
		s.state.Close()
	}
	if s.pg != nil {
		s.pg.Close()
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
