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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/sanket/archive"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/notify"
	"github.com/poiesic/sanket/retry"
	"github.com/poiesic/sanket/storage"
)

const (
	DefaultPollInterval    = 6 * time.Hour
	DefaultRetireGrace     = 5 * time.Minute
	DefaultUpsertBatchSize = 100
	DefaultSkipRateAlert   = 0.2

	// cleanupTimeout bounds work that must finish after the cycle context ends.
	cleanupTimeout = 30 * time.Second
)

// OutcomeUnchanged and OutcomeFailed complete the core outcomes for cycles
// that do not produce version metrics.
const (
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Components are the stages an Orchestrator drives. All are required.
type Components struct {
	Fetcher    DocumentSource
	Extractor  Extractor
	Normalizer Normalizer
	Chunker    Chunker
	Embedder   Embedder
	Index      Index
	State      storage.StateRepository
}

func (c Components) validate() error {
	switch {
	case c.Fetcher == nil:
		return ErrFetcherRequired
	case c.Extractor == nil:
		return ErrExtractorRequired
	case c.Normalizer == nil:
		return ErrNormalizerRequired
	case c.Chunker == nil:
		return ErrChunkerRequired
	case c.Embedder == nil:
		return ErrEmbedderRequired
	case c.Index == nil:
		return ErrIndexRequired
	case c.State == nil:
		return ErrStateRepositoryRequired
	}
	return nil
}

// CycleReport summarizes one update cycle.
type CycleReport struct {
	Version    string
	SourceURL  string
	Outcome    string
	Namespace  core.Namespace
	Previous   core.Namespace
	Archived   string
	Rows       int
	Records    int
	Chunks     int
	Stats      core.SkipStats
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Orchestrator runs update cycles, one at a time.
type Orchestrator struct {
	fetcher    DocumentSource
	extractor  Extractor
	normalizer Normalizer
	chunker    Chunker
	embedder   Embedder
	index      Index
	repo       storage.StateRepository

	sink      storage.RecordSink
	archive   archive.Store
	publisher notify.Publisher
	monitor   CycleMonitor
	logger    *slog.Logger
	now       func() time.Time

	pollInterval    time.Duration
	retireGrace     time.Duration
	upsertBatchSize int
	skipRateAlert   float64
	fetchPolicy     retry.Policy

	state     atomic.Int32
	busy      atomic.Bool
	triggerCh chan struct{}

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	retiring    sync.WaitGroup
	retireTimer map[core.Namespace]*time.Timer
	lastVersion string
	lastError   string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPollInterval sets how often the publisher is polled.
// Default is 6 hours.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %s", d)
		}
		o.pollInterval = d
		return nil
	}
}

// WithRetireGrace sets how long a replaced namespace keeps serving
// in-flight queries before it is deleted. Zero retires immediately.
// Default is 5 minutes.
func WithRetireGrace(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d < 0 {
			return fmt.Errorf("retire grace must not be negative, got %s", d)
		}
		o.retireGrace = d
		return nil
	}
}

// WithUpsertBatchSize sets how many entries are written per index upsert.
// Default is 100.
func WithUpsertBatchSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			return fmt.Errorf("upsert batch size must be positive, got %d", size)
		}
		o.upsertBatchSize = size
		return nil
	}
}

// WithSkipRateAlert sets the skip rate above which an alert is raised.
// Default is 0.2.
func WithSkipRateAlert(threshold float64) Option {
	return func(o *Orchestrator) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("skip rate alert must be between 0 and 1, got %v", threshold)
		}
		o.skipRateAlert = threshold
		return nil
	}
}

// WithFetchPolicy sets how transient fetch failures are retried.
func WithFetchPolicy(policy retry.Policy) Option {
	return func(o *Orchestrator) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		o.fetchPolicy = policy
		return nil
	}
}

// WithRecordSink sets where normalized records are written.
func WithRecordSink(sink storage.RecordSink) Option {
	return func(o *Orchestrator) error {
		o.sink = sink
		return nil
	}
}

// WithArchive sets where fetched documents are archived.
func WithArchive(store archive.Store) Option {
	return func(o *Orchestrator) error {
		if store == nil {
			store = archive.NoopStore{}
		}
		o.archive = store
		return nil
	}
}

// WithPublisher sets where lifecycle events are published.
func WithPublisher(publisher notify.Publisher) Option {
	return func(o *Orchestrator) error {
		if publisher == nil {
			publisher = notify.NoopPublisher{}
		}
		o.publisher = publisher
		return nil
	}
}

// WithMonitor registers cycle hooks.
func WithMonitor(monitor CycleMonitor) Option {
	return func(o *Orchestrator) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		o.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// New creates an Orchestrator.
func New(components Components, opts ...Option) (*Orchestrator, error) {
	if err := components.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		fetcher:         components.Fetcher,
		extractor:       components.Extractor,
		normalizer:      components.Normalizer,
		chunker:         components.Chunker,
		embedder:        components.Embedder,
		index:           components.Index,
		repo:            components.State,
		archive:         archive.NoopStore{},
		publisher:       notify.NoopPublisher{},
		monitor:         &noopMonitor{},
		logger:          slog.Default(),
		now:             time.Now,
		pollInterval:    DefaultPollInterval,
		retireGrace:     DefaultRetireGrace,
		upsertBatchSize: DefaultUpsertBatchSize,
		skipRateAlert:   DefaultSkipRateAlert,
		fetchPolicy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		triggerCh:   make(chan struct{}, 1),
		retireTimer: make(map[core.Namespace]*time.Timer),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "orchestrator")
	return o, nil
}

// Start sweeps stale namespaces and launches the poll loop. The first poll
// runs immediately. The loop stops when ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.cancel != nil {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	if err := o.Sweep(ctx); err != nil {
		o.logger.Warn("namespace sweep failed", "err", err)
	}

	o.wg.Add(1)
	go o.run(loopCtx)
	o.logger.Info("orchestrator started", "pollInterval", o.pollInterval, "retireGrace", o.retireGrace)
	return nil
}

// Stop cancels any in-flight cycle and waits for the poll loop and any
// retirement already under way to finish. Pending retirements are
// abandoned and picked up by the next sweep.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	for ns, timer := range o.retireTimer {
		if timer.Stop() {
			o.retiring.Done()
		}
		delete(o.retireTimer, ns)
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
		o.wg.Wait()
	}
	o.retiring.Wait()
	if cancel != nil {
		o.logger.Info("orchestrator stopped")
	}
}

// Trigger asks the poll loop to run a cycle now. It returns false when the
// request is dropped: the loop is not running, a cycle is in flight, or a
// trigger is already pending.
func (o *Orchestrator) Trigger() bool {
	if o.busy.Load() {
		o.logger.Debug("trigger dropped, cycle in flight", "state", o.State())
		return false
	}
	o.mu.Lock()
	running := o.cancel != nil
	o.mu.Unlock()
	if !running {
		return false
	}
	select {
	case o.triggerCh <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce sweeps stale namespaces and runs one cycle synchronously. With
// force the persisted fingerprint is ignored and the latest document is
// reprocessed.
func (o *Orchestrator) RunOnce(ctx context.Context, force bool) (*CycleReport, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer o.busy.Store(false)

	if err := o.Sweep(ctx); err != nil {
		o.logger.Warn("namespace sweep failed", "err", err)
	}

	report := o.cycle(ctx, force)
	return report, report.Err
}

// State returns the current cycle state.
func (o *Orchestrator) State() core.State {
	return core.State(o.state.Load())
}

// Status returns the externally visible index status.
func (o *Orchestrator) Status(ctx context.Context) (core.IndexStatus, error) {
	status := core.IndexStatus{
		ActiveNamespace: o.index.Active(),
		State:           o.State(),
	}
	o.mu.Lock()
	status.LastVersion = o.lastVersion
	status.LastError = o.lastError
	o.mu.Unlock()

	persisted, err := o.repo.LoadState(ctx)
	if err != nil {
		return status, fmt.Errorf("load pipeline state: %w", err)
	}
	if persisted != nil {
		status.LastUpdateTime = persisted.LastUpdate
		status.LastSkipRate = persisted.LastSkipRate
	}
	return status, nil
}

// Sweep retires every namespace other than the active one and those still
// inside their grace period. It removes partial namespaces left by an
// interrupted cycle and retirements that were pending at shutdown.
func (o *Orchestrator) Sweep(ctx context.Context) error {
	namespaces, err := o.index.Namespaces(ctx)
	if err != nil {
		return err
	}
	active := o.index.Active()
	var errs []error
	for _, ns := range namespaces {
		if ns == active || o.retirePending(ns) {
			continue
		}
		if err := o.index.Retire(ctx, ns); err != nil {
			errs = append(errs, err)
			continue
		}
		o.logger.Info("swept stale namespace", "namespace", ns)
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	o.runScheduled(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runScheduled(ctx)
		case <-o.triggerCh:
			o.runScheduled(ctx)
		}
	}
}

func (o *Orchestrator) runScheduled(ctx context.Context) {
	if !o.busy.CompareAndSwap(false, true) {
		return
	}
	defer o.busy.Store(false)
	o.cycle(ctx, false)
}
