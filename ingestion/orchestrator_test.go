package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/sanket/ai/mock"
	"github.com/poiesic/sanket/chunking"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/embedding"
	"github.com/poiesic/sanket/extract"
	"github.com/poiesic/sanket/index"
	"github.com/poiesic/sanket/normalize"
	"github.com/poiesic/sanket/notify"
	"github.com/poiesic/sanket/retry"
	"github.com/poiesic/sanket/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSource serves one document and reports it unchanged when the
// fingerprint matches the persisted one.
type testSource struct {
	mu    sync.Mutex
	doc   *core.SourceDocument
	err   error
	calls int
	block chan struct{}
}

func (s *testSource) set(doc *core.SourceDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}

func (s *testSource) CheckForUpdate(ctx context.Context, last *core.PipelineState) (*core.SourceDocument, error) {
	s.mu.Lock()
	s.calls++
	doc, err, block := s.doc, s.err, s.block
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if doc == nil || (last != nil && last.Fingerprint == doc.Fingerprint) {
		return nil, nil
	}
	return doc, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingMonitor struct {
	mu       sync.Mutex
	states   []core.State
	alerts   []core.SkipStats
	progress []int
	reports  []*CycleReport
}

func (m *recordingMonitor) StateChanged(_, to core.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, to)
}

func (m *recordingMonitor) EmbeddingProgress(done, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, done)
}

func (m *recordingMonitor) SkipRateAlert(_ string, stats core.SkipStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, stats)
}

func (m *recordingMonitor) CycleFinished(report *CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
}

// failingIndex fails every upsert after the first.
type failingIndex struct {
	*index.Manager
	upserts atomic.Int32
}

func (f *failingIndex) Upsert(ctx context.Context, ns core.Namespace, entries []core.IndexEntry) error {
	if f.upserts.Add(1) > 1 {
		return fmt.Errorf("%w: disk full", core.ErrIndexUnavailable)
	}
	return f.Manager.Upsert(ctx, ns, entries)
}

// slowRetireIndex holds every Retire until release is closed.
type slowRetireIndex struct {
	*index.Manager
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowRetireIndex) Retire(ctx context.Context, ns core.Namespace) error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Manager.Retire(ctx, ns)
}

// csvDocument builds a CSV bulletin with good rows followed by bad ones.
func csvDocument(good, bad int, tag string) *core.SourceDocument {
	var b strings.Builder
	b.WriteString("Date,State,District,Mine,Cause,Killed,Description\n")
	for i := range good {
		fmt.Fprintf(&b, "05-01-2024,Jharkhand,Dhanbad,Colliery %d,Fall of Roof,1,roof collapse in gallery %d %s\n", i, i, tag)
	}
	for i := range bad {
		fmt.Fprintf(&b, "05-01-2024,Atlantis,Nowhere,Mine %d,Other,1,unknown state row %d\n", i, i)
	}
	body := []byte(b.String())
	return &core.SourceDocument{
		URL:         "https://dgms.example/sanket_" + tag + ".csv",
		Name:        "sanket_" + tag + ".csv",
		Fingerprint: core.Fingerprint(body),
		ContentType: "text/csv",
		FetchedAt:   time.Now(),
		Body:        body,
	}
}

type harness struct {
	stores    *badger.MemoryStores
	index     *index.Manager
	generator *embedding.Generator
	embedder  *mock.MockEmbedder
	failEmbed *atomic.Bool
	source    *testSource
	publisher *recordingPublisher
	monitor   *recordingMonitor
	orch      *Orchestrator
}

func newHarness(t *testing.T, wrapIndex func(*index.Manager) Index, opts ...Option) *harness {
	t.Helper()
	ctx := context.Background()

	stores, err := badger.NewMemoryStores(core.MetricCosine)
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	manager, err := index.New(ctx, stores.Vectors, stores.State)
	require.NoError(t, err)

	failEmbed := &atomic.Bool{}
	embedder := mock.NewMockEmbedder()
	embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if failEmbed.Load() {
			return nil, errors.New("embedding service unavailable")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.BagOfWordsVector(text, 64)
		}
		return out, nil
	})
	generator, err := embedding.New(embedder,
		embedding.WithMetric(core.MetricCosine),
		embedding.WithRetryPolicy(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	t.Cleanup(generator.Close)

	extractor, err := extract.New()
	require.NoError(t, err)
	normalizer, err := normalize.New()
	require.NoError(t, err)
	chunker, err := chunking.New(4)
	require.NoError(t, err)

	var idx Index = manager
	if wrapIndex != nil {
		idx = wrapIndex(manager)
	}

	h := &harness{
		stores:    stores,
		index:     manager,
		generator: generator,
		embedder:  embedder,
		failEmbed: failEmbed,
		source:    &testSource{},
		publisher: &recordingPublisher{},
		monitor:   &recordingMonitor{},
	}
	base := []Option{
		WithRecordSink(stores.Records),
		WithPublisher(h.publisher),
		WithMonitor(h.monitor),
		WithRetireGrace(0),
		WithFetchPolicy(retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}),
	}
	h.orch, err = New(Components{
		Fetcher:    h.source,
		Extractor:  extractor,
		Normalizer: normalizer,
		Chunker:    chunker,
		Embedder:   generator,
		Index:      idx,
		State:      stores.State,
	}, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(h.orch.Stop)
	return h
}

func (h *harness) namespaces(t *testing.T) []core.Namespace {
	t.Helper()
	namespaces, err := h.index.Namespaces(context.Background())
	require.NoError(t, err)
	return namespaces
}

func TestRunOnce_ActivatesNewVersion(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	doc := csvDocument(10, 0, "jan")
	h.source.set(doc)

	report, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeActivated, report.Outcome)
	assert.Equal(t, doc.Version(), report.Version)
	assert.Equal(t, 10, report.Rows)
	assert.Equal(t, 10, report.Records)
	assert.Equal(t, 3, report.Chunks)
	assert.Empty(t, report.Previous)
	assert.Equal(t, report.Namespace, h.index.Active())

	count, err := h.index.Count(ctx, report.Namespace)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	question, err := h.generator.EmbedOne(ctx, "roof collapse")
	require.NoError(t, err)
	result, err := h.index.Query(ctx, "", question, 2)
	require.NoError(t, err)
	require.LessOrEqual(t, len(result.Hits), 2)
	require.NotEmpty(t, result.Hits)
	for i := 1; i < len(result.Hits); i++ {
		assert.GreaterOrEqual(t, result.Hits[i-1].Score, result.Hits[i].Score)
	}

	records, err := h.stores.Records.ReadRecords(ctx, doc.Version())
	require.NoError(t, err)
	assert.Len(t, records, 10)

	metrics, err := h.stores.State.GetVersionMetrics(ctx, doc.Version())
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.Equal(t, core.OutcomeActivated, metrics.Outcome)
	assert.Equal(t, report.Namespace, metrics.Namespace)

	status, err := h.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Namespace, status.ActiveNamespace)
	assert.Equal(t, core.StateIdle, status.State)
	assert.Equal(t, doc.Version(), status.LastVersion)
	assert.False(t, status.LastUpdateTime.IsZero())
	assert.Zero(t, status.LastSkipRate)

	assert.Equal(t, []notify.EventType{notify.EventIndexActivated}, h.publisher.types())
	assert.Equal(t, []core.State{
		core.StateFetching, core.StateExtracting, core.StateNormalizing, core.StateChunking,
		core.StateEmbedding, core.StateIndexing, core.StateActivating, core.StateIdle,
	}, h.monitor.states)
	assert.Equal(t, []int{3}, h.monitor.progress)
}

func TestRunOnce_UnchangedVersionIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.source.set(csvDocument(10, 0, "jan"))

	first, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	calls := h.embedder.CallCount()

	second, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, second.Outcome)
	assert.Equal(t, first.Namespace, h.index.Active())
	assert.Equal(t, calls, h.embedder.CallCount())
	assert.Equal(t, []core.Namespace{first.Namespace}, h.namespaces(t))
}

func TestRunOnce_ForceReprocesses(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.source.set(csvDocument(6, 0, "jan"))

	first, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)

	second, err := h.orch.RunOnce(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeActivated, second.Outcome)
	assert.NotEqual(t, first.Namespace, second.Namespace)
	assert.Equal(t, first.Namespace, second.Previous)
	assert.Equal(t, []core.Namespace{second.Namespace}, h.namespaces(t))
}

func TestRunOnce_EmbeddingFailureFailsClosed(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.source.set(csvDocument(8, 0, "jan"))
	first, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)

	next := csvDocument(8, 0, "feb")
	h.source.set(next)
	h.failEmbed.Store(true)

	report, err := h.orch.RunOnce(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, first.Namespace, h.index.Active())
	assert.Equal(t, []core.Namespace{first.Namespace}, h.namespaces(t))

	state, err := h.stores.State.LoadState(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, next.Fingerprint, state.Fingerprint)

	status, err := h.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateIdle, status.State)
	assert.NotEmpty(t, status.LastError)
	assert.Contains(t, h.monitor.states, core.StateError)

	// The version was not marked, so the next poll retries it.
	h.failEmbed.Store(false)
	retried, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeActivated, retried.Outcome)
	assert.Equal(t, next.Version(), retried.Version)
}

func TestRunOnce_ExtractionFailureSkipsVersion(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	body := []byte{0x00, 0x01, 0x02, 0xff, 0xfe}
	doc := &core.SourceDocument{URL: "https://dgms.example/blob.bin", Fingerprint: core.Fingerprint(body), Body: body}
	h.source.set(doc)

	report, err := h.orch.RunOnce(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExtraction)
	assert.Equal(t, core.OutcomeSkipped, report.Outcome)
	assert.Empty(t, h.index.Active())

	metrics, err := h.stores.State.GetVersionMetrics(ctx, doc.Version())
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.Equal(t, core.OutcomeSkipped, metrics.Outcome)
	assert.NotEmpty(t, metrics.Error)

	again, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, again.Outcome)
	assert.Equal(t, []notify.EventType{notify.EventVersionSkipped}, h.publisher.types())
}

func TestRunOnce_NoUsableRecordsSkipsVersion(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.source.set(csvDocument(5, 0, "jan"))
	first, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)

	h.source.set(csvDocument(0, 4, "feb"))
	report, err := h.orch.RunOnce(ctx, false)
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Equal(t, core.OutcomeSkipped, report.Outcome)
	assert.Equal(t, first.Namespace, h.index.Active())

	state, err := h.stores.State.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Namespace, state.ActiveNamespace)
	assert.Equal(t, 1.0, state.LastSkipRate)
	require.Len(t, h.monitor.alerts, 1)
}

func TestRunOnce_SkipRate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.source.set(csvDocument(85, 15, "jan"))

	report, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 100, report.Rows)
	assert.Equal(t, 85, report.Records)
	assert.InDelta(t, 0.15, report.Stats.Rate(), 1e-9)
	assert.Empty(t, h.monitor.alerts)

	status, err := h.orch.Status(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, status.LastSkipRate, 1e-9)

	h.source.set(csvDocument(7, 3, "feb"))
	report, err = h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, report.Stats.Rate(), 1e-9)
	require.Len(t, h.monitor.alerts, 1)
	assert.Equal(t, 3, h.monitor.alerts[0].Skipped)
}

func TestRunOnce_IndexFailureDiscardsPartialNamespace(t *testing.T) {
	h := newHarness(t, func(m *index.Manager) Index { return &failingIndex{Manager: m} }, WithUpsertBatchSize(1))
	ctx := context.Background()
	h.source.set(csvDocument(10, 0, "jan"))

	report, err := h.orch.RunOnce(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Empty(t, h.index.Active())
	assert.Empty(t, h.namespaces(t))
	assert.Equal(t, []notify.EventType{notify.EventCycleFailed}, h.publisher.types())
}

func TestRunOnce_RetiresPreviousAfterGrace(t *testing.T) {
	h := newHarness(t, nil, WithRetireGrace(300*time.Millisecond))
	ctx := context.Background()
	h.source.set(csvDocument(4, 0, "jan"))
	first, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)

	h.source.set(csvDocument(4, 0, "feb"))
	second, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first.Namespace, second.Previous)
	assert.ElementsMatch(t, []core.Namespace{first.Namespace, second.Namespace}, h.namespaces(t))

	assert.Eventually(t, func() bool {
		namespaces, err := h.index.Namespaces(ctx)
		return err == nil && len(namespaces) == 1 && namespaces[0] == second.Namespace
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunOnce_SweepsNamespacesLeftByEarlierRuns(t *testing.T) {
	h := newHarness(t, nil, WithRetireGrace(time.Hour))
	ctx := context.Background()
	h.source.set(csvDocument(4, 0, "jan"))
	first, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)

	h.source.set(csvDocument(4, 0, "feb"))
	second, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first.Namespace, second.Previous)

	// Still inside its grace period.
	_, err = h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Namespace{first.Namespace, second.Namespace}, h.namespaces(t))

	// Shutdown abandons the timer; the next run picks the namespace up.
	h.orch.Stop()
	report, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, report.Outcome)
	assert.Equal(t, []core.Namespace{second.Namespace}, h.namespaces(t))
	assert.Equal(t, second.Namespace, h.index.Active())
}

func TestStop_WaitsForRetirementInFlight(t *testing.T) {
	slow := &slowRetireIndex{entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarness(t, func(m *index.Manager) Index {
		slow.Manager = m
		return slow
	}, WithRetireGrace(10*time.Millisecond))
	ctx := context.Background()
	h.source.set(csvDocument(4, 0, "jan"))
	_, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)
	h.source.set(csvDocument(4, 0, "feb"))
	second, err := h.orch.RunOnce(ctx, false)
	require.NoError(t, err)

	select {
	case <-slow.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("retirement never started")
	}

	stopped := make(chan struct{})
	go func() {
		h.orch.Stop()
		close(stopped)
	}()
	assert.Never(t, func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 100*time.Millisecond, 10*time.Millisecond)

	close(slow.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after retirement finished")
	}
	assert.Equal(t, []core.Namespace{second.Namespace}, h.namespaces(t))
	assert.Contains(t, h.publisher.types(), notify.EventNamespaceRetired)
}

func TestRunOnce_RejectsConcurrentCycle(t *testing.T) {
	h := newHarness(t, nil)
	h.source.set(csvDocument(4, 0, "jan"))
	release := make(chan struct{})
	h.source.block = release

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.RunOnce(context.Background(), false)
		done <- err
	}()
	require.Eventually(t, func() bool { return h.orch.State() == core.StateFetching }, time.Second, time.Millisecond)

	_, err := h.orch.RunOnce(context.Background(), false)
	assert.ErrorIs(t, err, ErrCycleInProgress)
	assert.False(t, h.orch.Trigger())

	close(release)
	require.NoError(t, <-done)
}

func TestStart_SweepsAndPolls(t *testing.T) {
	h := newHarness(t, nil, WithPollInterval(time.Hour))
	ctx := context.Background()

	stale := core.NewNamespace(99, "stale")
	require.NoError(t, h.index.Upsert(ctx, stale, []core.IndexEntry{{
		Chunk: core.Chunk{
			ID:          "x",
			Text:        "partial",
			Provenance:  core.Provenance{Version: "stale"},
			RecordCount: 1,
		},
		Vector: []float32{1, 0},
	}}))

	doc := csvDocument(4, 0, "jan")
	h.source.set(doc)
	require.NoError(t, h.orch.Start(ctx))
	assert.ErrorIs(t, h.orch.Start(ctx), ErrAlreadyStarted)

	require.Eventually(t, func() bool { return h.index.Active() != "" }, 2*time.Second, 5*time.Millisecond)
	assert.NotContains(t, h.namespaces(t), stale)

	next := csvDocument(4, 0, "feb")
	h.source.set(next)
	require.Eventually(t, h.orch.Trigger, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		metrics, err := h.stores.State.GetVersionMetrics(ctx, next.Version())
		return err == nil && metrics != nil
	}, 2*time.Second, 5*time.Millisecond)

	h.orch.Stop()
	assert.False(t, h.orch.Trigger())
}

func TestStop_CancelsInFlightCycle(t *testing.T) {
	h := newHarness(t, nil, WithPollInterval(time.Hour))
	entered := make(chan struct{})
	var once sync.Once
	h.embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return nil, ctx.Err()
	})
	h.source.set(csvDocument(4, 0, "jan"))

	require.NoError(t, h.orch.Start(context.Background()))
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle never reached embedding")
	}

	h.orch.Stop()
	assert.Equal(t, core.StateIdle, h.orch.State())
	assert.Empty(t, h.index.Active())
	assert.Empty(t, h.namespaces(t))

	h.monitor.mu.Lock()
	defer h.monitor.mu.Unlock()
	require.Len(t, h.monitor.reports, 1)
	assert.ErrorIs(t, h.monitor.reports[0].Err, context.Canceled)
}

func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(Components{})
	assert.ErrorIs(t, err, ErrFetcherRequired)
}
