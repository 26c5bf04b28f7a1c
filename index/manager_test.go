package index

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id, version string, vector ...float32) core.IndexEntry {
	return core.IndexEntry{
		Chunk: core.Chunk{
			ID:          id,
			Text:        "cause: Fall of Roof " + id,
			Provenance:  core.Provenance{Version: version, FirstRow: 0, LastRow: 3},
			RecordCount: 4,
		},
		Vector: vector,
	}
}

func newTestManager(t *testing.T) (*Manager, *badger.MemoryStores) {
	t.Helper()
	stores, err := badger.NewMemoryStores(core.MetricDot)
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	m, err := New(context.Background(), stores.Vectors, stores.State)
	require.NoError(t, err)
	return m, stores
}

func TestManager_QueryWithoutActiveNamespace(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Query(context.Background(), "", []float32{1, 0}, 2)
	assert.ErrorIs(t, err, core.ErrNoActiveNamespace)
}

func TestManager_ActivateAndQuery(t *testing.T) {
	m, stores := newTestManager(t)
	ctx := context.Background()
	ns := core.NewNamespace(1, "aaaa")

	require.NoError(t, m.Upsert(ctx, ns, []core.IndexEntry{
		entry("a", "aaaa", 1, 0),
		entry("b", "aaaa", 0.5, 0.5),
		entry("c", "aaaa", 0, 1),
	}))

	previous, err := m.Activate(ctx, ns, core.PipelineState{Fingerprint: "aaaa"})
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Equal(t, ns, m.Active())

	result, err := m.Query(ctx, "", []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, ns, result.Namespace)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "a", result.Hits[0].Chunk.ID)
	assert.GreaterOrEqual(t, result.Hits[0].Score, result.Hits[1].Score)

	state, err := stores.State.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, ns, state.ActiveNamespace)
	assert.Equal(t, "aaaa", state.Fingerprint)
}

func TestManager_ActiveNamespaceSurvivesRestart(t *testing.T) {
	m, stores := newTestManager(t)
	ctx := context.Background()
	ns := core.NewNamespace(1, "aaaa")
	require.NoError(t, m.Upsert(ctx, ns, []core.IndexEntry{entry("a", "aaaa", 1, 0)}))
	_, err := m.Activate(ctx, ns, core.PipelineState{})
	require.NoError(t, err)

	restored, err := New(ctx, stores.Vectors, stores.State)
	require.NoError(t, err)
	assert.Equal(t, ns, restored.Active())
}

func TestManager_UpsertRefusesActiveNamespace(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	ns := core.NewNamespace(1, "aaaa")
	require.NoError(t, m.Upsert(ctx, ns, []core.IndexEntry{entry("a", "aaaa", 1, 0)}))
	_, err := m.Activate(ctx, ns, core.PipelineState{})
	require.NoError(t, err)

	err = m.Upsert(ctx, ns, []core.IndexEntry{entry("b", "aaaa", 0, 1)})
	assert.ErrorIs(t, err, core.ErrNamespaceActive)
}

func TestManager_UpsertIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	ns := core.NewNamespace(1, "aaaa")
	entries := []core.IndexEntry{entry("a", "aaaa", 1, 0), entry("b", "aaaa", 0, 1)}

	require.NoError(t, m.Upsert(ctx, ns, entries))
	require.NoError(t, m.Upsert(ctx, ns, entries))

	count, err := m.Count(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestManager_UpsertValidatesChunks(t *testing.T) {
	m, _ := newTestManager(t)
	bad := entry("a", "", 1, 0)
	err := m.Upsert(context.Background(), core.NewNamespace(1, "aaaa"), []core.IndexEntry{bad})
	assert.ErrorIs(t, err, core.ErrInvalidChunk)
}

func TestManager_ActivateUnknownNamespace(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Activate(context.Background(), "g000009-missing", core.PipelineState{})
	assert.ErrorIs(t, err, core.ErrNamespaceNotFound)
	assert.Empty(t, m.Active())
}

func TestManager_ActivateReturnsPreviousAndRetire(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	first := core.NewNamespace(1, "aaaa")
	second := core.NewNamespace(2, "bbbb")

	require.NoError(t, m.Upsert(ctx, first, []core.IndexEntry{entry("a", "aaaa", 1, 0)}))
	_, err := m.Activate(ctx, first, core.PipelineState{})
	require.NoError(t, err)

	require.NoError(t, m.Upsert(ctx, second, []core.IndexEntry{entry("b", "bbbb", 0, 1)}))
	previous, err := m.Activate(ctx, second, core.PipelineState{})
	require.NoError(t, err)
	assert.Equal(t, first, previous)

	assert.ErrorIs(t, m.Retire(ctx, second), core.ErrNamespaceActive)
	require.NoError(t, m.Retire(ctx, first))

	namespaces, err := m.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Namespace{second}, namespaces)

	_, err = m.Query(ctx, first, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, core.ErrNamespaceNotFound)
}

func TestManager_QueryRefusesUnactivatedNamespace(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	first := core.NewNamespace(1, "aaaa")
	second := core.NewNamespace(2, "bbbb")

	require.NoError(t, m.Upsert(ctx, first, []core.IndexEntry{entry("a", "aaaa", 1, 0)}))
	_, err := m.Query(ctx, first, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, core.ErrNamespaceNotFound, "a namespace under construction is not queryable")

	_, err = m.Activate(ctx, first, core.PipelineState{})
	require.NoError(t, err)
	result, err := m.Query(ctx, first, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)

	require.NoError(t, m.Upsert(ctx, second, []core.IndexEntry{entry("b", "bbbb", 0, 1)}))
	_, err = m.Query(ctx, second, []float32{0, 1}, 1)
	assert.ErrorIs(t, err, core.ErrNamespaceNotFound)

	_, err = m.Activate(ctx, second, core.PipelineState{})
	require.NoError(t, err)
	result, err = m.Query(ctx, first, []float32{1, 0}, 1)
	require.NoError(t, err, "a superseded namespace stays queryable until retired")
	assert.Equal(t, first, result.Namespace)

	require.NoError(t, m.Retire(ctx, first))
	_, err = m.Query(ctx, first, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, core.ErrNamespaceNotFound)
}

func TestManager_RestartSealsPersistedActiveNamespace(t *testing.T) {
	m, stores := newTestManager(t)
	ctx := context.Background()
	ns := core.NewNamespace(1, "aaaa")
	require.NoError(t, m.Upsert(ctx, ns, []core.IndexEntry{entry("a", "aaaa", 1, 0)}))
	_, err := m.Activate(ctx, ns, core.PipelineState{})
	require.NoError(t, err)

	reopened, err := New(ctx, stores.Vectors, stores.State)
	require.NoError(t, err)
	result, err := reopened.Query(ctx, ns, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)
}

func TestManager_StoreFailureIsUnavailable(t *testing.T) {
	m, stores := newTestManager(t)
	ctx := context.Background()
	ns := core.NewNamespace(1, "aaaa")
	require.NoError(t, m.Upsert(ctx, ns, []core.IndexEntry{entry("a", "aaaa", 1, 0)}))
	_, err := m.Activate(ctx, ns, core.PipelineState{})
	require.NoError(t, err)

	require.NoError(t, stores.Backend.Close())
	_, err = m.Query(ctx, "", []float32{1, 0}, 1)
	assert.ErrorIs(t, err, core.ErrIndexUnavailable)
}

func TestManager_QueriesNeverSeeTornNamespace(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	first := core.NewNamespace(1, "aaaa")
	second := core.NewNamespace(2, "bbbb")

	require.NoError(t, m.Upsert(ctx, first, []core.IndexEntry{
		entry("a1", "aaaa", 1, 0), entry("a2", "aaaa", 1, 0),
	}))
	_, err := m.Activate(ctx, first, core.PipelineState{})
	require.NoError(t, err)
	require.NoError(t, m.Upsert(ctx, second, []core.IndexEntry{
		entry("b1", "bbbb", 1, 0), entry("b2", "bbbb", 1, 0),
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				result, err := m.Query(ctx, "", []float32{1, 0}, 5)
				if !assert.NoError(t, err) {
					return
				}
				if assert.Len(t, result.Hits, 2) {
					version := result.Hits[0].Chunk.Provenance.Version
					assert.Equal(t, version, result.Hits[1].Chunk.Provenance.Version)
				}
			}
		}()
	}
	_, err = m.Activate(ctx, second, core.PipelineState{})
	require.NoError(t, err)
	wg.Wait()
}

func TestRegister(t *testing.T) {
	var r Register
	assert.Empty(t, r.Load())
	assert.Empty(t, r.Swap("g000001-a"))
	assert.Equal(t, core.Namespace("g000001-a"), r.Swap("g000002-b"))
	assert.Equal(t, core.Namespace("g000002-b"), r.Load())
}
