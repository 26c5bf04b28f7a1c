package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/sanket/ai/mock"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/index"
	"github.com/poiesic/sanket/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIndex returns canned hits and records the k it was asked for.
type stubIndex struct {
	hits   []core.Hit
	err    error
	lastK  int
	lastNS core.Namespace
}

func (s *stubIndex) Query(_ context.Context, ns core.Namespace, _ []float32, k int) (*core.RetrievalResult, error) {
	s.lastK = k
	s.lastNS = ns
	if s.err != nil {
		return nil, s.err
	}
	if ns == "" {
		ns = "g000001-active"
	}
	hits := append([]core.Hit(nil), s.hits...)
	return &core.RetrievalResult{Namespace: ns, Hits: hits}, nil
}

func (s *stubIndex) Metric() core.Metric { return core.MetricDot }

func hit(id string, score float32, text string) core.Hit {
	return core.Hit{Chunk: core.Chunk{ID: id, Text: text}, Score: score}
}

type recordingMonitor struct {
	noopMonitor
	keywords []string
	below    []string
	verbatim []string
	finished *core.RetrievalResult
}

func (m *recordingMonitor) Start(_ string, keywords []string) { m.keywords = keywords }
func (m *recordingMonitor) BelowFloor(h core.Hit)             { m.below = append(m.below, h.Chunk.ID) }
func (m *recordingMonitor) VerbatimHit(h core.Hit)            { m.verbatim = append(m.verbatim, h.Chunk.ID) }
func (m *recordingMonitor) Finish(r *core.RetrievalResult)    { m.finished = r }

func TestRetrieve_AgainstIndex(t *testing.T) {
	ctx := context.Background()
	stores, err := badger.NewMemoryStores(core.MetricCosine)
	require.NoError(t, err)
	defer stores.Close()
	manager, err := index.New(ctx, stores.Vectors, stores.State)
	require.NoError(t, err)

	texts := []string{
		"cause: Fall of Roof\ndescription: roof collapse in the gallery",
		"cause: Explosion\ndescription: methane explosion at the face",
		"cause: Machinery Accident\ndescription: caught in the conveyor belt",
	}
	entries := make([]core.IndexEntry, len(texts))
	for i, text := range texts {
		entries[i] = core.IndexEntry{
			Chunk: core.Chunk{
				ID:          fmt.Sprintf("c%d", i),
				Text:        text,
				Provenance:  core.Provenance{Version: "v1", FirstRow: i, LastRow: i},
				RecordCount: 1,
			},
			Vector: mock.BagOfWordsVector(text, 128),
		}
	}
	ns := core.NewNamespace(1, "v1")
	require.NoError(t, manager.Upsert(ctx, ns, entries))
	_, err = manager.Activate(ctx, ns, core.PipelineState{})
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(_ context.Context, text string) ([]float32, error) {
		return mock.BagOfWordsVector(text, 128), nil
	})
	monitor := &recordingMonitor{}
	r, err := NewRetriever(embedder, manager, WithMonitor(monitor))
	require.NoError(t, err)

	result, err := r.Retrieve(ctx, core.QueryRequest{Question: "roof collapse", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, ns, result.Namespace)
	require.NotEmpty(t, result.Hits)
	assert.LessOrEqual(t, len(result.Hits), 2)
	assert.Equal(t, "c0", result.Hits[0].Chunk.ID)
	for i := 1; i < len(result.Hits); i++ {
		assert.GreaterOrEqual(t, result.Hits[i-1].Score, result.Hits[i].Score)
	}
	assert.Equal(t, []string{"roof", "collapse"}, monitor.keywords)
	assert.Equal(t, []string{"c0"}, monitor.verbatim)
	assert.Same(t, result, monitor.finished)

	again, err := r.Retrieve(ctx, core.QueryRequest{Question: "roof collapse", TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, result.Hits, again.Hits)
}

func TestRetrieve_FloorAndDedup(t *testing.T) {
	idx := &stubIndex{hits: []core.Hit{
		hit("a", 0.9, "roof fall"),
		hit("a", 0.9, "roof fall"),
		hit("b", 0.5, "explosion"),
		hit("c", 0.1, "conveyor"),
	}}
	monitor := &recordingMonitor{}
	r, err := NewRetriever(mock.NewMockEmbedder(), idx, WithMinScore(0.3), WithMonitor(monitor))
	require.NoError(t, err)

	result, err := r.Retrieve(context.Background(), core.QueryRequest{Question: "roof"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "a", result.Hits[0].Chunk.ID)
	assert.Equal(t, "b", result.Hits[1].Chunk.ID)
	assert.Equal(t, []string{"c"}, monitor.below)
}

func TestRetrieve_TopK(t *testing.T) {
	idx := &stubIndex{}
	r, err := NewRetriever(mock.NewMockEmbedder(), idx, WithMaxTopK(10))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.Retrieve(ctx, core.QueryRequest{Question: "fatalities in Odisha"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, idx.lastK)

	_, err = r.Retrieve(ctx, core.QueryRequest{Question: "fatalities in Odisha", TopK: 500})
	require.NoError(t, err)
	assert.Equal(t, 10, idx.lastK)

	_, err = r.Retrieve(ctx, core.QueryRequest{Question: "fatalities", Namespace: "g000003-x"})
	require.NoError(t, err)
	assert.Equal(t, core.Namespace("g000003-x"), idx.lastNS)
}

func TestRetrieve_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty question", func(t *testing.T) {
		r, err := NewRetriever(mock.NewMockEmbedder(), &stubIndex{})
		require.NoError(t, err)
		_, err = r.Retrieve(ctx, core.QueryRequest{Question: "   "})
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	})

	t.Run("index unavailable is an error, not an empty result", func(t *testing.T) {
		idx := &stubIndex{err: fmt.Errorf("%w: connection refused", core.ErrIndexUnavailable)}
		r, err := NewRetriever(mock.NewMockEmbedder(), idx)
		require.NoError(t, err)
		result, err := r.Retrieve(ctx, core.QueryRequest{Question: "roof"})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, core.ErrIndexUnavailable)
	})

	t.Run("no active namespace", func(t *testing.T) {
		r, err := NewRetriever(mock.NewMockEmbedder(), &stubIndex{err: core.ErrNoActiveNamespace})
		require.NoError(t, err)
		_, err = r.Retrieve(ctx, core.QueryRequest{Question: "roof"})
		assert.ErrorIs(t, err, core.ErrNoActiveNamespace)
	})

	t.Run("embedding failure after retries", func(t *testing.T) {
		embedder := mock.NewMockEmbedder().WithEmbedTextFunc(func(context.Context, string) ([]float32, error) {
			return nil, errors.New("model not loaded")
		})
		r, err := NewRetriever(embedder, &stubIndex{}, WithEmbedRetries(2))
		require.NoError(t, err)
		_, err = r.Retrieve(ctx, core.QueryRequest{Question: "roof"})
		assert.ErrorIs(t, err, core.ErrEmbedding)
		assert.Equal(t, 2, embedder.CallCount())
	})
}

func TestNewRetriever_Validation(t *testing.T) {
	_, err := NewRetriever(nil, &stubIndex{})
	assert.Equal(t, ErrEmbedderRequired, err)

	_, err = NewRetriever(mock.NewMockEmbedder(), nil)
	assert.Equal(t, ErrIndexRequired, err)

	_, err = NewRetriever(mock.NewMockEmbedder(), &stubIndex{}, WithTopK(0))
	assert.Error(t, err)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"fatalities", "jharkhand", "2021"},
		keywords("How many fatalities were there in Jharkhand in 2021?"))
	assert.Empty(t, keywords("what is the"))
	assert.True(t, containsAll("state: Jharkhand\nyear: 2021", []string{"jharkhand", "2021"}))
	assert.False(t, containsAll("state: Odisha", []string{"jharkhand"}))
	assert.False(t, containsAll("anything", nil))
}
