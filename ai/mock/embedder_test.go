package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestBagOfWordsVector(t *testing.T) {
	roof := BagOfWordsVector("Fall of roof in underground coal mine", DefaultDimensions)
	query := BagOfWordsVector("roof collapse", DefaultDimensions)
	electric := BagOfWordsVector("Electrocution from a live cable", DefaultDimensions)

	assert.Len(t, roof, DefaultDimensions)
	assert.InDelta(t, 1.0, dot(roof, roof), 1e-5)
	assert.Greater(t, dot(query, roof), dot(query, electric))

	zero := BagOfWordsVector("", DefaultDimensions)
	assert.Equal(t, float32(0), dot(zero, zero))
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	a, err := m.EmbedText(ctx, "roof fall")
	require.NoError(t, err)
	batch, err := m.EmbedTexts(ctx, []string{"roof fall", "blasting"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, a, batch[0])
	assert.Equal(t, 2, m.CallCount())

	failing := errors.New("boom")
	m.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, failing
	})
	_, err = m.EmbedTexts(ctx, []string{"x"})
	assert.ErrorIs(t, err, failing)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockGenerator(t *testing.T) {
	g := NewMockGenerator()
	answer, err := g.Generate(context.Background(), "[Source: a]\nx\n\n[Source: b]\ny", "How many?")
	require.NoError(t, err)
	assert.Equal(t, `Answer to "How many?" from 2 sources.`, answer)
	assert.Equal(t, 1, g.CallCount())
	assert.Contains(t, g.LastContext(), "[Source: b]")
}
