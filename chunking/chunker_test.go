package chunking

import (
	"fmt"
	"testing"

	"github.com/poiesic/sanket/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(n int) []core.AccidentRecord {
	out := make([]core.AccidentRecord, n)
	for i := range out {
		out[i] = core.AccidentRecord{
			State:       "Jharkhand",
			District:    "Dhanbad",
			Year:        2020 + i%3,
			Cause:       "Fall of Roof",
			Fatalities:  1,
			Description: fmt.Sprintf("roof collapse in gallery %d", i),
			Provenance:  core.Provenance{Version: "abc", FirstRow: i, LastRow: i},
		}
	}
	return out
}

func TestChunk_TenRecordsSizeFour(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	chunks := c.Chunk(records(10))
	require.Len(t, chunks, 3)
	assert.Equal(t, 4, chunks[0].RecordCount)
	assert.Equal(t, 4, chunks[1].RecordCount)
	assert.Equal(t, 2, chunks[2].RecordCount)

	assert.Equal(t, core.Provenance{Version: "abc", FirstRow: 8, LastRow: 9}, chunks[2].Provenance)
	assert.Equal(t, 2, chunks[2].Seq)
}

func TestChunk_BoundaryLaw(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5, 7, 16} {
		for _, length := range []int{0, 1, 4, 5, 6, 23} {
			t.Run(fmt.Sprintf("N=%d/L=%d", size, length), func(t *testing.T) {
				c, err := New(size)
				require.NoError(t, err)

				input := records(length)
				chunks := c.Chunk(input)
				assert.Len(t, chunks, (length+size-1)/size)

				var rebuilt []core.AccidentRecord
				for _, ch := range chunks {
					assert.LessOrEqual(t, ch.RecordCount, size)
					assert.Len(t, ch.Records, ch.RecordCount)
					rebuilt = append(rebuilt, ch.Records...)
				}
				if length == 0 {
					assert.Empty(t, rebuilt)
				} else {
					assert.Equal(t, input, rebuilt)
				}
			})
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)

	a := c.Chunk(records(7))
	b := c.Chunk(records(7))
	assert.Equal(t, a, b)

	ids := make(map[string]bool)
	for _, ch := range a {
		assert.Len(t, ch.ID, 32)
		assert.False(t, ids[ch.ID], "chunk IDs are unique within a version")
		ids[ch.ID] = true
		assert.NoError(t, core.ValidateChunk(&ch))
	}
}

func TestRender(t *testing.T) {
	text := Render([]core.AccidentRecord{
		{State: "Odisha", Year: 2021, Fatalities: 2, Injuries: 1, Cause: "Explosion"},
		{State: "Goa", Year: 2019, Fatalities: 0},
	})
	assert.Equal(t,
		"year: 2021\nstate: Odisha\ncause: Explosion\nfatalities: 2\ninjuries: 1\n\n"+
			"year: 2019\nstate: Goa\nfatalities: 0",
		text)
}

func TestNew_Size(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, c.Size())

	_, err = New(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
