package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAccidentRecord(t *testing.T) {
	valid := func() *AccidentRecord {
		return &AccidentRecord{
			State:      "Jharkhand",
			Year:       2019,
			Fatalities: 1,
			Provenance: Provenance{Version: "v1", FirstRow: 3, LastRow: 3},
		}
	}

	t.Run("valid record", func(t *testing.T) {
		assert.NoError(t, ValidateAccidentRecord(valid()))
	})

	t.Run("nil record", func(t *testing.T) {
		assert.ErrorIs(t, ValidateAccidentRecord(nil), ErrInvalidRecord)
	})

	t.Run("missing state", func(t *testing.T) {
		r := valid()
		r.State = ""
		assert.ErrorIs(t, ValidateAccidentRecord(r), ErrInvalidRecord)
	})

	t.Run("negative fatalities", func(t *testing.T) {
		r := valid()
		r.Fatalities = -1
		assert.ErrorIs(t, ValidateAccidentRecord(r), ErrInvalidRecord)
	})

	t.Run("missing provenance", func(t *testing.T) {
		r := valid()
		r.Provenance.Version = ""
		err := ValidateAccidentRecord(r)
		assert.ErrorIs(t, err, ErrInvalidRecord)
		assert.ErrorIs(t, err, ErrMissingProvenance)
	})
}

func TestValidateChunk(t *testing.T) {
	chunk := &Chunk{
		ID:         "abc",
		Text:       "state: Jharkhand",
		Provenance: Provenance{Version: "v1", FirstRow: 0, LastRow: 3},
	}
	assert.NoError(t, ValidateChunk(chunk))

	empty := *chunk
	empty.Text = ""
	assert.ErrorIs(t, ValidateChunk(&empty), ErrEmptyContent)

	inverted := *chunk
	inverted.Provenance.FirstRow = 5
	assert.ErrorIs(t, ValidateChunk(&inverted), ErrInvalidChunk)

	assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)
}
