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


package chunking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/sanket/core"
)

// DefaultSize is the number of records per chunk.
const DefaultSize = 5

// ErrInvalidSize indicates a chunk size below one.
var ErrInvalidSize = errors.New("chunk size must be positive")

// Chunker splits record sequences into chunks of at most Size records.
type Chunker struct {
	size int
}

// New creates a Chunker. A size of zero uses DefaultSize.
func New(size int) (*Chunker, error) {
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Chunker{size: size}, nil
}

// Size returns the configured records per chunk.
func (c *Chunker) Size() int {
	return c.size
}

// Chunk splits records into chunks. Records must all come from one
// document version.
func (c *Chunker) Chunk(records []core.AccidentRecord) []core.Chunk {
	chunks := make([]core.Chunk, 0, (len(records)+c.size-1)/c.size)
	for start := 0; start < len(records); start += c.size {
		end := min(start+c.size, len(records))
		group := records[start:end]

		provenance := core.Provenance{
			Version:  group[0].Provenance.Version,
			FirstRow: group[0].Provenance.FirstRow,
			LastRow:  group[len(group)-1].Provenance.LastRow,
		}
		chunks = append(chunks, core.Chunk{
			ID:          core.ChunkID(provenance),
			Seq:         len(chunks),
			Text:        Render(group),
			Provenance:  provenance,
			RecordCount: len(group),
			Records:     group,
		})
	}
	return chunks
}

// Render formats records as "field: value" lines, one blank line between
// records. Empty fields are omitted.
func Render(records []core.AccidentRecord) string {
	parts := make([]string, len(records))
	for i := range records {
		parts[i] = renderRecord(&records[i])
	}
	return strings.Join(parts, "\n\n")
}

func renderRecord(r *core.AccidentRecord) string {
	var b strings.Builder
	line := func(field, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(field)
		b.WriteString(": ")
		b.WriteString(value)
	}

	line("date", r.Date)
	line("year", strconv.Itoa(r.Year))
	line("state", r.State)
	line("district", r.District)
	line("mine", r.MineName)
	line("mine_type", r.MineType)
	line("owner", r.Owner)
	line("cause", r.Cause)
	line("fatalities", strconv.Itoa(r.Fatalities))
	if r.Injuries > 0 {
		line("injuries", strconv.Itoa(r.Injuries))
	}
	line("description", r.Description)
	line("precaution", r.Precaution)
	return b.String()
}
