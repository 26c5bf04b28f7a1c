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

package core

import "fmt"

// ValidateAccidentRecord validates an AccidentRecord according to domain rules.
//
// Validation rules:
//   - State must not be empty
//   - Year must be positive
//   - Fatalities must not be negative
//   - Provenance must name a document version
//
// NOT validated:
//   - District (may be unknown in the source)
//   - Cause and MineType (filled by classification when absent)
func ValidateAccidentRecord(record *AccidentRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if record.State == "" {
		return fmt.Errorf("%w: state is empty", ErrInvalidRecord)
	}
	if record.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidRecord, record.Year)
	}
	if record.Fatalities < 0 {
		return fmt.Errorf("%w: fatalities %d", ErrInvalidRecord, record.Fatalities)
	}
	if record.Provenance.Version == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingProvenance)
	}
	return nil
}

// ValidateChunk validates a Chunk before it is indexed.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidChunk)
	}
	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if chunk.Provenance.Version == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrMissingProvenance)
	}
	if chunk.Provenance.FirstRow > chunk.Provenance.LastRow {
		return fmt.Errorf("%w: row range %d-%d", ErrInvalidChunk, chunk.Provenance.FirstRow, chunk.Provenance.LastRow)
	}
	return nil
}
