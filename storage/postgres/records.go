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


package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage"
)

const recordTable = "accident_records"

// RecordSink writes normalized records to a relational table keyed by
// (version, source_row).
type RecordSink struct {
	backend *Backend
}

var _ storage.RecordSink = (*RecordSink)(nil)

// NewRecordSink creates the record table if needed.
func NewRecordSink(ctx context.Context, backend *Backend) (*RecordSink, error) {
	_, err := backend.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version TEXT NOT NULL,
		source_row INTEGER NOT NULL,
		state TEXT NOT NULL,
		district TEXT,
		year INTEGER NOT NULL,
		accident_date TEXT,
		mine_name TEXT,
		mine_type TEXT,
		owner TEXT,
		cause TEXT,
		fatalities INTEGER NOT NULL,
		injuries INTEGER NOT NULL,
		description TEXT,
		precaution TEXT,
		PRIMARY KEY (version, source_row)
	)`, recordTable))
	if err != nil {
		return nil, fmt.Errorf("failed to create record table: %w", err)
	}
	return &RecordSink{backend: backend}, nil
}

// WriteRecords upserts records for version in one batch.
func (s *RecordSink) WriteRecords(ctx context.Context, version string, records []core.AccidentRecord) error {
	if len(records) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(`
		INSERT INTO %s (version, source_row, state, district, year, accident_date, mine_name,
			mine_type, owner, cause, fatalities, injuries, description, precaution)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (version, source_row) DO UPDATE SET
			state = EXCLUDED.state,
			district = EXCLUDED.district,
			year = EXCLUDED.year,
			accident_date = EXCLUDED.accident_date,
			mine_name = EXCLUDED.mine_name,
			mine_type = EXCLUDED.mine_type,
			owner = EXCLUDED.owner,
			cause = EXCLUDED.cause,
			fatalities = EXCLUDED.fatalities,
			injuries = EXCLUDED.injuries,
			description = EXCLUDED.description,
			precaution = EXCLUDED.precaution`,
		recordTable)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(stmt, version, r.Provenance.FirstRow, r.State, r.District, r.Year, r.Date,
			r.MineName, r.MineType, r.Owner, r.Cause, r.Fatalities, r.Injuries, r.Description, r.Precaution)
	}
	if err := s.backend.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// CountRecords returns the number of stored records for version.
func (s *RecordSink) CountRecords(ctx context.Context, version string) (int, error) {
	var count int
	err := s.backend.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE version = $1`, recordTable), version).Scan(&count)
	return count, err
}
