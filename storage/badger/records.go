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


package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage"
)

// RecordSink implements storage.RecordSink for BadgerDB. Records are keyed
// by version and source row, so rewriting a version is idempotent.
type RecordSink struct {
	backend *Backend
}

var _ storage.RecordSink = (*RecordSink)(nil)

// NewRecordSink creates a new RecordSink.
func NewRecordSink(backend *Backend) *RecordSink {
	return &RecordSink{backend: backend}
}

// WriteRecords stores records under their version and first source row.
func (s *RecordSink) WriteRecords(ctx context.Context, version string, records []core.AccidentRecord) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := s.backend.NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		record := &records[i]
		key := makeRecordKey(version, record.Provenance.FirstRow)
		if err := wb.Set(key, storage.MarshalAccidentRecord(record)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// ReadRecords returns the stored records for a version in row order.
func (s *RecordSink) ReadRecords(ctx context.Context, version string) ([]core.AccidentRecord, error) {
	var records []core.AccidentRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRecordPrefix(version)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalAccidentRecord(val)
				if err != nil {
					return err
				}
				records = append(records, *record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return records, err
}
