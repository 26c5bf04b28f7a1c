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
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage"
)

// StateRepository implements storage.StateRepository for BadgerDB.
type StateRepository struct {
	backend *Backend

	mu  sync.Mutex
	seq *badger.Sequence
}

var _ storage.StateRepository = (*StateRepository)(nil)

// NewStateRepository creates a new StateRepository.
func NewStateRepository(backend *Backend) *StateRepository {
	return &StateRepository{
		backend: backend,
	}
}

// SaveState persists the pipeline state.
func (r *StateRepository) SaveState(ctx context.Context, state *core.PipelineState) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set([]byte(stateKey), storage.MarshalPipelineState(state))
	}, true)
}

// LoadState retrieves the pipeline state.
// Returns nil, nil if no state exists.
func (r *StateRepository) LoadState(ctx context.Context) (*core.PipelineState, error) {
	var state *core.PipelineState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(stateKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			state, unmarshalErr = storage.UnmarshalPipelineState(val)
			return unmarshalErr
		})
	}, false)

	return state, err
}

// SaveVersionMetrics persists metrics for one document version, replacing
// any earlier metrics for the same version.
func (r *StateRepository) SaveVersionMetrics(ctx context.Context, metrics *core.VersionMetrics) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeMetricsKey(metrics.Version), storage.MarshalVersionMetrics(metrics))
	}, true)
}

// GetVersionMetrics returns metrics for a version, or nil, nil if absent.
func (r *StateRepository) GetVersionMetrics(ctx context.Context, version string) (*core.VersionMetrics, error) {
	var metrics *core.VersionMetrics
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeMetricsKey(version))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			metrics, unmarshalErr = storage.UnmarshalVersionMetrics(val)
			return unmarshalErr
		})
	}, false)
	return metrics, err
}

// ListVersionMetrics returns all version metrics, oldest first.
func (r *StateRepository) ListVersionMetrics(ctx context.Context) ([]*core.VersionMetrics, error) {
	var all []*core.VersionMetrics
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metricsPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				metrics, err := storage.UnmarshalVersionMetrics(val)
				if err != nil {
					return err
				}
				all = append(all, metrics)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(all, func(a, b *core.VersionMetrics) int {
		if c := a.CompletedAt.Compare(b.CompletedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Version, b.Version)
	})
	return all, nil
}

// NextGeneration returns the next namespace generation, starting at 1.
// Leased but unused values are lost on restart, so generations may skip
// but never repeat.
func (r *StateRepository) NextGeneration(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seq == nil {
		seq, err := r.backend.GetSequence(generationSeqKey)
		if err != nil {
			return 0, err
		}
		r.seq = seq
	}
	n, err := r.seq.Next()
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

// Close releases the generation sequence lease.
func (r *StateRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seq == nil {
		return nil
	}
	err := r.seq.Release()
	r.seq = nil
	return err
}
