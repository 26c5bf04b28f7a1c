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
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage"
)

// VectorStore implements storage.VectorStore on BadgerDB. Similarity is
// computed by a full scan of the namespace, which is adequate for the
// few thousand chunks a bulletin produces.
type VectorStore struct {
	backend *Backend
	metric  core.Metric
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store over backend. The metric is fixed
// the first time a store is opened; reopening with a different metric
// returns storage.ErrMetricMismatch.
func NewVectorStore(backend *Backend, metric core.Metric) (storage.VectorStore, error) {
	return newVectorStore(backend, metric)
}

func newVectorStore(backend *Backend, metric core.Metric) (*VectorStore, error) {
	err := backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(metricKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return tx.Set([]byte(metricKey), []byte(metric))
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if core.Metric(val) != metric {
				return fmt.Errorf("%w: store uses %s, requested %s", storage.ErrMetricMismatch, string(val), metric)
			}
			return nil
		})
	}, true)
	if err != nil {
		return nil, err
	}
	return &VectorStore{backend: backend, metric: metric}, nil
}

// Metric returns the similarity metric of the store.
func (s *VectorStore) Metric() core.Metric {
	return s.metric
}

// Close is a no-op; the backend is owned by the caller.
func (s *VectorStore) Close() error {
	return nil
}

// Upsert writes vectors and chunks into ns, creating it if needed.
// All vectors in a namespace must share one dimension.
func (s *VectorStore) Upsert(ctx context.Context, ns core.Namespace, entries []core.IndexEntry) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dim, err := s.namespaceDim(ns)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if len(entry.Vector) == 0 {
			return fmt.Errorf("%w: chunk %s has no vector", storage.ErrDimensionMismatch, entry.Chunk.ID)
		}
		if dim == 0 {
			dim = len(entry.Vector)
		}
		if len(entry.Vector) != dim {
			return fmt.Errorf("%w: chunk %s has %d dimensions, namespace has %d",
				storage.ErrDimensionMismatch, entry.Chunk.ID, len(entry.Vector), dim)
		}
	}

	wb := s.backend.NewWriteBatch()
	defer wb.Cancel()

	marker := make([]byte, 4)
	binary.BigEndian.PutUint32(marker, uint32(dim))
	if err := wb.Set(makeNamespaceKey(ns), marker); err != nil {
		return err
	}
	for i := range entries {
		entry := &entries[i]
		if err := wb.Set(makeVectorKey(ns, entry.Chunk.ID), storage.MarshalVector(entry.Vector)); err != nil {
			return err
		}
		if err := wb.Set(makeChunkKey(ns, entry.Chunk.ID), storage.MarshalChunk(&entry.Chunk)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// namespaceDim returns the vector dimension recorded for ns, 0 if ns is new.
func (s *VectorStore) namespaceDim(ns core.Namespace) (int, error) {
	var dim int
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeNamespaceKey(ns))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 4 {
				dim = int(binary.BigEndian.Uint32(val))
			}
			return nil
		})
	}, false)
	return dim, err
}

type scoredID struct {
	id    string
	score float32
}

// Query scans every vector in ns and returns the k best hits.
func (s *VectorStore) Query(ctx context.Context, ns core.Namespace, vector []float32, k int) ([]core.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidQuery, k)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var hits []core.Hit
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(makeNamespaceKey(ns)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: namespace %s", storage.ErrNotFound, ns)
			}
			return err
		}

		prefix := makeVectorPrefix(ns)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var scored []scoredID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			id := strings.TrimPrefix(string(item.Key()), string(prefix))
			var stored []float32
			err := item.Value(func(val []byte) error {
				var err error
				stored, err = storage.UnmarshalVector(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(stored) != len(vector) {
				return fmt.Errorf("%w: query has %d dimensions, index has %d",
					storage.ErrDimensionMismatch, len(vector), len(stored))
			}
			scored = append(scored, scoredID{id: id, score: s.score(vector, stored)})
		}

		slices.SortFunc(scored, compareScored)
		if len(scored) > k {
			scored = scored[:k]
		}

		hits = make([]core.Hit, 0, len(scored))
		for _, sc := range scored {
			chunk, err := readChunk(tx, makeChunkKey(ns, sc.id))
			if err != nil {
				return err
			}
			hits = append(hits, core.Hit{Chunk: *chunk, Score: sc.score})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// compareScored orders by descending score, ties by ascending ID.
func compareScored(a, b scoredID) int {
	if a.score > b.score {
		return -1
	}
	if a.score < b.score {
		return 1
	}
	return strings.Compare(a.id, b.id)
}

func (s *VectorStore) score(query, stored []float32) float32 {
	if s.metric == core.MetricDot {
		return dotProduct(query, stored)
	}
	return cosineSimilarity(query, stored)
}

func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// DeleteNamespace drops every vector and chunk in ns along with its marker.
func (s *VectorStore) DeleteNamespace(ctx context.Context, ns core.Namespace) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Marker first so a half-deleted namespace is never reported as existing.
	if err := s.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Delete(makeNamespaceKey(ns))
	}, true); err != nil {
		return err
	}
	return s.backend.DeletePrefix(makeVectorPrefix(ns), makeChunkPrefix(ns))
}

// Exists reports whether ns has a marker.
func (s *VectorStore) Exists(ctx context.Context, ns core.Namespace) (bool, error) {
	if s.backend.IsClosed() {
		return false, storage.ErrStorageClosed
	}
	found := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeNamespaceKey(ns))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// Namespaces lists every namespace marker in key order.
func (s *VectorStore) Namespaces(ctx context.Context) ([]core.Namespace, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var namespaces []core.Namespace
	prefix := []byte(namespacePrefix + ":")
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			name := strings.TrimPrefix(string(iter.Item().Key()), string(prefix))
			namespaces = append(namespaces, core.Namespace(name))
		}
		return nil
	}, false)
	return namespaces, err
}

// Count returns the number of chunks stored in ns.
func (s *VectorStore) Count(ctx context.Context, ns core.Namespace) (int, error) {
	if s.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(ns)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// cosineSimilarity returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
