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

import "github.com/poiesic/sanket/core"

// MemoryStores bundles in-memory stores sharing one backend.
type MemoryStores struct {
	Backend *Backend
	Vectors *VectorStore
	State   *StateRepository
	Records *RecordSink
}

// Close releases the stores and the backend.
func (m *MemoryStores) Close() error {
	m.State.Close()
	m.Vectors.Close()
	return m.Backend.Close()
}

// NewMemoryStores creates in-memory stores for testing.
// Caller must Close the returned value when done.
func NewMemoryStores(metric core.Metric) (*MemoryStores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	vectors, err := newVectorStore(backend, metric)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &MemoryStores{
		Backend: backend,
		Vectors: vectors,
		State:   NewStateRepository(backend),
		Records: NewRecordSink(backend),
	}, nil
}
