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


// Package storage provides the storage abstraction layer for sanket.
//
// This package defines the interfaces that decouple persistence from the
// pipeline. Backends can be swapped without touching orchestration logic.
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return interface types:
//
//	store, err := badger.NewVectorStore(backend, core.MetricCosine)  // returns storage.VectorStore
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - VectorStore: namespaced chunk vectors with top-k similarity query
//   - StateRepository: fingerprint, active namespace, per-version metrics, generations
//   - RecordSink: write-only destination for normalized accident records
//
// Two backends are provided:
//
//   - storage/badger: embedded, single-process, used by default and in tests
//   - storage/postgres: pgvector similarity search and a relational record table
//
// # Usage
//
//	backend, err := badger.OpenBackend("/var/lib/sanket", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	vectors, err := badger.NewVectorStore(backend, core.MetricCosine)
//	state := badger.NewStateRepository(backend)
//
// # Thread Safety
//
// All implementations must be safe for concurrent use by multiple goroutines.
package storage
