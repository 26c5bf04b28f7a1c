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


// Package ingestion keeps the vector index in step with the published
// accident reports.
//
// The Orchestrator is an explicit state machine:
//
//	IDLE → FETCHING → EXTRACTING → NORMALIZING → CHUNKING → EMBEDDING → INDEXING → ACTIVATING → IDLE
//
// with ERROR reachable from every working state and always returning to
// IDLE without activating anything. One cycle runs at a time; triggers that
// arrive while a cycle is in flight are dropped.
//
// Each document version is indexed into a fresh namespace. Only a fully
// written namespace is activated, and the namespace it replaces is retired
// after a grace period so that in-flight queries can finish. A cycle that
// is cancelled or fails after indexing began discards its partial
// namespace; any leftovers from a crash are swept on the next Start.
//
// A version whose layout cannot be extracted, or which yields no usable
// records, is marked processed with the outcome "skipped" and the current
// index keeps serving. Embedding and indexing failures leave the version
// unmarked so the next poll retries it.
package ingestion
