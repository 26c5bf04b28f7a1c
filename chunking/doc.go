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


// Package chunking groups normalized records into fixed-size chunks.
//
// Boundaries depend only on record count: L records with size N yield
// ceil(L/N) chunks of N records each, except a trailing partial chunk.
// Chunk IDs are derived from provenance and chunk text is a deterministic
// rendering of the records, so chunking the same input twice produces
// identical output.
package chunking
