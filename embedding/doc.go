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

// Package embedding turns chunk text into vectors for the index.
//
// A Generator splits its input into fixed-size batches and embeds them on a
// bounded worker pool. Each batch call carries its own timeout and is retried
// with exponential backoff; once retries are exhausted the whole call fails
// with a core.EmbeddingError and no partial result is returned. Output order
// always matches input order.
//
// When the index uses cosine similarity the Generator L2-normalizes every
// vector so that scores are comparable across embedding backends.
package embedding
