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


// Package search retrieves the indexed passages most relevant to a question.
//
// The Retriever embeds the question, queries the active namespace (or the
// namespace named in the request) and applies a minimum-score floor. Hits
// come back in descending score order, deduplicated by chunk ID, with ties
// broken by chunk ID so the same question against the same namespace
// always yields the same result.
//
// Index failures are returned as errors, never as an empty result, so a
// caller can tell "nothing relevant" from "index unavailable".
package search
