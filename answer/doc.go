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

// Package answer turns retrieved chunks into a grounded natural-language answer.
//
// The Synthesizer renders hits into a bounded context block, in rank order,
// and asks the generation capability to answer only from it. When the
// context budget runs out the lowest-ranked chunks are left out first; the
// top chunk is truncated rather than dropped. An empty retrieval returns a
// fixed "not available" answer without calling the generator.
package answer
