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


// Package normalize converts raw extracted rows into canonical accident
// records.
//
// Normalization parses years from explicit columns or several date
// layouts, canonicalizes state and district names against a fixed
// gazetteer, cleans up fatality counts written as digits, words or name
// lists, and fills the accident cause and mine type from keyword
// heuristics when the source leaves them out. Rows that cannot be
// normalized are skipped with a reason; NormalizeAll tallies the reasons
// so callers can surface a skip rate.
package normalize
