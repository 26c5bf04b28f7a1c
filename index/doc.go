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

// Package index manages namespaced generations of the vector index.
//
// The Manager is the only component that mutates vector storage. Each
// document version is indexed into a fresh namespace; queries without an
// explicit namespace read the active one from a single-writer Register.
// Activation persists the new active namespace before swapping the
// register, so a restart never serves a namespace that was not committed,
// and a reader sees either the old namespace or the new one in full.
package index
