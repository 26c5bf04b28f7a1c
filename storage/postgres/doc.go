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


// Package postgres provides PostgreSQL implementations of the storage
// interfaces. Chunk vectors live in a pgvector column and similarity is
// computed by the database; normalized accident records are written to a
// relational table for ad-hoc SQL analysis.
//
// The pgvector extension must be installable by the connecting role.
package postgres
