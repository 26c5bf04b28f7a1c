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

package ingestion

import (
	"context"

	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/embedding"
)

// The interfaces below are the stages the orchestrator drives. Each is
// satisfied by the concrete type in the package named in its comment.

// DocumentSource reports a new document version, or nil when the latest
// published document matches last. See fetch.Fetcher.
type DocumentSource interface {
	CheckForUpdate(ctx context.Context, last *core.PipelineState) (*core.SourceDocument, error)
}

// Extractor turns a document into raw rows. See extract.Extractor.
type Extractor interface {
	Extract(doc *core.SourceDocument) ([]core.RawRow, error)
}

// Normalizer converts raw rows into records. See normalize.Normalizer.
type Normalizer interface {
	NormalizeAll(version string, rows []core.RawRow) ([]core.AccidentRecord, core.SkipStats)
}

// Chunker groups records into chunks. See chunking.Chunker.
type Chunker interface {
	Chunk(records []core.AccidentRecord) []core.Chunk
}

// Embedder embeds chunk text in input order. See embedding.Generator.
type Embedder interface {
	EmbedWithProgress(ctx context.Context, texts []string, progress embedding.ProgressFunc) ([][]float32, error)
}

// Index is the namespace-aware vector index. See index.Manager.
type Index interface {
	Active() core.Namespace
	Upsert(ctx context.Context, ns core.Namespace, entries []core.IndexEntry) error
	Activate(ctx context.Context, ns core.Namespace, state core.PipelineState) (core.Namespace, error)
	Retire(ctx context.Context, ns core.Namespace) error
	Namespaces(ctx context.Context) ([]core.Namespace, error)
}
