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

package archive

import (
	"context"
	"path"
	"strings"

	"github.com/poiesic/sanket/core"
)

// Store persists source documents.
type Store interface {
	// Put stores doc and returns its object name.
	Put(ctx context.Context, doc *core.SourceDocument) (string, error)
}

// NoopStore discards documents.
type NoopStore struct{}

var _ Store = NoopStore{}

func (NoopStore) Put(_ context.Context, doc *core.SourceDocument) (string, error) {
	return ObjectName(doc), nil
}

// ObjectName returns the archive object name for doc.
func ObjectName(doc *core.SourceDocument) string {
	base := doc.Name
	if base == "" {
		base = path.Base(strings.SplitN(doc.URL, "?", 2)[0])
	}
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return doc.Fingerprint + "/" + base
}
