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

package core

import (
	"errors"
	"fmt"
)

// Error taxonomy
var (
	// ErrTransient indicates a fetch, embed or generate failure that may succeed on retry.
	ErrTransient = errors.New("transient network error")

	// ErrExtraction indicates a document layout that no detector recognized.
	ErrExtraction = errors.New("extraction error")

	// ErrEmbedding indicates embedding generation failed after exhausting retries.
	ErrEmbedding = errors.New("embedding error")

	// ErrIndexUnavailable indicates the similarity index storage could not be reached.
	ErrIndexUnavailable = errors.New("index storage unavailable")

	// ErrNoActiveNamespace indicates no namespace has been activated yet.
	ErrNoActiveNamespace = errors.New("no active namespace")

	// ErrNamespaceNotFound indicates the requested namespace does not exist.
	ErrNamespaceNotFound = errors.New("namespace not found")

	// ErrNamespaceActive indicates a write or retire was attempted on the active namespace.
	ErrNamespaceActive = errors.New("namespace is active")
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates an AccidentRecord failed validation.
	ErrInvalidRecord = errors.New("invalid accident record")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidNamespace indicates a malformed namespace name.
	ErrInvalidNamespace = errors.New("invalid namespace")

	// ErrMissingProvenance indicates the provenance version is empty.
	ErrMissingProvenance = errors.New("provenance version cannot be empty")

	// ErrEmptyContent indicates the text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)

// FetchError reports a failed listing or download. It is always transient.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrTransient }

// ExtractionError reports that a document version could not be extracted.
type ExtractionError struct {
	Version string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract version %s: no layout detector matched", e.Version)
	}
	return fmt.Sprintf("extract version %s: %v", e.Version, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// EmbeddingError reports that embeddings could not be produced for a batch.
type EmbeddingError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
