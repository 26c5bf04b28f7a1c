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

import "errors"

var (
	// ErrFetcherRequired is returned when a document source is not provided.
	ErrFetcherRequired = errors.New("document fetcher required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrNormalizerRequired is returned when a normalizer is not provided.
	ErrNormalizerRequired = errors.New("normalizer required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrEmbedderRequired is returned when an embedding generator is not provided.
	ErrEmbedderRequired = errors.New("embedding generator required")

	// ErrIndexRequired is returned when an index manager is not provided.
	ErrIndexRequired = errors.New("index manager required")

	// ErrStateRepositoryRequired is returned when a state repository is not provided.
	ErrStateRepositoryRequired = errors.New("state repository required")

	// ErrCycleInProgress is returned by RunOnce while another cycle is running.
	ErrCycleInProgress = errors.New("update cycle already in progress")

	// ErrAlreadyStarted is returned by Start when the poll loop is running.
	ErrAlreadyStarted = errors.New("orchestrator already started")

	// ErrNoRecords indicates a document version produced no usable records.
	ErrNoRecords = errors.New("document produced no usable records")
)
