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


package fetch

import "errors"

var (
	// ErrNoDocument indicates the listing page contained no matching document link.
	ErrNoDocument = errors.New("no matching document on listing page")

	// ErrSourceRequired indicates neither a listing URL nor a document URL was configured.
	ErrSourceRequired = errors.New("listing URL or document URL is required")

	// ErrUnexpectedStatus indicates the server answered with a non-success status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrDocumentTooLarge indicates the document exceeded the configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)
