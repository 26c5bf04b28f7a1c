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


// Package fetch implements the document fetcher.
//
// The fetcher discovers the newest bulletin on the publisher's listing page,
// downloads it with conditional request headers, and compares its content
// fingerprint with the last processed one. It returns nil when nothing has
// changed. Every network or listing failure is reported as a
// core.FetchError, which callers treat as transient and retry.
package fetch
