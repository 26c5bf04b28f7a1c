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


// Package extract turns fetched source documents into raw rows.
//
// Publishers change layouts between releases: columns move, cells merge,
// headers are renamed. Extraction therefore runs an ordered list of
// detectors, each recognizing one family of layouts. The first detector
// that recognizes the document with confidence produces the rows. When
// none does, Extract fails with a core.ExtractionError naming the
// document version and the caller skips that version.
//
// Built-in detectors, in default order:
//
//   - CSVDetector: delimited text with a recognizable header
//   - HTMLTableDetector: HTML tables, with colspan and rowspan expanded
//   - PDFBulletinDetector: PDF bulletins with one accident per block
//   - TextBulletinDetector: the same bulletin blocks in plain text
package extract
