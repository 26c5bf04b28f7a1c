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


package extract

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/sanket/core"
)

// CSVDetector recognizes delimited text whose header maps to the minimum
// field set. Comma, semicolon and tab delimiters are tried in turn.
type CSVDetector struct{}

var _ Detector = (*CSVDetector)(nil)

func (d *CSVDetector) Name() string { return "csv" }

func (d *CSVDetector) TryExtract(doc *core.SourceDocument) ([]core.RawRow, bool) {
	body := bytes.TrimPrefix(doc.Body, []byte("\xef\xbb\xbf"))
	if !looksLikeText(body) || looksLikeMarkup(body) {
		return nil, false
	}
	for _, delim := range []rune{',', ';', '\t'} {
		if rows, ok := readDelimited(body, delim); ok {
			return rows, true
		}
	}
	return nil, false
}

func readDelimited(body []byte, delim rune) ([]core.RawRow, bool) {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil || len(header) < 2 {
		return nil, false
	}
	columns := mapHeader(header)
	if !hasMinimumFields(columnFields(columns)) {
		return nil, false
	}

	var rows []core.RawRow
	index := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false
		}
		row, _ := buildRow(index, record, columns)
		rows = append(rows, row)
		index++
	}
	return rows, true
}

func looksLikeText(body []byte) bool {
	if len(body) == 0 || bytes.HasPrefix(body, []byte("%PDF-")) {
		return false
	}
	sample := body
	if len(sample) > 4096 {
		sample = sample[:4096]
		// Avoid splitting a multi-byte rune at the cut.
		for len(sample) > 0 && !utf8.Valid(sample) {
			sample = sample[:len(sample)-1]
		}
	}
	return utf8.Valid(sample) && !bytes.ContainsRune(sample, 0)
}

func looksLikeMarkup(body []byte) bool {
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 512)])))
	return strings.HasPrefix(head, "<")
}
