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
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/sanket/core"
)

// PDFBulletinDetector recognizes PDF bulletins by their text layer.
type PDFBulletinDetector struct {
	// TextFunc extracts the text layer. Nil uses PDFText.
	TextFunc func(body []byte) (string, error)
}

var _ Detector = (*PDFBulletinDetector)(nil)

func (d *PDFBulletinDetector) Name() string { return "pdf-bulletin" }

func (d *PDFBulletinDetector) TryExtract(doc *core.SourceDocument) ([]core.RawRow, bool) {
	if !bytes.HasPrefix(doc.Body, []byte("%PDF-")) {
		return nil, false
	}
	textFunc := d.TextFunc
	if textFunc == nil {
		textFunc = PDFText
	}
	text, err := textFunc(doc.Body)
	if err != nil {
		return nil, false
	}
	rows := ParseBulletin(text)
	if !confidentBulletin(rows) {
		return nil, false
	}
	return rows, true
}

// PDFText returns the plain text layer of a PDF. Malformed documents that
// make the parser panic are reported as errors.
func PDFText(body []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// TextBulletinDetector recognizes bulletin blocks in plain text, for
// bulletins already converted to text upstream.
type TextBulletinDetector struct{}

var _ Detector = (*TextBulletinDetector)(nil)

func (d *TextBulletinDetector) Name() string { return "text-bulletin" }

func (d *TextBulletinDetector) TryExtract(doc *core.SourceDocument) ([]core.RawRow, bool) {
	if !looksLikeText(doc.Body) {
		return nil, false
	}
	if strings.Contains(strings.ToLower(doc.ContentType), "html") {
		return nil, false
	}
	rows := ParseBulletin(string(doc.Body))
	if !confidentBulletin(rows) {
		return nil, false
	}
	return rows, true
}
