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
	"log/slog"

	"github.com/poiesic/sanket/core"
)

// Detector recognizes one family of document layouts.
type Detector interface {
	// Name identifies the detector in logs.
	Name() string

	// TryExtract returns the document's rows and true when the layout is
	// recognized with confidence, or nil and false otherwise.
	TryExtract(doc *core.SourceDocument) ([]core.RawRow, bool)
}

// Extractor runs detectors in priority order.
type Extractor struct {
	detectors []Detector
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		e.logger = logger
		return nil
	}
}

// WithDetectors replaces the default detector list.
func WithDetectors(detectors ...Detector) Option {
	return func(e *Extractor) error {
		e.detectors = detectors
		return nil
	}
}

// DefaultDetectors returns the built-in detectors in priority order.
func DefaultDetectors() []Detector {
	return []Detector{
		&CSVDetector{},
		&HTMLTableDetector{},
		&PDFBulletinDetector{},
		&TextBulletinDetector{},
	}
}

// New creates an Extractor using DefaultDetectors unless overridden.
func New(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		detectors: DefaultDetectors(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Extract returns the rows of doc from the first detector that recognizes it.
func (e *Extractor) Extract(doc *core.SourceDocument) ([]core.RawRow, error) {
	for _, d := range e.detectors {
		rows, ok := d.TryExtract(doc)
		if !ok {
			e.logger.Debug("detector declined", "detector", d.Name(), "version", doc.Version())
			continue
		}
		e.logger.Info("document extracted", "detector", d.Name(), "version", doc.Version(), "rows", len(rows))
		return rows, nil
	}
	return nil, &core.ExtractionError{Version: doc.Version()}
}
