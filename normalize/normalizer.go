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


package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/sanket/core"
)

// SkipError reports why a row was not normalized.
type SkipError struct {
	Row    int
	Reason core.SkipReason
	Value  string
}

func (e *SkipError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d skipped: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d skipped: %s (%q)", e.Row, e.Reason, e.Value)
}

// Normalizer converts raw rows into accident records.
type Normalizer struct {
	gazetteer *gazetteer
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) error {
		n.logger = logger
		return nil
	}
}

// WithClock sets the clock used for the upper bound of valid years.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) error {
		n.now = now
		return nil
	}
}

// New creates a Normalizer.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		gazetteer: defaultGazetteer,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	n.logger = n.logger.With("component", "normalizer")
	return n, nil
}

// Normalize converts one row from the given document version. Rows that
// cannot be used return a *SkipError.
func (n *Normalizer) Normalize(version string, row core.RawRow) (core.AccidentRecord, error) {
	skip := func(reason core.SkipReason, value string) (core.AccidentRecord, error) {
		return core.AccidentRecord{}, &SkipError{Row: row.Index, Reason: reason, Value: value}
	}

	if isEmpty(row) {
		return skip(core.SkipEmptyRow, "")
	}

	rawState := row.Get(core.FieldState)
	if rawState == "" {
		return skip(core.SkipMissingState, "")
	}
	state, ok := n.gazetteer.State(rawState)
	if !ok {
		return skip(core.SkipUnknownState, rawState)
	}

	year, date, reason, value := n.resolveYear(row)
	if reason != "" {
		return skip(reason, value)
	}

	killed := row.Get(core.FieldKilled)
	fatalities, ok := parseCount(killed)
	if !ok {
		return skip(core.SkipBadFatalities, killed)
	}
	injuries, _ := parseCount(row.Get(core.FieldInjured))

	description := row.Get(core.FieldDescription)
	cause := row.Get(core.FieldCause)
	if description == "" && cause == "" && killed == "" {
		return skip(core.SkipEmptyDescription, "")
	}

	mine := row.Get(core.FieldMine)
	record := core.AccidentRecord{
		ID:          core.IDFromContent(version + ":" + strconv.Itoa(row.Index)),
		State:       state,
		District:    n.gazetteer.District(state, row.Get(core.FieldDistrict)),
		Year:        year,
		Date:        date,
		MineName:    mine,
		MineType:    ClassifyMineType(row.Get(core.FieldMineType), mine, description),
		Owner:       row.Get(core.FieldOwner),
		Cause:       ClassifyCause(cause, description),
		Fatalities:  fatalities,
		Injuries:    injuries,
		Description: description,
		Precaution:  row.Get(core.FieldPrecaution),
		Provenance:  core.Provenance{Version: version, FirstRow: row.Index, LastRow: row.Index},
	}
	if err := core.ValidateAccidentRecord(&record); err != nil {
		return core.AccidentRecord{}, err
	}
	return record, nil
}

// resolveYear returns the year and the ISO date when the date parses, or
// the raw date otherwise.
func (n *Normalizer) resolveYear(row core.RawRow) (int, string, core.SkipReason, string) {
	rawYear := row.Get(core.FieldYear)
	rawDate := row.Get(core.FieldDate)
	if rawYear == "" && rawDate == "" {
		return 0, "", core.SkipMissingYear, ""
	}

	date := rawDate
	if t, ok := parseDate(rawDate); ok {
		date = t.Format("2006-01-02")
	}

	var (
		year int
		ok   bool
		bad  string
	)
	if rawYear != "" {
		year, ok = parseYear(rawYear)
		bad = rawYear
	} else {
		year, ok = yearFromDate(rawDate)
		bad = rawDate
	}
	if !ok || year < 1900 || year > n.now().Year()+1 {
		return 0, "", core.SkipBadYear, bad
	}
	return year, date, "", ""
}

// NormalizeAll normalizes rows and tallies the skipped ones.
func (n *Normalizer) NormalizeAll(version string, rows []core.RawRow) ([]core.AccidentRecord, core.SkipStats) {
	stats := core.SkipStats{Total: len(rows)}
	records := make([]core.AccidentRecord, 0, len(rows))
	for _, row := range rows {
		record, err := n.Normalize(version, row)
		if err != nil {
			reason := core.SkipInvalidRecord
			var skipErr *SkipError
			if errors.As(err, &skipErr) {
				reason = skipErr.Reason
			}
			n.logger.Debug("row skipped", "version", version, "row", row.Index, "reason", reason, "error", err)
			stats.Add(reason)
			continue
		}
		records = append(records, record)
	}
	return records, stats
}

func isEmpty(row core.RawRow) bool {
	for field := range row.Fields {
		if row.Get(field) != "" {
			return false
		}
	}
	return true
}
