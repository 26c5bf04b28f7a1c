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
	"strings"
	"unicode"

	"github.com/poiesic/sanket/core"
)

// headerAliases maps normalized header text to canonical field keys.
var headerAliases = map[string]string{
	"date":                 core.FieldDate,
	"date of accident":     core.FieldDate,
	"accident date":        core.FieldDate,
	"year":                 core.FieldYear,
	"yr":                   core.FieldYear,
	"year of accident":     core.FieldYear,
	"state":                core.FieldState,
	"state name":           core.FieldState,
	"state ut":             core.FieldState,
	"district":             core.FieldDistrict,
	"dist":                 core.FieldDistrict,
	"district name":        core.FieldDistrict,
	"mine":                 core.FieldMine,
	"mine name":            core.FieldMine,
	"name of mine":         core.FieldMine,
	"name of the mine":     core.FieldMine,
	"colliery":             core.FieldMine,
	"mine type":            core.FieldMineType,
	"type of mine":         core.FieldMineType,
	"mineral":              core.FieldMineType,
	"category":             core.FieldMineType,
	"owner":                core.FieldOwner,
	"owner name":           core.FieldOwner,
	"name of owner":        core.FieldOwner,
	"company":              core.FieldOwner,
	"time":                 core.FieldTime,
	"time of accident":     core.FieldTime,
	"cause":                core.FieldCause,
	"cause of accident":    core.FieldCause,
	"accident cause":       core.FieldCause,
	"classification":       core.FieldCause,
	"killed":               core.FieldKilled,
	"persons killed":       core.FieldKilled,
	"person s killed":      core.FieldKilled,
	"no of persons killed": core.FieldKilled,
	"fatalities":           core.FieldKilled,
	"deaths":               core.FieldKilled,
	"no of deaths":         core.FieldKilled,
	"injured":              core.FieldInjured,
	"persons injured":      core.FieldInjured,
	"person s injured":     core.FieldInjured,
	"serious injuries":     core.FieldInjured,
	"injuries":             core.FieldInjured,
	"description":          core.FieldDescription,
	"brief description":    core.FieldDescription,
	"details":              core.FieldDescription,
	"narrative":            core.FieldDescription,
	"precaution":           core.FieldPrecaution,
	"precautions":          core.FieldPrecaution,
	"preventive measures":  core.FieldPrecaution,
}

// normalizeHeader lowercases h and reduces punctuation runs to single spaces.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// canonicalField returns the field key for a header cell, or "".
func canonicalField(header string) string {
	return headerAliases[normalizeHeader(header)]
}

// mapHeader returns column index to field key for every recognized header.
// The first column claiming a field wins.
func mapHeader(headers []string) map[int]string {
	columns := make(map[int]string)
	claimed := make(map[string]bool)
	for i, h := range headers {
		field := canonicalField(h)
		if field == "" || claimed[field] {
			continue
		}
		claimed[field] = true
		columns[i] = field
	}
	return columns
}

// hasMinimumFields reports whether a field set is enough to build records:
// a state, a date or year, and something describing the accident.
func hasMinimumFields(fields map[string]bool) bool {
	if !fields[core.FieldState] {
		return false
	}
	if !fields[core.FieldDate] && !fields[core.FieldYear] {
		return false
	}
	return fields[core.FieldDescription] || fields[core.FieldCause] || fields[core.FieldKilled]
}

func columnFields(columns map[int]string) map[string]bool {
	fields := make(map[string]bool, len(columns))
	for _, f := range columns {
		fields[f] = true
	}
	return fields
}

// buildRow assembles a RawRow from cells using a header mapping.
func buildRow(index int, cells []string, columns map[int]string) (core.RawRow, bool) {
	row := core.RawRow{Index: index, Fields: make(map[string]string, len(columns))}
	nonEmpty := false
	for i, field := range columns {
		if i >= len(cells) {
			continue
		}
		value := collapseSpace(cells[i])
		if value != "" {
			nonEmpty = true
		}
		row.Fields[field] = value
	}
	return row, nonEmpty
}

// collapseSpace trims s and reduces internal whitespace runs to one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
