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
	"regexp"
	"strings"

	"github.com/poiesic/sanket/core"
)

// Bulletins describe one accident per block, from "Date -" up to the
// closing "...could have been averted." sentence.
var (
	blockPattern       = regexp.MustCompile(`(?is)Date\s*-\s.*?averted\.`)
	datePattern        = regexp.MustCompile(`(?is)Date\s*-\s*(.*?)\s+Mine\s*-`)
	minePattern        = regexp.MustCompile(`(?is)Mine\s*-\s*(.*?)\s+Time\s*-`)
	timePattern        = regexp.MustCompile(`(?is)Time\s*-\s*(.*?)\s+Owner\s*-`)
	ownerPattern       = regexp.MustCompile(`(?is)Owner\s*-\s*(.*?)\s*(?:Dist\.?|District)\s*-`)
	placePattern       = regexp.MustCompile(`(?is)(?:Dist\.?|District)\s*-\s*([^,]+),\s*State\s*-\s*([^\n]+)`)
	killedPattern      = regexp.MustCompile(`(?is)Person\(s\)\s*Killed\s*:\s*(.*?)\s*\bWhile\b`)
	descriptionPattern = regexp.MustCompile(`(?is)(\bWhile\b.*?)\s*\bHad\b`)
	precautionPattern  = regexp.MustCompile(`(?is)(\bHad\b.*?averted\.)`)
	stateTailPattern   = regexp.MustCompile(`(?is)\s*(?:Person\(s\)|While\b).*$`)
)

// ParseBulletin splits bulletin text into accident blocks and extracts
// their fields. Row indexes follow block order.
func ParseBulletin(text string) []core.RawRow {
	blocks := blockPattern.FindAllString(text, -1)
	rows := make([]core.RawRow, 0, len(blocks))
	for i, block := range blocks {
		rows = append(rows, core.RawRow{Index: i, Fields: parseBlock(block)})
	}
	return rows
}

func parseBlock(block string) map[string]string {
	fields := make(map[string]string)
	set := func(field string, re *regexp.Regexp) {
		if m := re.FindStringSubmatch(block); m != nil {
			if v := collapseSpace(m[1]); v != "" {
				fields[field] = v
			}
		}
	}

	set(core.FieldDate, datePattern)
	set(core.FieldMine, minePattern)
	set(core.FieldTime, timePattern)
	set(core.FieldOwner, ownerPattern)
	set(core.FieldKilled, killedPattern)
	set(core.FieldDescription, descriptionPattern)
	set(core.FieldPrecaution, precautionPattern)

	if m := placePattern.FindStringSubmatch(block); m != nil {
		fields[core.FieldDistrict] = collapseSpace(m[1])
		state := stateTailPattern.ReplaceAllString(m[2], "")
		fields[core.FieldState] = strings.TrimRight(collapseSpace(state), " .;,")
	}
	return fields
}

// confidentBulletin reports whether at least one parsed block carries the
// minimum field set.
func confidentBulletin(rows []core.RawRow) bool {
	for _, row := range rows {
		fields := make(map[string]bool, len(row.Fields))
		for k, v := range row.Fields {
			if v != "" {
				fields[k] = true
			}
		}
		if hasMinimumFields(fields) {
			return true
		}
	}
	return false
}
