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
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Layouts with a two-digit year are
// re-pivoted so that 00-49 map to 20xx and 50-99 to 19xx.
var dateLayouts = []struct {
	layout   string
	twoDigit bool
}{
	{"02-01-2006", false},
	{"02/01/2006", false},
	{"02/01/06", true},
	{"02-01-06", true},
	{"2006/01/02", false},
	{"2006-01-02", false},
	{"02.01.2006", false},
	{"2-1-2006", false},
	{"2/1/2006", false},
	{"2/1/06", true},
	{"2.1.2006", false},
	{"02 Jan 2006", false},
	{"2 January 2006", false},
	{"January 2, 2006", false},
}

var (
	fourDigitYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	twoDigitYear  = regexp.MustCompile(`^\d{2}$`)
	leadingNumber = regexp.MustCompile(`^(\d+)\b`)
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	nameSeparator = regexp.MustCompile(`(?i)\s*(?:,|;|&|\band\b)\s*`)
	notAName      = regexp.MustCompile(`(?i)^(?:aged?\b|\d)`)
)

// parseDate parses s with the known layouts. It returns the date and
// true, or the zero time and false.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.twoDigit && t.Year() >= 2050 {
			t = t.AddDate(-100, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// pivotYear expands a two-digit year.
func pivotYear(yy int) int {
	if yy < 50 {
		return 2000 + yy
	}
	return 1900 + yy
}

// parseYear extracts a year from an explicit year value. Ranges such as
// "2023-24" yield the first year.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if m := fourDigitYear.FindString(s); m != "" {
		y, _ := strconv.Atoi(m)
		return y, true
	}
	if twoDigitYear.MatchString(s) {
		yy, _ := strconv.Atoi(s)
		return pivotYear(yy), true
	}
	return 0, false
}

// yearFromDate returns the year of a date string, falling back to any
// four-digit year it contains, then to a trailing two-digit component.
func yearFromDate(s string) (int, bool) {
	if t, ok := parseDate(s); ok {
		return t.Year(), true
	}
	if m := fourDigitYear.FindString(s); m != "" {
		y, _ := strconv.Atoi(m)
		return y, true
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	if len(parts) == 3 && twoDigitYear.MatchString(parts[2]) {
		yy, _ := strconv.Atoi(parts[2])
		return pivotYear(yy), true
	}
	return 0, false
}

var numberWords = map[string]int{
	"nil": 0, "none": 0, "zero": 0, "no": 0,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

var unknownCounts = map[string]bool{
	"unknown": true, "not known": true, "n/a": true, "na": true, "?": true,
}

// parseCount parses a casualty count written as digits, a number word,
// "Nil", or a list of names. An empty value counts as zero.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch {
	case lower == "" || lower == "-":
		return 0, true
	case unknownCounts[lower]:
		return 0, false
	case strings.HasPrefix(lower, "-"):
		return 0, false
	}

	if m := leadingNumber.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}

	first := strings.Fields(strings.Trim(lower, ".:"))
	if len(first) > 0 {
		if n, ok := numberWords[strings.Trim(first[0], ".,;:")]; ok {
			return n, true
		}
	}

	return countNames(s)
}

// countNames counts the people named in a list such as
// "Shri A. Kumar (Driller), B. Singh and C. Das".
func countNames(s string) (int, bool) {
	s = parenthetical.ReplaceAllString(s, " ")
	count := 0
	for _, part := range nameSeparator.Split(s, -1) {
		part = strings.TrimSpace(part)
		if part == "" || notAName.MatchString(part) || !hasLetter(part) {
			continue
		}
		count++
	}
	return count, count > 0
}

func hasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			return true
		}
	}
	return false
}
