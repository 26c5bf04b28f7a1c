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
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/sanket/core"
)

// headerSearchDepth is how many leading rows may hold the header, allowing
// for title rows above it.
const headerSearchDepth = 3

// HTMLTableDetector recognizes HTML tables. Merged cells are expanded so
// every logical row carries its own copy of the merged value.
type HTMLTableDetector struct{}

var _ Detector = (*HTMLTableDetector)(nil)

func (d *HTMLTableDetector) Name() string { return "html-table" }

func (d *HTMLTableDetector) TryExtract(doc *core.SourceDocument) ([]core.RawRow, bool) {
	if !strings.Contains(strings.ToLower(doc.ContentType), "html") && !looksLikeMarkup(doc.Body) {
		return nil, false
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, false
	}

	var (
		rows  []core.RawRow
		found bool
	)
	page.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows, found = extractTable(tableGrid(table))
		return !found
	})
	return rows, found
}

func extractTable(grid [][]string) ([]core.RawRow, bool) {
	for h := 0; h < len(grid) && h < headerSearchDepth; h++ {
		columns := mapHeader(grid[h])
		if !hasMinimumFields(columnFields(columns)) {
			continue
		}
		var rows []core.RawRow
		index := 0
		for _, cells := range grid[h+1:] {
			row, nonEmpty := buildRow(index, cells, columns)
			if !nonEmpty {
				continue
			}
			rows = append(rows, row)
			index++
		}
		return rows, true
	}
	return nil, false
}

type span struct {
	remaining int
	text      string
}

// tableGrid flattens a table into rows of cell text, repeating cells that
// span several columns or rows.
func tableGrid(table *goquery.Selection) [][]string {
	var grid [][]string
	pending := make(map[int]*span)

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		col := 0
		fill := func() {
			for {
				sp, ok := pending[col]
				if !ok {
					return
				}
				row = append(row, sp.text)
				if sp.remaining--; sp.remaining == 0 {
					delete(pending, col)
				}
				col++
			}
		}

		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			fill()
			text := collapseSpace(cell.Text())
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for i := 0; i < colspan; i++ {
				row = append(row, text)
				if rowspan > 1 {
					pending[col] = &span{remaining: rowspan - 1, text: text}
				}
				col++
			}
		})

		// Spans continuing past the last explicit cell.
		if len(pending) > 0 {
			cols := make([]int, 0, len(pending))
			for c := range pending {
				if c >= col {
					cols = append(cols, c)
				}
			}
			sort.Ints(cols)
			for _, c := range cols {
				for col < c {
					row = append(row, "")
					col++
				}
				fill()
			}
		}
		grid = append(grid, row)
	})
	return grid
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if n > 100 {
		return 100
	}
	return n
}
