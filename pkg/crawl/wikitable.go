package crawl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"github.com/PepeHerrera14/final-adquisicion/pkg/table"
)

var (
	innerWhitespace = regexp.MustCompile(`\s+`)
	footnoteMarker  = regexp.MustCompile(`\[[^\]]*\]`)
)

// CellText returns the visible text of a table cell without footnote
// references, hidden sort keys or repeated whitespace.
func CellText(cell *goquery.Selection) string {
	c := cell.Clone()
	c.Find("sup.reference, style, script, .sortkey, [style*='display:none']").Remove()
	text := footnoteMarker.ReplaceAllString(c.Text(), "")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(text, " "))
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
	return n
}

// ownRows returns the rows of tbl that have cells, excluding rows of nested
// tables.
func ownRows(tbl *goquery.Selection) *goquery.Selection {
	return tbl.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(tbl.First()) && tr.ChildrenFiltered("th, td").Length() > 0
	})
}

type carry struct {
	text      string
	remaining int
}

// Grid expands a table into a rectangular grid of cell texts, repeating
// colspan and rowspan cells in every position they cover.
func Grid(tbl *goquery.Selection) [][]string {
	var grid [][]string
	pending := map[int]*carry{}

	fill := func(row []string, col int) ([]string, int) {
		for {
			p, ok := pending[col]
			if !ok || p.remaining == 0 {
				return row, col
			}
			row = append(row, p.text)
			p.remaining--
			if p.remaining == 0 {
				delete(pending, col)
			}
			col++
		}
	}

	ownRows(tbl).Each(func(_ int, tr *goquery.Selection) {
		var row []string
		col := 0
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			row, col = fill(row, col)

			text := CellText(cell)
			rowspan := spanAttr(cell, "rowspan")
			for k := 0; k < spanAttr(cell, "colspan"); k++ {
				row = append(row, text)
				if rowspan > 1 {
					pending[col] = &carry{text: text, remaining: rowspan - 1}
				}
				col++
			}
		})
		row, _ = fill(row, col)
		grid = append(grid, row)
	})

	return grid
}

// isHeaderRow reports whether every cell of tr is a th.
func isHeaderRow(tr *goquery.Selection) bool {
	cells := tr.ChildrenFiltered("th, td")
	return cells.Length() > 0 && cells.Length() == cells.Filter("th").Length()
}

// ParseWikitable converts a table into a Table. The first row names the
// columns; further header-only rows directly below it are skipped.
func ParseWikitable(tbl *goquery.Selection) *table.Table {
	grid := Grid(tbl)
	if len(grid) == 0 {
		return table.New()
	}

	rows := ownRows(tbl)
	headerRows := 1
	for headerRows < len(grid) && isHeaderRow(rows.Eq(headerRows)) {
		headerRows++
	}

	out := table.New(uniqueColumns(grid[0])...)
	for _, row := range grid[headerRows:] {
		out.Append(row)
	}
	return out
}

// uniqueColumns suffixes repeated header names (".1", ".2") as pandas does.
func uniqueColumns(header []string) []string {
	seen := map[string]int{}
	return lo.Map(header, func(h string, _ int) string {
		n := seen[h]
		seen[h] = n + 1
		if n == 0 {
			return h
		}
		return h + "." + strconv.Itoa(n)
	})
}

// headerTexts returns the texts of a table's first row.
func headerTexts(tbl *goquery.Selection) []string {
	grid := Grid(tbl)
	if len(grid) == 0 {
		return nil
	}
	return grid[0]
}
