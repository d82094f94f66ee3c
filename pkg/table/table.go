// Package table is a minimal column-named string table with CSV persistence.
// Every cell is text; a missing value is the empty string.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ErrNoHeader is returned when a CSV input has no header row.
var ErrNoHeader = errors.New("csv has no header row")

// Table is an ordered list of named columns and rows of cells.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether every named column exists.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Get returns the cell of row at column name ("" when either is absent).
func (t *Table) Get(row []string, name string) string {
	i := t.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Set writes the cell of row at column name. The row must be long enough.
func (t *Table) Set(row []string, name, value string) {
	if i := t.Index(name); i >= 0 && i < len(row) {
		row[i] = value
	}
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(row []string) {
	cells := make([]string, len(t.Columns))
	copy(cells, row)
	t.Rows = append(t.Rows, cells)
}

// AddColumn appends a column filled with value. An existing column is
// overwritten instead.
func (t *Table) AddColumn(name, value string) {
	if i := t.Index(name); i >= 0 {
		for _, row := range t.Rows {
			row[i] = value
		}
		return
	}
	t.Columns = append(t.Columns, name)
	t.index[name] = len(t.Columns) - 1
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// Filter returns a table with the rows for which keep is true.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Columns...)
	out.Rows = lo.Filter(t.Rows, func(row []string, _ int) bool { return keep(row) })
	return out
}

// Concat stacks tables. The result has the union of their columns in
// first-seen order; cells of columns a table lacks are empty.
func Concat(tables ...*Table) *Table {
	columns := lo.Uniq(lo.FlatMap(tables, func(t *Table, _ int) []string { return t.Columns }))
	out := New(columns...)

	for _, t := range tables {
		positions := lo.Map(columns, func(c string, _ int) int { return t.Index(c) })
		for _, row := range t.Rows {
			cells := make([]string, len(columns))
			for i, p := range positions {
				if p >= 0 && p < len(row) {
					cells[i] = row[p]
				}
			}
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

// ReadCSV parses a CSV stream whose first record is the header. Short
// records are padded with empty cells. A repeated column name is renamed
// to name.1, name.2 and so on so each cell stays under its own column.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := New(dedupeHeader(header)...)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Append(record)
	}
	return t, nil
}

// dedupeHeader suffixes repeated names with the first free ".N", skipping
// suffixes that already appear in the header.
func dedupeHeader(header []string) []string {
	taken := make(map[string]bool, len(header))
	for _, name := range header {
		taken[name] = true
	}

	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		n := seen[name]
		seen[name] = n + 1
		if n == 0 {
			out[i] = name
			continue
		}
		candidate := fmt.Sprintf("%s.%d", name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		seen[name] = n + 1
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// ReadFile reads a CSV file.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// WriteCSV writes the header and every row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories and
// replacing any existing file.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
