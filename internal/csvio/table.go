// Package csvio provides a small header-indexed table abstraction over CSV
// files. Files are read and written whole; the pipeline never streams.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Table is an in-memory CSV frame: a header and its rows. Column lookups go
// through the header index, so renaming a column means rewriting the header.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable creates an empty table with the given header.
func NewTable(header []string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		t.index[name] = i
	}
}

// Append adds a row. The caller is responsible for matching the header width.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, row)
}

// Col returns the index of a named column.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, name := range names {
		if _, ok := t.index[name]; !ok {
			return false
		}
	}
	return true
}

// Column returns a copy of the values of a named column, in row order.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		values[r] = row[i]
	}
	return values, nil
}

// AddColumn appends a new column with one value per existing row.
func (t *Table) AddColumn(name string, values []string) error {
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.Rows))
	}
	t.Header = append(t.Header, name)
	t.index[name] = len(t.Header) - 1
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], values[r])
	}
	return nil
}

// ReadFile loads an entire CSV file. The first record is the header; the CSV
// reader enforces a uniform field count across rows.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %q: file has no header row", path)
	}

	t := NewTable(records[0])
	t.Rows = records[1:]
	return t, nil
}

// WriteFile writes the table to a CSV file, header first.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("write header to %q: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows to %q: %w", path, err)
	}
	w.Flush()
	return w.Error()
}
