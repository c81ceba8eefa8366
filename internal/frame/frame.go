// Package frame holds small tables of string cells read from CSV and
// applies per-column formatting to them before rendering.
package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
)

// ErrUnknownColumn is returned when a named column is not in the frame.
var ErrUnknownColumn = errors.New("unknown column")

// Frame is a rectangular table with named columns.
type Frame struct {
	columns []string
	rows    [][]string
}

// New creates a frame. Every row must have one cell per column.
func New(columns []string, rows [][]string) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(columns))
		}
	}
	f := &Frame{columns: slices.Clone(columns)}
	for _, row := range rows {
		f.rows = append(f.rows, slices.Clone(row))
	}
	return f, nil
}

// ReadCSV reads a frame whose first record is the header.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}
	return New(records[0], records[1:])
}

// WriteCSV writes the header and rows as CSV.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.columns); err != nil {
		return err
	}
	if err := cw.WriteAll(f.rows); err != nil {
		return err
	}
	return cw.Error()
}

// Columns returns the column names.
func (f *Frame) Columns() []string {
	return slices.Clone(f.columns)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []string {
	return slices.Clone(f.rows[i])
}

// Column returns a copy of the named column's cells.
func (f *Frame) Column(name string) ([]string, error) {
	idx, err := f.index(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[idx]
	}
	return out, nil
}

func (f *Frame) index(name string) (int, error) {
	idx := slices.Index(f.columns, name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return idx, nil
}

// CellFormatter rewrites one cell value.
type CellFormatter func(string) (string, error)

// FormatColumns applies fn to every cell of the named columns. An empty
// column list means all columns. If any cell fails the frame is left
// untouched and the error names the row and column.
func (f *Frame) FormatColumns(columns []string, fn CellFormatter) error {
	if len(columns) == 0 {
		columns = f.columns
	}

	indexes := make([]int, 0, len(columns))
	for _, name := range columns {
		idx, err := f.index(name)
		if err != nil {
			return err
		}
		indexes = append(indexes, idx)
	}

	updated := make([][]string, len(f.rows))
	for r, row := range f.rows {
		next := slices.Clone(row)
		for _, idx := range indexes {
			v, err := fn(row[idx])
			if err != nil {
				return fmt.Errorf("row %d, column %q: %w", r+1, f.columns[idx], err)
			}
			next[idx] = v
		}
		updated[r] = next
	}

	f.rows = updated
	return nil
}
