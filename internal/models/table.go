package models

import (
	"fmt"
	"slices"
	"strings"
)

// normalized returns a copy where every row has exactly len(Headers) cells.
// Without headers the widest row sets the column count.
func (t *TableContent) normalized() TableContent {
	n := len(t.Headers)
	if n == 0 {
		for _, row := range t.Rows {
			n = max(n, len(row))
		}
	}
	out := TableContent{Headers: slices.Clone(t.Headers), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		r := make([]string, n)
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Normalize pads or truncates every row to the header count.
func (t *TableContent) Normalize() {
	*t = t.normalized()
}

// Columns returns the column count.
func (t *TableContent) Columns() int {
	return len(t.Headers)
}

// AddColumn appends a column named header; every row gains one empty cell.
func (t *TableContent) AddColumn(header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrEmptyHeader
	}
	t.Normalize()
	t.Headers = append(t.Headers, header)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return nil
}

// RemoveColumn deletes column i from the headers and every row.
func (t *TableContent) RemoveColumn(i int) error {
	if i < 0 || i >= len(t.Headers) {
		return fmt.Errorf("%w: column %d", ErrIndexOutOfRange, i)
	}
	t.Normalize()
	t.Headers = slices.Delete(t.Headers, i, i+1)
	for r := range t.Rows {
		t.Rows[r] = slices.Delete(t.Rows[r], i, i+1)
	}
	return nil
}

// RenameColumn replaces the header of column i.
func (t *TableContent) RenameColumn(i int, header string) error {
	if i < 0 || i >= len(t.Headers) {
		return fmt.Errorf("%w: column %d", ErrIndexOutOfRange, i)
	}
	t.Headers[i] = header
	return nil
}

// AddRow appends a row of empty cells.
func (t *TableContent) AddRow() {
	t.Rows = append(t.Rows, make([]string, len(t.Headers)))
}

// RemoveRow deletes row i.
func (t *TableContent) RemoveRow(i int) error {
	if i < 0 || i >= len(t.Rows) {
		return fmt.Errorf("%w: row %d", ErrIndexOutOfRange, i)
	}
	t.Rows = slices.Delete(t.Rows, i, i+1)
	return nil
}

// SetCell sets the cell at row r, column c.
func (t *TableContent) SetCell(r, c int, v string) error {
	if r < 0 || r >= len(t.Rows) {
		return fmt.Errorf("%w: row %d", ErrIndexOutOfRange, r)
	}
	if c < 0 || c >= len(t.Headers) {
		return fmt.Errorf("%w: column %d", ErrIndexOutOfRange, c)
	}
	t.Normalize()
	t.Rows[r][c] = v
	return nil
}
