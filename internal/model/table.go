package model

import "strings"

// Table is an untyped, column-ordered table as read from a profile CSV.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Value returns the cell at (row, column name), or "" when either is missing.
func (t *Table) Value(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// FindRow returns the index of the first row whose column equals value
// (case-insensitive, trimmed), or -1.
func (t *Table) FindRow(column, value string) int {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return -1
	}
	want := strings.TrimSpace(value)
	for i, row := range t.Rows {
		if idx < len(row) && strings.EqualFold(strings.TrimSpace(row[idx]), want) {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) []string {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out
}
