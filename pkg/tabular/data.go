// Package tabular holds in-memory tables parsed from uploaded files.
package tabular

import (
	"math"
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a parsed column.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeBoolean ColumnType = "boolean"
	TypeText    ColumnType = "text"
)

// Column is a named, typed column of Data.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Data is an ordered collection of typed columns and rows.
// Row values are int64, float64, bool, string or nil for a missing value,
// matching the type of their column.
type Data struct {
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in order.
func (d *Data) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// NumRows returns the number of data rows.
func (d *Data) NumRows() int {
	return len(d.Rows)
}

// Preview returns the column names and up to limit rows rendered as strings.
// A limit <= 0 returns every row.
func (d *Data) Preview(limit int) ([]string, [][]string) {
	n := len(d.Rows)
	if limit > 0 && limit < n {
		n = limit
	}

	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(d.Rows[i]))
		for j, v := range d.Rows[i] {
			row[j] = FormatValue(v)
		}
		rows[i] = row
	}
	return d.ColumnNames(), rows
}

// FormatValue renders a row value for display. Missing values render as "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	default:
		return ""
	}
}

// formatFloat prints x in positional notation; whole numbers keep a ".0"
// so float columns read as floats.
func formatFloat(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if math.IsInf(x, 0) || math.IsNaN(x) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
