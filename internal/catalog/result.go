package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// ResultSet is a tabular set of sources. Columns lists, in order, which
// columns of each row are meaningful.
type ResultSet struct {
	Columns []string
	Rows    []Source
}

// Has reports whether the result set carries the column.
func (rs *ResultSet) Has(name string) bool {
	return slices.Contains(rs.Columns, name)
}

// Replace renames column old to new in place, keeping its position.
// It is a no-op if old is absent.
func (rs *ResultSet) Replace(old, new string) {
	if i := slices.Index(rs.Columns, old); i >= 0 {
		rs.Columns[i] = new
	}
}

// Value returns row i's value for a column, or nil when the column is null
// or not part of the registry.
func (rs *ResultSet) Value(i int, name string) any {
	col, ok := LookupColumn(name)
	if !ok {
		return nil
	}
	return col.Get(&rs.Rows[i])
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Strings formats row i as text fields in column order; null is "".
func (rs *ResultSet) Strings(i int) []string {
	fields := make([]string, len(rs.Columns))
	for j, c := range rs.Columns {
		fields[j] = FormatValue(rs.Value(i, c))
	}
	return fields
}

// FormatValue formats a column value for text output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalRow encodes row i as a JSON object with keys in column order.
func (rs *ResultSet) MarshalRow(i int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for j, c := range rs.Columns {
		if j > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(rs.Value(i, c))
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", c, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the result set as an array of row objects.
func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := range rs.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		row, err := rs.MarshalRow(i)
		if err != nil {
			return nil, err
		}
		buf.Write(row)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
