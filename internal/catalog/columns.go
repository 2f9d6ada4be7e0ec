package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldType represents the data type of a column.
type FieldType string

const (
	FieldTypeInteger FieldType = "integer"
	FieldTypeFloat   FieldType = "float"
)

// Column names used directly by ingestion and queries.
const (
	ColumnSourceID = "source_id"
	ColumnRA       = "ra"
	ColumnDec      = "dec"
)

// ErrNullRequired is returned when a non-nullable column is given a null value.
var ErrNullRequired = errors.New("null value in non-nullable column")

// ColumnGFlux is the mandatory G-band flux column.
var ColumnGFlux = BandG.FluxColumn()

// IndexedColumns are the columns that get a secondary index after a build.
var IndexedColumns = []string{ColumnRA, ColumnDec, ColumnGFlux}

// Column describes one catalog column and how it maps onto Source.
type Column struct {
	Name string
	Type FieldType
	// Output columns are produced by magnitude shaping and never stored.
	Output bool
	field  func(*Source) any
}

// columns is the registry, in the catalog's natural column order.
var columns = buildColumns()

var columnsByName = func() map[string]*Column {
	m := make(map[string]*Column, len(columns))
	for i := range columns {
		m[columns[i].Name] = &columns[i]
	}
	return m
}()

func buildColumns() []Column {
	cols := []Column{
		{Name: ColumnSourceID, Type: FieldTypeInteger, field: func(s *Source) any { return &s.SourceID }},
		{Name: ColumnRA, Type: FieldTypeFloat, field: func(s *Source) any { return &s.RA }},
		{Name: ColumnDec, Type: FieldTypeFloat, field: func(s *Source) any { return &s.Dec }},
		{Name: "parallax", Type: FieldTypeFloat, field: func(s *Source) any { return &s.Parallax }},
		{Name: "pmra", Type: FieldTypeFloat, field: func(s *Source) any { return &s.PMRA }},
		{Name: "pmdec", Type: FieldTypeFloat, field: func(s *Source) any { return &s.PMDec }},
		{Name: "radial_velocity", Type: FieldTypeFloat, field: func(s *Source) any { return &s.RadialVelocity }},
	}
	for _, b := range Bands {
		cols = append(cols,
			Column{Name: b.FluxColumn(), Type: FieldTypeFloat, field: func(s *Source) any { return &s.Phot[b].Flux }},
			Column{Name: b.FluxErrorColumn(), Type: FieldTypeFloat, field: func(s *Source) any { return &s.Phot[b].FluxError }},
		)
	}
	cols = append(cols,
		Column{Name: "teff_gspphot", Type: FieldTypeFloat, field: func(s *Source) any { return &s.TeffGSPPhot }},
		Column{Name: "logg_gspphot", Type: FieldTypeFloat, field: func(s *Source) any { return &s.LoggGSPPhot }},
		Column{Name: "mh_gspphot", Type: FieldTypeFloat, field: func(s *Source) any { return &s.MHGSPPhot }},
	)
	for _, b := range Bands {
		cols = append(cols,
			Column{Name: b.MagColumn(), Type: FieldTypeFloat, Output: true, field: func(s *Source) any { return &s.Phot[b].Mag }},
			Column{Name: b.MagErrorColumn(), Type: FieldTypeFloat, Output: true, field: func(s *Source) any { return &s.Phot[b].MagError }},
		)
	}
	return cols
}

// LookupColumn returns the registry entry for name.
func LookupColumn(name string) (*Column, bool) {
	c, ok := columnsByName[name]
	return c, ok
}

// StorableColumns returns the names of all columns that may be stored.
func StorableColumns() []string {
	var names []string
	for _, c := range columns {
		if !c.Output {
			names = append(names, c.Name)
		}
	}
	return names
}

// Get returns the column's value in s as int64, float64 or nil for null.
func (c *Column) Get(s *Source) any {
	switch p := c.field(s).(type) {
	case *int64:
		return *p
	case *float64:
		return *p
	case *sql.NullFloat64:
		if !p.Valid {
			return nil
		}
		return p.Float64
	}
	return nil
}

// Set stores v into the column's field of s. Accepted values are nil,
// integer and floating point types as returned by database drivers.
// source_id, ra and dec are not nullable: nil or NaN for them returns
// ErrNullRequired.
func (c *Column) Set(s *Source, v any) error {
	switch p := c.field(s).(type) {
	case *int64:
		switch x := v.(type) {
		case int64:
			*p = x
		case int32:
			*p = int64(x)
		case int:
			*p = int64(x)
		case float64:
			if x != math.Trunc(x) {
				return fmt.Errorf("column %s: expected integer, got %v", c.Name, x)
			}
			*p = int64(x)
		case nil:
			return fmt.Errorf("column %s: %w", c.Name, ErrNullRequired)
		default:
			return fmt.Errorf("column %s: expected integer, got %T", c.Name, v)
		}
	case *float64:
		f, valid, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		if !valid {
			return fmt.Errorf("column %s: %w", c.Name, ErrNullRequired)
		}
		*p = f
	case *sql.NullFloat64:
		f, valid, err := toFloat(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		*p = sql.NullFloat64{Float64: f, Valid: valid}
	}
	return nil
}

// Parse decodes a textual field into the column's field of s. The tokens
// in NullTokens and the empty string are treated as null.
func (c *Column) Parse(s *Source, field string) error {
	field = strings.TrimSpace(field)
	if IsNullToken(field) {
		return c.Set(s, nil)
	}
	switch c.Type {
	case FieldTypeInteger:
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return fmt.Errorf("column %s: parsing %q: %w", c.Name, field, err)
		}
		return c.Set(s, n)
	default:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return fmt.Errorf("column %s: parsing %q: %w", c.Name, field, err)
		}
		if math.IsNaN(f) {
			return c.Set(s, nil)
		}
		return c.Set(s, f)
	}
}

// NullTokens are the textual spellings of a missing value in archive files.
var NullTokens = []string{"", "null", "NULL", "NaN", "nan"}

// IsNullToken reports whether field spells a missing value.
func IsNullToken(field string) bool {
	for _, t := range NullTokens {
		if field == t {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		if math.IsNaN(x) {
			return 0, false, nil
		}
		return x, true, nil
	case float32:
		return float64(x), true, nil
	case int64:
		return float64(x), true, nil
	case int32:
		return float64(x), true, nil
	case int:
		return float64(x), true, nil
	}
	return 0, false, fmt.Errorf("expected number, got %T", v)
}
