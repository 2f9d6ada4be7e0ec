// Package store persists the catalog table in an embedded SQL database and
// runs predicate-filtered reads against it.
package store

import (
	"fmt"
	"strings"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/sqlexpr"
)

// GenerateDDL generates a CREATE TABLE statement for the given catalog
// columns, in order.
func GenerateDDL(table string, columns []string) (string, error) {
	if err := sqlexpr.ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	var cols []string
	for _, name := range columns {
		col, ok := catalog.LookupColumn(name)
		if !ok || col.Output {
			return "", fmt.Errorf("%w %q", catalog.ErrUnknownColumn, name)
		}
		cols = append(cols, fmt.Sprintf("%s %s", sqlexpr.QuoteIdentifier(name), sqlType(col.Type)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		sqlexpr.QuoteIdentifier(table),
		strings.Join(cols, ",\n  ")), nil
}

// GenerateIndexDDL generates a CREATE INDEX statement for a column.
func GenerateIndexDDL(table, column string) (string, error) {
	if err := sqlexpr.ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if err := sqlexpr.ValidateIdentifier(column); err != nil {
		return "", fmt.Errorf("invalid column name: %w", err)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
		sqlexpr.QuoteIdentifier("idx_"+table+"_"+column),
		sqlexpr.QuoteIdentifier(table),
		sqlexpr.QuoteIdentifier(column)), nil
}

// GenerateInsert generates a parameterized INSERT statement.
func GenerateInsert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlexpr.QuoteIdentifier(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlexpr.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
}

// sqlType maps a FieldType to a column type understood by both SQLite and
// DuckDB. DOUBLE keeps 64-bit precision in DuckDB, where REAL is 32-bit.
func sqlType(ft catalog.FieldType) string {
	switch ft {
	case catalog.FieldTypeInteger:
		return "BIGINT"
	default:
		return "DOUBLE"
	}
}
