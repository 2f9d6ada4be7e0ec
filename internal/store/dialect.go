package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"
)

// Dialect selects the embedded SQL engine backing the catalog table.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectDuckDB Dialect = "duckdb"
)

// defaultBusyTimeout is the SQLite busy timeout in milliseconds.
const defaultBusyTimeout = 5000

// ParseDialect parses a dialect name. The empty string selects SQLite.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case "", DialectSQLite:
		return DialectSQLite, nil
	case DialectDuckDB:
		return DialectDuckDB, nil
	}
	return "", fmt.Errorf("unknown dialect %q (valid: sqlite, duckdb)", s)
}

// driverName returns the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == DialectDuckDB {
		return "duckdb"
	}
	return "sqlite"
}

// dsn builds the data source name for a database file.
func (d Dialect) dsn(path string) string {
	if d == DialectDuckDB {
		return path
	}
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", defaultBusyTimeout))
	return path + "?" + params.Encode()
}

// sideFiles lists the auxiliary files the engine may leave next to path.
func (d Dialect) sideFiles(path string) []string {
	if d == DialectDuckDB {
		return []string{path + ".wal"}
	}
	return []string{path + "-wal", path + "-shm", path + "-journal"}
}

// openDB opens a database for the dialect.
func openDB(path string, d Dialect) (*sql.DB, error) {
	db, err := sql.Open(d.driverName(), d.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Neither engine supports concurrent writers through one handle
	db.SetMaxOpenConns(1)

	return db, nil
}
