package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/sqlexpr"
)

// ErrNotFound indicates the database file does not exist.
var ErrNotFound = errors.New("no database found")

// DB is an open catalog database.
type DB struct {
	Path    string
	Dialect Dialect
	db      *sql.DB
}

// Info contains detailed information about a catalog database.
type Info struct {
	Path    string   `json:"path"`
	Dialect Dialect  `json:"dialect"`
	Exists  bool     `json:"exists"`
	Table   string   `json:"table"`
	Size    int64    `json:"size"`
	Rows    int64    `json:"rows"`
	Columns []string `json:"columns,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Exists reports whether a database file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Delete removes the database file and any engine side files. It returns
// an error wrapping ErrNotFound if there is no database at path.
func Delete(path string, d Dialect) error {
	if !Exists(path) {
		return fmt.Errorf("%w at %s", ErrNotFound, path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing database: %w", err)
	}
	for _, side := range d.sideFiles(path) {
		if err := os.Remove(side); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", side, err)
		}
	}
	return nil
}

// Create opens the database at path, creating it and its directory if needed.
func Create(path string, d Dialect) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return open(path, d)
}

// Open opens an existing database. It returns an error wrapping
// ErrNotFound if there is no database at path.
func Open(path string, d Dialect) (*DB, error) {
	if !Exists(path) {
		return nil, fmt.Errorf("%w at %s", ErrNotFound, path)
	}
	return open(path, d)
}

func open(path string, d Dialect) (*DB, error) {
	db, err := openDB(path, d)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	return &DB{Path: path, Dialect: d, db: db}, nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Append inserts rows into table within a single transaction, creating the
// table from columns if it does not exist. Rows are appended as-is; nothing
// is matched against existing content. It returns the number of rows
// inserted.
func (s *DB) Append(ctx context.Context, table string, columns []string, rows []catalog.Source) (int, error) {
	ddl, err := GenerateDDL(table, columns)
	if err != nil {
		return 0, err
	}
	cols := make([]*catalog.Column, len(columns))
	for i, name := range columns {
		cols[i], _ = catalog.LookupColumn(name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("creating table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, GenerateInsert(table, columns))
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	values := make([]any, len(cols))
	for i := range rows {
		for j, c := range cols {
			values[j] = c.Get(&rows[i])
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("inserting row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(rows), nil
}

// CreateIndexes creates a secondary index on each column, if absent.
func (s *DB) CreateIndexes(ctx context.Context, table string, columns ...string) error {
	for _, col := range columns {
		ddl, err := GenerateIndexDDL(table, col)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating index for %s: %w", col, err)
		}
	}
	return nil
}

// Columns returns the live column names of table.
func (s *DB) Columns(ctx context.Context, table string) ([]string, error) {
	if err := sqlexpr.ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", sqlexpr.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", table, err)
	}
	defer rows.Close()
	return rows.Columns()
}

// Count returns the number of rows in table.
func (s *DB) Count(ctx context.Context, table string) (int64, error) {
	if err := sqlexpr.ValidateIdentifier(table); err != nil {
		return 0, fmt.Errorf("invalid table name: %w", err)
	}
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", sqlexpr.QuoteIdentifier(table))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// Select returns all rows of table matching where, capped at limit rows
// when limit > 0. No ordering is imposed.
func (s *DB) Select(ctx context.Context, table string, where sqlexpr.Expr, limit int) (*catalog.ResultSet, error) {
	if err := sqlexpr.ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	cond, args, err := sqlexpr.Render(where)
	if err != nil {
		return nil, fmt.Errorf("rendering filter: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", sqlexpr.QuoteIdentifier(table), cond)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// scanSources converts SQL rows to a result set.
func scanSources(rows *sql.Rows) (*catalog.ResultSet, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make([]*catalog.Column, len(names))
	for i, name := range names {
		col, ok := catalog.LookupColumn(name)
		if !ok {
			return nil, fmt.Errorf("%w %q in table", catalog.ErrUnknownColumn, name)
		}
		cols[i] = col
	}

	rs := &catalog.ResultSet{Columns: names}
	values := make([]any, len(names))
	valuePtrs := make([]any, len(names))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		var src catalog.Source
		for i, c := range cols {
			if err := c.Set(&src, values[i]); err != nil {
				return nil, err
			}
		}
		rs.Rows = append(rs.Rows, src)
	}

	return rs, rows.Err()
}

// Stat returns information about the database at path. A missing
// database is reported with Exists false rather than an error.
func Stat(ctx context.Context, path string, d Dialect, table string) (*Info, error) {
	info := &Info{Path: path, Dialect: d, Table: table}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return info, nil
		}
		return nil, fmt.Errorf("reading database file: %w", err)
	}
	info.Exists = true
	info.Size = stat.Size()

	db, err := Open(path, d)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// A database without the table is still reported
	if info.Columns, err = db.Columns(ctx, table); err != nil {
		info.Error = err.Error()
		return info, nil
	}
	if info.Rows, err = db.Count(ctx, table); err != nil {
		info.Error = err.Error()
	}
	return info, nil
}
