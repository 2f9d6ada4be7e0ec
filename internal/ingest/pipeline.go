// Package ingest builds the local catalog database from archive chunks.
package ingest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matsen/gaiaoffline/internal/archive"
	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/photometry"
	"github.com/matsen/gaiaoffline/internal/store"
)

// DefaultFileLimit is the number of sources ingested when no limit is given.
const DefaultFileLimit = 4

// Fetcher opens a remote chunk for reading.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Progress is notified after each source has been appended.
type Progress interface {
	SourceDone(done, total int, source string, kept int)
}

// Summary describes a completed build.
type Summary struct {
	Path       string   `json:"path"`
	Table      string   `json:"table"`
	Sources    int      `json:"sources"`
	Skipped    int      `json:"skipped"`
	RowsRead   int64    `json:"rows_read"`
	RowsKept   int64    `json:"rows_kept"`
	Columns    []string `json:"columns"`
	DurationMS int64    `json:"duration_ms"`
}

// Pipeline ingests archive chunks into a freshly created database.
type Pipeline struct {
	cfg      catalog.Config
	path     string
	dialect  store.Dialect
	fetcher  Fetcher
	skipRows int
	logger   *zap.Logger
	progress Progress
	metrics  *metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDialect selects the storage engine.
func WithDialect(d store.Dialect) Option {
	return func(p *Pipeline) {
		p.dialect = d
	}
}

// WithSkipRows sets the number of preamble lines before each chunk header.
func WithSkipRows(n int) Option {
	return func(p *Pipeline) {
		p.skipRows = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithProgress sets the progress observer.
func WithProgress(pr Progress) Option {
	return func(p *Pipeline) {
		p.progress = pr
	}
}

// WithRegisterer registers the pipeline metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Pipeline) {
		p.metrics = newMetrics(reg)
	}
}

// New creates a pipeline writing to the database at path.
func New(cfg catalog.Config, path string, fetcher Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		path:     path,
		dialect:  store.DialectSQLite,
		fetcher:  fetcher,
		skipRows: archive.DefaultSkipRows,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = newMetrics(nil)
	}
	return p
}

// Build recreates the database from the first fileLimit sources. A
// fileLimit of zero or less means DefaultFileLimit. The configuration is
// checked before anything on disk is touched; any later failure aborts the
// run and leaves the rows of earlier sources in place.
func (p *Pipeline) Build(ctx context.Context, sources []string, fileLimit int) (*Summary, error) {
	start := time.Now()

	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	if fileLimit <= 0 {
		fileLimit = DefaultFileLimit
	}
	summary := &Summary{Path: p.path, Table: p.cfg.TableName}
	if len(sources) > fileLimit {
		for _, src := range sources[fileLimit:] {
			p.logger.Debug("skipping source beyond file limit", zap.String("source", src))
		}
		summary.Skipped = len(sources) - fileLimit
		sources = sources[:fileLimit]
	}

	if store.Exists(p.path) {
		p.logger.Info("deleting existing database", zap.String("path", p.path))
		if err := store.Delete(p.path, p.dialect); err != nil {
			return nil, err
		}
	}

	db, err := store.Create(p.path, p.dialect)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	for i, src := range sources {
		logger := p.logger.With(zap.String("source", src), zap.Int("index", i+1), zap.Int("total", len(sources)))
		logger.Info("ingesting source")

		res, err := p.ingestSource(ctx, db, src)
		if err != nil {
			return summary, fmt.Errorf("ingesting %s: %w", src, err)
		}

		summary.Sources++
		summary.RowsRead += res.read
		summary.RowsKept += int64(res.kept)
		if summary.Columns == nil {
			summary.Columns = res.columns
		}
		p.metrics.sources.Inc()
		p.metrics.rowsRead.Add(float64(res.read))
		p.metrics.rowsKept.Add(float64(res.kept))

		logger.Info("source ingested", zap.Int64("rows_read", res.read), zap.Int("rows_kept", res.kept))
		if p.progress != nil {
			p.progress.SourceDone(i+1, len(sources), src, res.kept)
		}
	}

	if summary.Columns != nil {
		var indexed []string
		for _, col := range catalog.IndexedColumns {
			if slices.Contains(summary.Columns, col) {
				indexed = append(indexed, col)
			}
		}
		if err := db.CreateIndexes(ctx, p.cfg.TableName, indexed...); err != nil {
			return summary, err
		}
		p.logger.Info("indexes created", zap.Strings("columns", indexed))
	} else {
		p.logger.Warn("no sources ingested, database is empty", zap.String("path", p.path))
	}

	summary.DurationMS = time.Since(start).Milliseconds()
	return summary, nil
}

type sourceResult struct {
	read    int64
	kept    int
	columns []string
}

// ingestSource fetches one chunk, keeps the rows brighter than the
// magnitude limit and appends them in one transaction.
func (p *Pipeline) ingestSource(ctx context.Context, db *store.DB, src string) (*sourceResult, error) {
	rc, err := p.fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	cr, err := archive.NewChunkReader(rc, p.skipRows, p.cfg.StoredColumns)
	if err != nil {
		return nil, err
	}
	if !cr.Has(catalog.ColumnGFlux) {
		return nil, fmt.Errorf("%w (absent from chunk header)", catalog.ErrMissingGFlux)
	}

	res := &sourceResult{columns: cr.Columns()}
	zp := p.cfg.GZeropoint()
	var rows []catalog.Source
	for {
		row, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res.read++

		keep, err := p.bright(&row, zp)
		if err != nil {
			return nil, err
		}
		if keep {
			rows = append(rows, row)
		}
	}

	if res.kept, err = db.Append(ctx, p.cfg.TableName, res.columns, rows); err != nil {
		return nil, err
	}
	return res, nil
}

// bright reports whether the row's G magnitude is strictly below the
// magnitude limit. Rows without a G flux are never kept.
func (p *Pipeline) bright(row *catalog.Source, zp float64) (bool, error) {
	flux := row.GFlux()
	if !flux.Valid {
		return false, nil
	}
	mag, err := photometry.FluxToMagnitude(flux.Float64, zp)
	if err != nil {
		return false, fmt.Errorf("source_id %d: %w", row.SourceID, err)
	}
	return mag < p.cfg.MagnitudeLimit, nil
}
