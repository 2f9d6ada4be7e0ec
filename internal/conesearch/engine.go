// Package conesearch answers positional queries against the local catalog:
// every source within an angular radius of a sky position, inside a
// G-band brightness window.
package conesearch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/photometry"
	"github.com/matsen/gaiaoffline/internal/sqlexpr"
	"github.com/matsen/gaiaoffline/internal/store"
)

var (
	// ErrInvalidMagnitudeLimit indicates a magnitude window that is not a pair.
	ErrInvalidMagnitudeLimit = fmt.Errorf("%w: magnitude limit must have exactly two values", catalog.ErrInvalidConfig)

	// ErrNoConnection indicates the engine has no open database.
	ErrNoConnection = errors.New("no database connection")
)

// DefaultMagnitudeLimit is the brightness window used when none is given.
var DefaultMagnitudeLimit = []float64{-3, 20}

// DefaultBenchmarkIterations is the number of reference queries Benchmark
// runs when asked for zero or fewer.
const DefaultBenchmarkIterations = 100

// Reference query used by Benchmark.
const (
	BenchmarkRA     = 45.0
	BenchmarkDec    = 6.0
	BenchmarkRadius = 0.2
)

// Engine runs cone searches against an open catalog database.
type Engine struct {
	cfg      catalog.Config
	magLimit []float64
	rowLimit int
	unit     photometry.Unit
	db       *store.DB
	logger   *zap.Logger
	latency  prometheus.Histogram
}

// Option configures an Engine.
type Option func(*Engine)

// WithMagnitudeLimit sets the G magnitude window. The two bounds may be
// given in either order.
func WithMagnitudeLimit(limits ...float64) Option {
	return func(e *Engine) {
		e.magLimit = limits
	}
}

// WithRowLimit caps the number of returned rows. Zero means no cap.
func WithRowLimit(n int) Option {
	return func(e *Engine) {
		e.rowLimit = n
	}
}

// WithUnit sets the photometry output unit.
func WithUnit(u photometry.Unit) Option {
	return func(e *Engine) {
		e.unit = u
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRegisterer registers the query latency histogram on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.latency = newLatencyHistogram(reg)
	}
}

// New creates an engine over an already open database.
func New(db *store.DB, cfg catalog.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		magLimit: DefaultMagnitudeLimit,
		unit:     photometry.UnitFlux,
		db:       db,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.latency == nil {
		e.latency = newLatencyHistogram(nil)
	}

	if len(e.magLimit) != 2 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidMagnitudeLimit, len(e.magLimit))
	}
	if err := e.unit.Validate(); err != nil {
		return nil, err
	}
	if err := sqlexpr.ValidateIdentifier(cfg.TableName); err != nil {
		return nil, fmt.Errorf("%w: table name: %v", catalog.ErrInvalidConfig, err)
	}
	if e.rowLimit < 0 {
		return nil, fmt.Errorf("%w: row limit must not be negative", catalog.ErrInvalidConfig)
	}
	return e, nil
}

// Open opens the database at path and creates an engine over it. It
// returns an error wrapping store.ErrNotFound when there is no database.
func Open(path string, d store.Dialect, cfg catalog.Config, opts ...Option) (*Engine, error) {
	db, err := store.Open(path, d)
	if err != nil {
		return nil, err
	}
	e, err := New(db, cfg, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the database connection.
func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// BrightnessPredicate matches G fluxes strictly inside the window given by
// two magnitudes, in either order.
func BrightnessPredicate(zeropoint float64, limits []float64) (sqlexpr.Expr, error) {
	if len(limits) != 2 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidMagnitudeLimit, len(limits))
	}
	sorted := slices.Clone(limits)
	slices.Sort(sorted)

	// The brighter magnitude bounds the flux from above
	upper := photometry.MagnitudeToFluxThreshold(sorted[0], zeropoint)
	lower := photometry.MagnitudeToFluxThreshold(sorted[1], zeropoint)

	flux := sqlexpr.Col(catalog.ColumnGFlux)
	return sqlexpr.And(
		sqlexpr.Lt(flux, sqlexpr.Num(upper)),
		sqlexpr.Gt(flux, sqlexpr.Num(lower)),
	), nil
}

// CapPredicate matches every position whose great-circle distance from
// (ra, dec) is at most radius. All angles are in degrees.
func CapPredicate(ra, dec, radius float64) sqlexpr.Expr {
	ra0 := radians(ra)
	dec0 := radians(dec)

	rowRA := sqlexpr.Call("radians", sqlexpr.Col(catalog.ColumnRA))
	rowDec := sqlexpr.Call("radians", sqlexpr.Col(catalog.ColumnDec))

	// sin(d)sin(d0) + cos(d)cos(d0)cos(a - a0) >= cos(r)
	return sqlexpr.Ge(
		sqlexpr.Add(
			sqlexpr.Mul(sqlexpr.Call("sin", rowDec), sqlexpr.Num(math.Sin(dec0))),
			sqlexpr.Mul(
				sqlexpr.Mul(sqlexpr.Call("cos", rowDec), sqlexpr.Num(math.Cos(dec0))),
				sqlexpr.Call("cos", sqlexpr.Sub(rowRA, sqlexpr.Num(ra0))),
			),
		),
		sqlexpr.Num(math.Cos(radians(radius))),
	)
}

// Filter combines the cap and brightness predicates for a query.
func (e *Engine) Filter(ra, dec, radius float64) (sqlexpr.Expr, error) {
	brightness, err := BrightnessPredicate(e.cfg.GZeropoint(), e.magLimit)
	if err != nil {
		return nil, err
	}
	return sqlexpr.And(CapPredicate(ra, dec, radius), brightness), nil
}

// ConeSearch returns the sources within radius degrees of (ra, dec) inside
// the magnitude window, in the engine's output unit. Row order is
// unspecified.
func (e *Engine) ConeSearch(ctx context.Context, ra, dec, radius float64) (*catalog.ResultSet, error) {
	if e.db == nil {
		return nil, ErrNoConnection
	}
	where, err := e.Filter(ra, dec, radius)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rs, err := e.db.Select(ctx, e.cfg.TableName, where, e.rowLimit)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	e.latency.Observe(elapsed.Seconds())
	e.logger.Debug("cone search",
		zap.Float64("ra", ra),
		zap.Float64("dec", dec),
		zap.Float64("radius", radius),
		zap.Int("rows", rs.Len()),
		zap.Duration("latency", elapsed))

	if err := photometry.Shape(rs, e.cfg.Zeropoints, e.unit); err != nil {
		return nil, err
	}
	return rs, nil
}

// Columns returns the live column names of the catalog table.
func (e *Engine) Columns(ctx context.Context) ([]string, error) {
	if e.db == nil {
		return nil, ErrNoConnection
	}
	cols, err := e.db.Columns(ctx, e.cfg.TableName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConnection, err)
	}
	return cols, nil
}

// Benchmark runs the reference query iterations times and returns the mean
// wall-clock latency.
func (e *Engine) Benchmark(ctx context.Context, iterations int) (time.Duration, error) {
	if iterations <= 0 {
		iterations = DefaultBenchmarkIterations
	}

	var total time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if _, err := e.ConeSearch(ctx, BenchmarkRA, BenchmarkDec, BenchmarkRadius); err != nil {
			return 0, fmt.Errorf("benchmark iteration %d: %w", i+1, err)
		}
		total += time.Since(start)
	}

	mean := total / time.Duration(iterations)
	e.logger.Info("benchmark complete", zap.Int("iterations", iterations), zap.Duration("mean", mean))
	return mean, nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
