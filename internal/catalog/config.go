package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ErrInvalidConfig is the base of all catalog configuration errors.
var ErrInvalidConfig = errors.New("invalid catalog configuration")

var (
	// ErrMissingGFlux indicates phot_g_mean_flux is not a stored column.
	ErrMissingGFlux = fmt.Errorf("%w: phot_g_mean_flux must be included in the stored columns", ErrInvalidConfig)

	// ErrUnknownColumn indicates a stored column outside the registry.
	ErrUnknownColumn = fmt.Errorf("%w: unknown column", ErrInvalidConfig)
)

// validTableName matches SQL identifiers (letter or underscore, then alphanumerics).
var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config is the read-only catalog configuration handed to the ingestion
// pipeline and the query engine.
type Config struct {
	// Zeropoints are the G, BP and RP calibration constants, in that order.
	Zeropoints     [NumBands]float64
	StoredColumns  []string
	MagnitudeLimit float64
	TableName      string
}

// GZeropoint returns the G-band zero point.
func (c Config) GZeropoint() float64 {
	return c.Zeropoints[BandG]
}

// Validate checks the table name and stored columns.
func (c Config) Validate() error {
	if !validTableName.MatchString(c.TableName) {
		return fmt.Errorf("%w: table name %q is not a valid identifier", ErrInvalidConfig, c.TableName)
	}
	if err := c.CheckGFlux(); err != nil {
		return err
	}
	for _, name := range c.StoredColumns {
		col, ok := LookupColumn(name)
		if !ok || col.Output {
			return fmt.Errorf("%w %q", ErrUnknownColumn, name)
		}
	}
	return nil
}

// CheckGFlux returns ErrMissingGFlux unless phot_g_mean_flux is stored.
func (c Config) CheckGFlux() error {
	if !slices.Contains(c.StoredColumns, ColumnGFlux) {
		return ErrMissingGFlux
	}
	return nil
}
