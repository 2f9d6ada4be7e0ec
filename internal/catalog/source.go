// Package catalog defines the Gaia source record, its column registry and the
// catalog configuration shared by ingestion and queries.
package catalog

import (
	"database/sql"
)

// Band identifies a photometric band. The order of Bands matches the order
// of the configured zero points: G first, then BP, then RP.
type Band int

const (
	BandG Band = iota
	BandBP
	BandRP

	NumBands = 3
)

// Bands lists all photometric bands in zero point order.
var Bands = [NumBands]Band{BandG, BandBP, BandRP}

var bandNames = [NumBands]string{"g", "bp", "rp"}

// String returns the lowercase band name used in column names.
func (b Band) String() string {
	if b < 0 || int(b) >= NumBands {
		return "unknown"
	}
	return bandNames[b]
}

// FluxColumn returns phot_<band>_mean_flux.
func (b Band) FluxColumn() string { return "phot_" + b.String() + "_mean_flux" }

// FluxErrorColumn returns phot_<band>_mean_flux_error.
func (b Band) FluxErrorColumn() string { return b.FluxColumn() + "_error" }

// MagColumn returns phot_<band>_mean_mag.
func (b Band) MagColumn() string { return "phot_" + b.String() + "_mean_mag" }

// MagErrorColumn returns phot_<band>_mean_mag_error.
func (b Band) MagErrorColumn() string { return b.MagColumn() + "_error" }

// Photometry holds the brightness columns for one band. Mag and MagError are
// only populated when results are shaped into magnitudes.
type Photometry struct {
	Flux      sql.NullFloat64
	FluxError sql.NullFloat64
	Mag       sql.NullFloat64
	MagError  sql.NullFloat64
}

// Source is one row of the catalog.
type Source struct {
	SourceID       int64
	RA             float64 // degrees
	Dec            float64 // degrees
	Parallax       sql.NullFloat64
	PMRA           sql.NullFloat64
	PMDec          sql.NullFloat64
	RadialVelocity sql.NullFloat64
	Phot           [NumBands]Photometry
	TeffGSPPhot    sql.NullFloat64
	LoggGSPPhot    sql.NullFloat64
	MHGSPPhot      sql.NullFloat64
}

// GFlux returns the G-band mean flux.
func (s *Source) GFlux() sql.NullFloat64 {
	return s.Phot[BandG].Flux
}
