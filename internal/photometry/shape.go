package photometry

import (
	"database/sql"
	"fmt"
	"slices"

	"github.com/matsen/gaiaoffline/internal/catalog"
)

// Shape converts rs in place to the requested unit. In flux mode the result
// set is returned untouched. In mag mode every present flux column is
// replaced by a magnitude column computed with that band's zero point, and
// a present flux error column is replaced by a magnitude error column.
// On error rs is left unchanged.
func Shape(rs *catalog.ResultSet, zeropoints [catalog.NumBands]float64, unit Unit) error {
	switch unit {
	case UnitFlux:
		return nil
	case UnitMag:
	default:
		return unit.Validate()
	}

	out := &catalog.ResultSet{Columns: slices.Clone(rs.Columns), Rows: slices.Clone(rs.Rows)}
	if err := shapeMag(out, zeropoints); err != nil {
		return err
	}
	*rs = *out
	return nil
}

func shapeMag(rs *catalog.ResultSet, zeropoints [catalog.NumBands]float64) error {
	for _, b := range catalog.Bands {
		if !rs.Has(b.FluxColumn()) {
			continue
		}
		if rs.Has(b.FluxErrorColumn()) && !rs.Has(b.MagErrorColumn()) {
			for i := range rs.Rows {
				p := &rs.Rows[i].Phot[b]
				magErr, err := magnitudeError(p.FluxError, p.Flux)
				if err != nil {
					return fmt.Errorf("row %d %s: %w", i, b.FluxErrorColumn(), err)
				}
				p.MagError = magErr
				p.FluxError = sql.NullFloat64{}
			}
			rs.Replace(b.FluxErrorColumn(), b.MagErrorColumn())
		}
		if !rs.Has(b.MagColumn()) {
			for i := range rs.Rows {
				p := &rs.Rows[i].Phot[b]
				mag, err := magnitude(p.Flux, zeropoints[b])
				if err != nil {
					return fmt.Errorf("row %d %s: %w", i, b.FluxColumn(), err)
				}
				p.Mag = mag
				p.Flux = sql.NullFloat64{}
			}
			rs.Replace(b.FluxColumn(), b.MagColumn())
		}
	}
	return nil
}

func magnitude(flux sql.NullFloat64, zeropoint float64) (sql.NullFloat64, error) {
	if !flux.Valid {
		return sql.NullFloat64{}, nil
	}
	m, err := FluxToMagnitude(flux.Float64, zeropoint)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: m, Valid: true}, nil
}

func magnitudeError(fluxErr, flux sql.NullFloat64) (sql.NullFloat64, error) {
	if !fluxErr.Valid || !flux.Valid {
		return sql.NullFloat64{}, nil
	}
	e, err := FluxErrorToMagnitudeError(fluxErr.Float64, flux.Float64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: e, Valid: true}, nil
}
