package photometry

import (
	"database/sql"
	"math"
	"testing"

	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zpG = 25.6873668671

var zeropoints = [catalog.NumBands]float64{zpG, 25.3385422158, 24.7478955012}

func TestFluxToMagnitude(t *testing.T) {
	tests := []struct {
		flux float64
		want float64
	}{
		{1, zpG},
		{10, zpG - 2.5},
		{1000, zpG - 7.5},
		{5000, zpG - 2.5*math.Log10(5000)},
	}
	for _, tt := range tests {
		got, err := FluxToMagnitude(tt.flux, zpG)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12, "flux %v", tt.flux)
	}
}

func TestFluxToMagnitude_NonPositive(t *testing.T) {
	for _, flux := range []float64{0, -1, math.NaN()} {
		_, err := FluxToMagnitude(flux, zpG)
		assert.ErrorIs(t, err, ErrNonPositiveFlux, "flux %v", flux)
	}
}

func TestMagnitudeToFluxThreshold(t *testing.T) {
	// 10^((zp-m)/2.5) at m = zp is exactly 1.
	assert.Equal(t, 1.0, MagnitudeToFluxThreshold(zpG, zpG))
	assert.Equal(t, 100.0, MagnitudeToFluxThreshold(zpG-5, zpG))

	// Integer valued.
	got := MagnitudeToFluxThreshold(15, zpG)
	assert.Equal(t, math.Trunc(got), got)
}

func TestMagnitudeToFluxThreshold_Monotonic(t *testing.T) {
	prev := math.Inf(1)
	for m := -3.0; m <= 20; m += 0.5 {
		f := MagnitudeToFluxThreshold(m, zpG)
		assert.LessOrEqual(t, f, prev, "magnitude %v", m)
		prev = f
	}
	assert.Greater(t, MagnitudeToFluxThreshold(10, zpG), MagnitudeToFluxThreshold(15, zpG))
}

func TestFluxMagnitudeRoundTrip(t *testing.T) {
	for _, flux := range []float64{1, 37, 1000, 5000, 50000, 123456, 9.87e6} {
		mag, err := FluxToMagnitude(flux, zpG)
		require.NoError(t, err)
		back := MagnitudeToFluxThreshold(mag, zpG)
		assert.InDelta(t, flux, back, 0.5, "flux %v", flux)
	}
}

func TestFluxErrorToMagnitudeError(t *testing.T) {
	got, err := FluxErrorToMagnitudeError(50, 5000)
	require.NoError(t, err)
	assert.InDelta(t, (2.5/math.Ln10)*0.01, got, 1e-15)

	_, err = FluxErrorToMagnitudeError(1, 0)
	assert.ErrorIs(t, err, ErrNonPositiveFlux)
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		input   string
		want    Unit
		wantErr bool
	}{
		{"flux", UnitFlux, false},
		{"mag", UnitMag, false},
		{"MAG", UnitMag, false},
		{" Flux ", UnitFlux, false},
		{"jansky", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUnit(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUnit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func valid(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func shapedFixture() *catalog.ResultSet {
	var a, b catalog.Source
	a.SourceID = 1
	a.Phot[catalog.BandG].Flux = valid(5000)
	a.Phot[catalog.BandG].FluxError = valid(50)
	a.Phot[catalog.BandBP].Flux = valid(2000)
	b.SourceID = 2
	b.Phot[catalog.BandG].Flux = valid(50000)
	return &catalog.ResultSet{
		Columns: []string{"source_id", "phot_g_mean_flux", "phot_g_mean_flux_error", "phot_bp_mean_flux"},
		Rows:    []catalog.Source{a, b},
	}
}

func TestShape_Mag(t *testing.T) {
	rs := shapedFixture()
	require.NoError(t, Shape(rs, zeropoints, UnitMag))

	assert.Equal(t, []string{"source_id", "phot_g_mean_mag", "phot_g_mean_mag_error", "phot_bp_mean_mag"}, rs.Columns)
	assert.False(t, rs.Has("phot_g_mean_flux"))

	gmag := rs.Value(0, "phot_g_mean_mag").(float64)
	assert.InDelta(t, zpG-2.5*math.Log10(5000), gmag, 1e-12)

	gmagErr := rs.Value(0, "phot_g_mean_mag_error").(float64)
	assert.InDelta(t, (2.5/math.Ln10)*(50.0/5000.0), gmagErr, 1e-12)

	bpmag := rs.Value(0, "phot_bp_mean_mag").(float64)
	assert.InDelta(t, zeropoints[catalog.BandBP]-2.5*math.Log10(2000), bpmag, 1e-12)

	// Null BP flux stays null as a magnitude.
	assert.Nil(t, rs.Value(1, "phot_bp_mean_mag"))
	assert.Nil(t, rs.Value(1, "phot_g_mean_mag_error"))
}

func TestShape_Flux(t *testing.T) {
	rs := shapedFixture()
	require.NoError(t, Shape(rs, zeropoints, UnitFlux))
	assert.Equal(t, []string{"source_id", "phot_g_mean_flux", "phot_g_mean_flux_error", "phot_bp_mean_flux"}, rs.Columns)
	assert.Equal(t, 5000.0, rs.Value(0, "phot_g_mean_flux"))
}

func TestShape_InvalidUnit(t *testing.T) {
	rs := shapedFixture()
	assert.ErrorIs(t, Shape(rs, zeropoints, Unit("counts")), ErrInvalidUnit)
}

func TestShape_NonPositiveFlux(t *testing.T) {
	rs := shapedFixture()
	rs.Rows[1].Phot[catalog.BandG].Flux = valid(0)
	assert.ErrorIs(t, Shape(rs, zeropoints, UnitMag), ErrNonPositiveFlux)

	want := shapedFixture()
	want.Rows[1].Phot[catalog.BandG].Flux = valid(0)
	assert.Equal(t, want, rs, "failed shaping leaves the result set unchanged")
}
