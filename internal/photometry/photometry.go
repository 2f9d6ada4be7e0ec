// Package photometry converts between flux and magnitude for a band with a
// fixed zero point, and shapes query results into the requested unit.
package photometry

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNonPositiveFlux is returned when a flux is zero, negative or NaN.
var ErrNonPositiveFlux = errors.New("flux must be positive")

// magErrorScale is 2.5/ln(10).
var magErrorScale = 2.5 / math.Ln10

// FluxToMagnitude returns zeropoint - 2.5*log10(flux).
func FluxToMagnitude(flux, zeropoint float64) (float64, error) {
	if !(flux > 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonPositiveFlux, flux)
	}
	return zeropoint - 2.5*math.Log10(flux), nil
}

// MagnitudeToFluxThreshold returns 10^((zeropoint-magnitude)/2.5) rounded
// to the nearest integer, half to even. Brighter (lower) magnitudes give
// higher thresholds.
func MagnitudeToFluxThreshold(magnitude, zeropoint float64) float64 {
	return math.RoundToEven(math.Pow(10, (zeropoint-magnitude)/2.5))
}

// FluxErrorToMagnitudeError propagates a flux uncertainty to magnitudes.
func FluxErrorToMagnitudeError(fluxError, flux float64) (float64, error) {
	if !(flux > 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonPositiveFlux, flux)
	}
	return magErrorScale * fluxError / flux, nil
}

// Unit selects how photometry columns are returned.
type Unit string

const (
	UnitFlux Unit = "flux"
	UnitMag  Unit = "mag"
)

// ErrInvalidUnit indicates an output unit other than flux or mag.
var ErrInvalidUnit = errors.New("invalid photometry output unit")

// ParseUnit parses a unit name, ignoring case.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitFlux:
		return UnitFlux, nil
	case UnitMag:
		return UnitMag, nil
	}
	return "", fmt.Errorf("%w: %q (valid: flux, mag)", ErrInvalidUnit, s)
}

// Validate returns ErrInvalidUnit for anything but flux or mag.
func (u Unit) Validate() error {
	_, err := ParseUnit(string(u))
	return err
}
