package main

import (
	"errors"

	"github.com/matsen/gaiaoffline/internal/archive"
	"github.com/matsen/gaiaoffline/internal/catalog"
	"github.com/matsen/gaiaoffline/internal/photometry"
)

// Exit codes
const (
	ExitSuccess        = 0 // Success
	ExitError          = 1 // General error, missing database, no connection
	ExitConfigError    = 2 // Configuration error (missing G flux column, bad magnitude limit, bad unit)
	ExitRetrievalError = 3 // Archive error (network, timeout, bad status, undecodable chunk)
)

// exitCodeFor classifies an error returned by the library packages.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, catalog.ErrInvalidConfig), errors.Is(err, photometry.ErrInvalidUnit):
		return ExitConfigError
	case archive.IsRetrievalError(err), errors.Is(err, archive.ErrInvalidChunk):
		return ExitRetrievalError
	default:
		return ExitError
	}
}
