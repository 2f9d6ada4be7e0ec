package archive

import (
	"errors"
	"fmt"
)

// Common errors returned by the archive client.
var (
	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error communicating with archive")

	// ErrTimeout indicates a retrieval exceeded its time budget.
	ErrTimeout = errors.New("archive request timed out")

	// ErrBadStatus indicates a non-success HTTP status.
	ErrBadStatus = errors.New("archive returned an error status")

	// ErrInvalidChunk indicates a chunk that cannot be decoded.
	ErrInvalidChunk = errors.New("invalid archive chunk")
)

// StatusError carries the HTTP status of a failed request.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("archive error (status %d): %s", e.StatusCode, e.URL)
}

// Unwrap makes errors.Is(err, ErrBadStatus) hold for every StatusError.
func (e *StatusError) Unwrap() error {
	return ErrBadStatus
}

// IsNotFound returns true if the error indicates the resource was not found.
func IsNotFound(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 404
	}
	return false
}

// IsRetrievalError returns true for any network, timeout or status error.
func IsRetrievalError(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrBadStatus)
}
