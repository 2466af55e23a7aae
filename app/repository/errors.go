package repository

import "errors"

var (
	// ErrMissingColumn reports a row source without a column the requested
	// operation needs. Fatal for that call, never retried here.
	ErrMissingColumn = errors.New("required column missing")

	// ErrSourceUnavailable wraps I/O and query failures of the backing
	// export files or warehouse. Retries are caller policy.
	ErrSourceUnavailable = errors.New("data source unavailable")
)
