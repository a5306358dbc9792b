package report

import "errors"

// Sentinel errors for report decoding and persistence.
var (
	// ErrInvalidReport indicates a file that is not a run report.
	ErrInvalidReport = errors.New("report: invalid run report")

	// ErrInvalidResults indicates a file that is not a suite results array.
	ErrInvalidResults = errors.New("report: invalid suite results")
)
