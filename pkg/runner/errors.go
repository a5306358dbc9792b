package runner

import "errors"

// Sentinel errors for runner failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrSuitePanic indicates a suite panicked outside of any probe.
	ErrSuitePanic = errors.New("runner: suite panicked")
)
