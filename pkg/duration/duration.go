// Package duration provides canonical time constants for secprobe.
//
// Usage:
//
//	req.Timeout = duration.HTTPStandard
//	Pacing: duration.ProbePacing,
//
// Reference these instead of hardcoding `10 * time.Second` in probes.
package duration

import "time"

// ============================================================================
// HTTP REQUEST TIMEOUTS
// ============================================================================

const (
	// HTTPBrute is for the brute-force loops in the rate limiting suite (5s)
	HTTPBrute = 5 * time.Second

	// HTTPStandard is the default per-request timeout (10s)
	HTTPStandard = 10 * time.Second

	// HTTPUpload is for multipart uploads (15s)
	HTTPUpload = 15 * time.Second

	// HTTPLargeUpload is for the oversized upload probe (30s)
	HTTPLargeUpload = 30 * time.Second

	// DialTimeout bounds connection establishment (10s)
	DialTimeout = 10 * time.Second
)

// ============================================================================
// PACING
// ============================================================================

const (
	// ProbePacing is the delay between probes of a suite (1s)
	ProbePacing = 1 * time.Second

	// RateSuitePacing is the delay between rate limiting probes (2s)
	RateSuitePacing = 2 * time.Second

	// SuiteGap is the delay between suites of a run (2s)
	SuiteGap = 2 * time.Second

	// LoginAttemptInterval spaces brute-force login attempts (100ms)
	LoginAttemptInterval = 100 * time.Millisecond

	// RegisterAttemptInterval spaces registration attempts (200ms)
	RegisterAttemptInterval = 200 * time.Millisecond

	// AdminRequestGap spaces requests against admin endpoints (500ms)
	AdminRequestGap = 500 * time.Millisecond
)

// ============================================================================
// SHUTDOWN
// ============================================================================

const (
	// SignalGrace is how long a second interrupt forces an exit (10s)
	SignalGrace = 10 * time.Second

	// TracingShutdown bounds the span exporter flush (5s)
	TracingShutdown = 5 * time.Second
)
