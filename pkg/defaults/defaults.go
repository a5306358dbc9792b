// Package defaults provides canonical default values for secprobe.
//
// Usage:
//
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//	email := defaults.TestEmail("mass-assign", tag)
//
// Probe fixtures live here so every suite registers and logs in the same way.
package defaults

import (
	"fmt"
	"time"
)

// Version is the current secprobe version
const Version = "1.3.0"

// ToolName is used in the banner, User-Agent and created account names.
const ToolName = "secprobe"

// UserAgent is sent with every probe request.
var UserAgent = fmt.Sprintf("%s/%s", ToolName, Version)

// ============================================================================
// TARGET
// ============================================================================

const (
	// BaseURL is the target used when BASE_URL is not configured.
	BaseURL = "https://evenleads.com"

	// OutputDir is where result files are written.
	OutputDir = "."

	// LogDir is where the rotating log file is written.
	LogDir = "logs"

	// LogLevel is the default zap level.
	LogLevel = "info"
)

// ============================================================================
// CONCURRENCY
// ============================================================================

const (
	// ConcurrencyParallelProbe is the size of the parallel login burst (10)
	ConcurrencyParallelProbe = 10
)

// ============================================================================
// FIXTURES
// ============================================================================

const (
	// Password is the password of every account created on the target.
	Password = "Password123"

	// EmailDomain is the domain of every account created on the target.
	EmailDomain = "example.com"

	// ProbeEmail is the fixed address used by brute-force login probes.
	ProbeEmail = "test@example.com"

	// FarFuture is the trial end date used by trial manipulation probes.
	FarFuture = "2099-12-31 23:59:59"

	// HostileOrigin is sent as Origin by the CORS probe.
	HostileOrigin = "https://evil.com"
)

// TestEmail returns a unique, run-tagged address for an account created by
// the given probe. The tag identifies which run created the account.
func TestEmail(prefix, tag string) string {
	return fmt.Sprintf("%s-%d-%s@%s", prefix, time.Now().UnixNano(), tag, EmailDomain)
}

// AccountName returns the display name for a created account.
func AccountName(label, tag string) string {
	if tag == "" {
		return label
	}
	return fmt.Sprintf("%s [%s %s]", label, ToolName, tag)
}

// ============================================================================
// CONTENT TYPES
// ============================================================================

const (
	ContentTypeJSON      = "application/json"
	ContentTypeJPEG      = "image/jpeg"
	ContentTypeSVG       = "image/svg+xml"
	ContentTypeOctet     = "application/octet-stream"
	ContentTypeZip       = "application/zip"
	ContentTypeMultipart = "multipart/form-data"
)

// ============================================================================
// LIMITS
// ============================================================================

const (
	// MaxBodySize caps how much of a response body is read (1 MiB).
	MaxBodySize = 1 << 20

	// OversizedUpload is the size of the oversized upload probe (20 MiB).
	OversizedUpload = 20 << 20
)
