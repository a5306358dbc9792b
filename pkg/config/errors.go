package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates the configuration is syntactically
	// or semantically invalid (bad YAML, negative pacing, etc.).
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrInvalidTarget indicates the base URL is not an absolute
	// http(s) URL.
	ErrInvalidTarget = errors.New("config: invalid target URL")
)
