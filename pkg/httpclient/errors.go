package httpclient

import "errors"

// Sentinel errors for request construction.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidRequest indicates the request could not be built
	// (bad URL, unencodable payload).
	ErrInvalidRequest = errors.New("httpclient: invalid request")
)
