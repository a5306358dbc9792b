// Package iohelper provides helper functions for safely reading HTTP
// response bodies with limits.
package iohelper

import (
	"io"
)

// DefaultMaxBodySize is for general responses (1MB)
const DefaultMaxBodySize int64 = 1024 * 1024

// ReadBody reads from an io.Reader with a size limit.
// If r is nil, returns empty slice and no error.
//
// Usage:
//
//	body, err := iohelper.ReadBody(resp.Body, iohelper.DefaultMaxBodySize)
//	defer resp.Body.Close()
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose discards what is left of a body, bounded by the default
// limit, and closes it so the connection can be reused.
func DrainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, DefaultMaxBodySize))
	_ = rc.Close()
}
