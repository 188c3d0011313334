// Package iohelper reads HTTP response bodies with size limits and drains
// them so pooled connections can be reused.
package iohelper

import "io"

// Body size limits
const (
	// SmallMaxBodySize is for error pages and redirect bodies (8KB)
	SmallMaxBodySize int64 = 8 * 1024

	// DefaultMaxBodySize is for crawled pages and probe responses (1MB)
	DefaultMaxBodySize int64 = 1024 * 1024

	// drainLimit caps how much of an unread body is discarded on close (64KB)
	drainLimit int64 = 64 * 1024
)

// ReadBody reads at most maxSize bytes from r. A nil reader yields an
// empty slice. A non-positive maxSize uses DefaultMaxBodySize.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadBodyDefault reads from r with the default 1MB limit.
func ReadBodyDefault(r io.Reader) ([]byte, error) {
	return ReadBody(r, DefaultMaxBodySize)
}

// DrainAndClose discards what is left of r (bounded) and closes it if it is
// a ReadCloser. It always returns nil so it can be deferred directly.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
