package ratelimit

import "errors"

// Sentinel errors for limiter construction. A constructed Limiter never
// returns errors other than context cancellation.
var (
	// ErrUnknownPreset indicates a preset name outside fast/balanced/stealth/custom.
	ErrUnknownPreset = errors.New("ratelimit: unknown preset")

	// ErrInvalidRate indicates a negative requests-per-second value.
	ErrInvalidRate = errors.New("ratelimit: invalid rate")
)
