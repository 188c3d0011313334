package finding

import "errors"

// Sentinel errors for scan-level failures.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidTarget indicates the scan seed URL could not be used.
	ErrInvalidTarget = errors.New("finding: invalid target")

	// ErrScanCancelled indicates the scan was aborted before completion.
	ErrScanCancelled = errors.New("finding: scan cancelled")
)
