package main

import (
	"errors"

	"github.com/shadowprobe/shadowprobe/pkg/config"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
)

// exitCode maps a command error onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return defaults.ExitSuccess
	case errors.Is(err, finding.ErrInvalidTarget), errors.Is(err, finding.ErrScanCancelled):
		return defaults.ExitScanAborted
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingRequired),
		errors.Is(err, config.ErrUnknownProfile):
		return defaults.ExitUserError
	default:
		return defaults.ExitInternalError
	}
}
