package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, no findings
	ExitFindings      = 1 // At least one vulnerability reported
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitScanAborted   = 3 // Invalid seed or cancelled scan
	ExitInternalError = 4 // Unexpected internal error
)
