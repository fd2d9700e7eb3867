// Package cli provides the thin I/O conventions shared by the
// coordinator's command-line driver: a dashboard/interactive mode
// switch and single-line JSON output, independent of which subcommand
// is running.
package cli

import (
	"os"
	"strings"
)

// Mode represents the CLI operating mode.
type Mode string

const (
	// ModeInteractive prints human-readable text to stdout.
	ModeInteractive Mode = "interactive"

	// ModeDashboard prints single-line JSON to stdout and reserves
	// stderr for logs, for callers that parse the CLI's output.
	ModeDashboard Mode = "dashboard"
)

// DetectMode reads MSIG_CLI_MODE (case-insensitive). Any value other
// than "dashboard", including unset, defaults to ModeInteractive.
func DetectMode() Mode {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("MSIG_CLI_MODE")))
	if v == "dashboard" {
		return ModeDashboard
	}
	return ModeInteractive
}

func IsInteractive() bool { return DetectMode() == ModeInteractive }
func IsDashboard() bool   { return DetectMode() == ModeDashboard }
