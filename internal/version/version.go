// Package version reports the engine and build version.
package version

import "fmt"

// Engine version, reported the way zbar_version does: major.minor.
const (
	Major = 0
	Minor = 23
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// Engine returns the engine version as "major.minor".
func Engine() string {
	return fmt.Sprintf("%d.%d", Major, Minor)
}

// String renders the full version line printed by the CLI.
func String() string {
	return fmt.Sprintf("zbarimg %s (engine %s, commit %s, built %s)", Version, Engine(), GitCommit, BuildDate)
}
