// Package version holds build++'s own version, set at compile time via
// -ldflags for BuildDate and GitCommit.
package version

// Version is the current semantic version of build++.
const Version = "0.1.0"

var (
	// BuildDate is set during build time (use -ldflags).
	BuildDate = "development"

	// GitCommit is set during build time (use -ldflags).
	GitCommit = "unknown"
)

// Info returns the short version string printed by the `version` subcommand.
func Info() string {
	return Version
}

// FullInfo returns detailed version information for diagnostics.
func FullInfo() string {
	return "build++ " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
