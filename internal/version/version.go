// Package version carries the build metadata stamped into release binaries.
package version

// Overwritten via -ldflags "-X ..." by the release build; "dev" otherwise.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
