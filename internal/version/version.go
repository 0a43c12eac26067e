// Package version provides build-time version information.
package version

import "fmt"

// Set at build time with -ldflags "-X snapcrop/internal/version.GitCommit=...".
var (
	// Version is the semantic version
	Version = "0.3.0"

	// BuildTime is the UTC time when the binary was built
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// String formats the version for -version flags and the about dialog.
func String() string {
	commit := GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, commit, BuildTime)
}
