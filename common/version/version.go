// Package version exposes build metadata injected at link time.
package version

var (
	// Version is the release tag, set via -ldflags.
	Version = "v0.0.0-dev"

	// GitCommit is the commit hash, set via -ldflags.
	GitCommit = "unknown"

	// BuildTime is the build timestamp, set via -ldflags.
	BuildTime = "unknown"
)

// Info renders the build metadata as one human-readable line, used by the
// startup banner and the status endpoint.
func Info() string {
	return Version + " (" + GitCommit + ") built at " + BuildTime
}
