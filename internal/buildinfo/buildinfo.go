// Package buildinfo carries version metadata injected at link time.
package buildinfo

// Set with -ldflags "-X github.com/modoterra/livefeed/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
