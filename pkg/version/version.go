// Package version holds build metadata injected at link time via
// -ldflags "-X github.com/inboxd/inboxd/pkg/version.Version=...".
package version

var (
	Version = "dev"
	Commit  = "unknown"
)
