package version

import (
	"fmt"
	"runtime"
)

// Build information, set with -ldflags "-X github.com/intelvis/intelvis/pkg/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes
	GitDirty = ""
)

// GetVersion formats a one-line banner:
// intelvis-server v0.3.0 (abc1234 2026-01-14T21:51:00Z)
func GetVersion(name string) string {
	return fmt.Sprintf("%s %s (%s%s %s)", name, Version, GitCommit, dirtySuffix(), BuildTime)
}

// UserAgent is the User-Agent header value for outbound HTTP requests.
func UserAgent(name string) string {
	return fmt.Sprintf("%s/%s (%s/%s)", name, Version, runtime.GOOS, runtime.GOARCH)
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() string {
	return fmt.Sprintf(`Version:    %s
Git commit: %s%s
Built:      %s
Go version: %s`,
		Version,
		GitCommit,
		dirtySuffix(),
		BuildTime,
		runtime.Version(),
	)
}

func dirtySuffix() string {
	if GitDirty == "true" {
		return "-dirty"
	}
	return ""
}
