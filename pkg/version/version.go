// Package version exposes build metadata injected at link time.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Populated via -ldflags at build time:
//
//	-X github.com/scandex-dev/scandex/pkg/version.Version=v0.3.0
//	-X github.com/scandex-dev/scandex/pkg/version.Commit=abc1234
//	-X github.com/scandex-dev/scandex/pkg/version.Date=2026-08-23
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo bundles the build metadata for structured output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build info.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the full human-readable version line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("scandex %s (commit %s, built %s, %s, %s)",
		b.Version, b.Commit, b.Date, b.GoVersion, b.Platform)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// JSON returns the build info as JSON.
func (b BuildInfo) JSON() (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal build info: %w", err)
	}
	return string(data), nil
}
