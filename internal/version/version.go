// Package version reports the quizrag build.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set with -ldflags "-X quizrag/internal/version.Version=..." at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// Info returns the version string.
func Info() string {
	return Version
}

// Full returns the version with the short commit when known.
func Full() string {
	info := Info()
	if commit := shortCommit(); commit != "" && !strings.Contains(info, commit) {
		info += fmt.Sprintf(" (%s)", commit)
	}
	return info
}

func shortCommit() string {
	if GitCommit == "" || GitCommit == "unknown" {
		return ""
	}
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}

// BuildInfo is the structured form printed by `quizrag version --json`.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GetBuildInfo returns structured build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Info(),
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// UserAgent returns the User-Agent sent when fetching documents.
func UserAgent() string {
	return "quizrag/" + Info()
}
