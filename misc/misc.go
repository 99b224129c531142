// Package misc keeps program-wide build information helpers.
package misc

import (
	"runtime/debug"
	"sync"
)

const appName = "pager"

// GetAppName returns short program name used in logs, temporary file names
// and the report archive.
func GetAppName() string {
	return appName
}

var buildInfo = sync.OnceValue(func() *debug.BuildInfo {
	if bi, ok := debug.ReadBuildInfo(); ok {
		return bi
	}
	return nil
})

// GetVersion returns module version recorded in build information.
func GetVersion() string {
	bi := buildInfo()
	if bi == nil || bi.Main.Version == "" {
		return "(devel)"
	}
	return bi.Main.Version
}

// GetGitHash returns vcs revision recorded in build information.
func GetGitHash() string {
	bi := buildInfo()
	if bi == nil {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return "unknown"
}
