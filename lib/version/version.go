// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build stamps, set with -ldflags -X. Version is bumped by hand for
// releases.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// stamp is the resolved build identity.
type stamp struct {
	commit string
	dirty  bool
	time   string
}

// current prefers the -ldflags values and fills whatever is missing
// from the VCS settings the go command embeds.
func current() stamp {
	return resolve(GitCommit, GitDirty, BuildTime, debug.ReadBuildInfo)
}

func resolve(commit, dirty, built string, read func() (*debug.BuildInfo, bool)) stamp {
	result := stamp{commit: commit, dirty: dirty == "true", time: built}
	if commit != "unknown" {
		return result
	}
	info, ok := read()
	if !ok {
		return result
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			result.commit = setting.Value
			if len(result.commit) > 7 {
				result.commit = result.commit[:7]
			}
		case "vcs.modified":
			result.dirty = setting.Value == "true"
		case "vcs.time":
			if built == "unknown" {
				result.time = setting.Value
			}
		}
	}
	return result
}

func (s stamp) String() string {
	dirty := ""
	if s.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, s.commit, dirty, s.time)
}

// Info is the one-line form used by --version.
func Info() string {
	return current().String()
}

// Full adds the Go toolchain and platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Print writes "<binary> <Info()>" to stdout.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, Info())
}
