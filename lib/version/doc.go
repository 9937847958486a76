// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the
// couchmount binary.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/couchfs/couchfs/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" / "0.1.0-dev" in development builds and
// test runs, where Info falls back to the VCS revision the go command
// embeds. [Info] formats them for --version; [Full] adds the Go
// version and GOOS/GOARCH.
package version
