// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for couchmount.
//
// Configuration is loaded from a single file named either by the
// COUCHFS_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]), on top of [Default]. There is no automatic file
// search. Command-line flags override file values after loading.
//
// Files ending in .json or .jsonc are accepted too: comments and
// trailing commas are stripped before decoding, since JSON is a YAML
// subset.
//
// Variable expansion is performed on the connection URI and the
// mountpoint after loading: ${HOME} and ${VAR:-default} patterns are
// expanded.
//
// Key exports:
//
//   - [Config] -- couchdb, mount, and log sections
//   - [Default] -- a Config ready to use against a local server
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other couchfs packages.
package config
