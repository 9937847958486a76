// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package couchfs exposes the virtual CouchDB tree as path-addressed
// filesystem operations.
//
// Every operation takes an absolute path, resolves it from the root
// through package vtree, and acts on the resolved node. Nothing is
// cached between calls: a write re-resolves its path and therefore
// always carries the document's current revision.
//
// Errors are the sentinels of package vtree wrapped with the path.
// Misses are logged at Debug, everything else at Error. Mapping them
// to errno values is the FUSE layer's job.
package couchfs
