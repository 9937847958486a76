// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// couchmount mounts a CouchDB server as a FUSE filesystem.
//
// The whole server appears as a directory tree: databases at the root,
// each holding "_all_docs" and "_view" plus its documents by ID.
// Document fields and index rows are read-only files containing JSON.
// Attachments live under each document's "_attachments" directory and
// are readable and writable.
//
// With --document db/docid only the attachment tree of that one
// document is mounted, at the mount root.
//
// Configuration comes from a YAML or JSONC file (--config or
// COUCHFS_CONFIG) with flags and positional arguments layered on top.
// The process runs until SIGINT or SIGTERM, then unmounts.
package main
