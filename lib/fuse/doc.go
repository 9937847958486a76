// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse mounts a [couchfs.FS] as a FUSE filesystem.
//
// Every inode is a thin handle on its path. Each kernel request
// recomputes the inode's path and passes it to the FS, which resolves
// it against the server afresh. The kernel's entry, attribute and
// negative caches are off unless configured, so the mount never serves
// state older than the last request.
//
// # Read Path
//
// Lookup and Getattr stat the path. Readdir lists it. Reads fetch the
// content (the JSON text of a field or row value, or the attachment
// body) and return the requested window. Files are opened with direct
// I/O so the page cache never holds stale content.
//
// # Write Path
//
// Only attachments are writable. Each Write fetches the attachment,
// splices the data in, and stores it back under the document's current
// revision. Create and Mknod add empty attachments, Mkdir creates a
// database at the root or a placeholder-backed directory in an
// attachment tree, and Rename moves attachments within one document.
// Opening anything else for writing fails with EACCES.
//
// # Inode Numbers
//
// A path keeps one inode number for as long as it names the same
// entry, so open files survive the kernel revalidating their names.
// Rename pins the moved inodes' numbers at their new paths; rename
// away, unlink and rmdir retire the old path so the next entry there
// gets a fresh number. An inode whose name was removed or taken over
// answers ENOENT.
//
// # Errors
//
// [Errno] is the single mapping from the error sentinels of package
// vtree to errno values. Anything unrecognized is a store or transport
// failure and becomes EIO.
package fuse
