// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package vtree derives a virtual directory tree from a live CouchDB
// server, one path segment at a time.
//
// Every path is walked from the server root by [Resolver.Resolve],
// which returns the [Chain] of nodes visited. A node is one of a closed
// set of variants:
//
//	Server         root; children are database names
//	Database       children are exactly "_all_docs" and "_view", plus
//	               any document ID resolved directly
//	DesignListing  the "_view" directory; children are design documents
//	DesignRow      a design document browsed as a container of views
//	Index          _all_docs or a view, possibly narrowed to a compound
//	               key prefix
//	Row            one row of index output; its only child is "value"
//	Document       a document; children are its fields and "_attachments"
//	AttachmentDir  a directory of the document's attachment tree
//	Value          terminal JSON content (a field or a row value)
//	Attachment     terminal attachment bytes, the only writable content
//
// [Resolver.List] answers what may follow a path. The two functions
// share the transition rules in this package; any name List returns for
// a node must step successfully from that node.
//
// # Compound keys
//
// Hierarchical keys are browsed one component per segment. In _all_docs
// a document ID "2024/03/01" appears as the directory "2024" containing
// "03" containing "01". In a view, array keys work the same way:
// [2024,3,1] is reachable as 2024/3/1 with each element encoded by
// package keycodec. When a segment is a proper prefix of at least one
// key, it opens a sub-range [Index] and the next segment is appended to
// the prefix before the following lookup. Prefixes win over an exact
// row with the same key.
//
// Nothing is cached. Every call goes to the store, so two calls can see
// different snapshots and a listed name may vanish before it is
// resolved.
package vtree
