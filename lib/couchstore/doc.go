// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package couchstore is the boundary between the filesystem core and a
// CouchDB server.
//
// [Store] is the narrow set of calls the core needs: list and create
// databases, fetch documents, query an index with an optional key or
// key range, and read or replace whole attachments. Keys and values
// cross the boundary as raw JSON so that the core controls their
// canonical form.
//
// Two implementations exist:
//
//   - [Kivik] talks to a real server through github.com/go-kivik/kivik/v4.
//     Retries and timeouts belong to its HTTP client; this package adds
//     none.
//   - [Memory] keeps everything in process. Views hold static rows
//     (there is no JavaScript engine) and are sorted with [Collate].
//     Tests across the module use it.
//
// Errors: [ErrNotFound] for a missing database, document, or
// attachment and [ErrConflict] for a stale revision. Anything else is a
// transport failure and is returned wrapped but otherwise untouched.
package couchstore
