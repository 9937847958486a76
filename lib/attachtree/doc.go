// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package attachtree turns the flat attachment names of one document
// into a directory hierarchy.
//
// CouchDB has no directories: an attachment named "a/b/c" is a single
// blob. [Build] splits every name on "/" and registers each strict
// prefix as a directory, so "a" and "a/b" become directories and "c"
// a file inside "a/b". The document root is the directory "".
//
// A directory created before any file exists in it is represented by a
// zero-length attachment named [Placeholder] inside it. Placeholders
// prove the directory exists but never appear as children.
package attachtree
