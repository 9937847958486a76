// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the CouchFS test suites.
//
// [RequireReceive] bounds a channel read with a wall-clock timeout so a
// hung FUSE request fails the test instead of stalling it.
// [UniqueName] produces database and document names that stay distinct
// across tests sharing one store.
package testutil
