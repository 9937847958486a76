// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps times onto file attributes accepts a Clock instead
// of calling time.Now directly. In production, Real() provides the
// standard library behavior. In tests, Fake() returns a fixed time
// that moves only on Advance or Set:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	fs := couchfs.New(resolver, couchfs.Options{Clock: c})
//	c.Advance(5 * time.Second)
package clock
