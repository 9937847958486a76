// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueName returns "prefix-N" with N increasing across the process.
// The result is a valid CouchDB database name when prefix starts with
// a lowercase letter.
//
//	name := testutil.UniqueName("scratch") // "scratch-1", "scratch-2", ...
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
