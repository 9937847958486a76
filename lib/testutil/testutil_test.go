// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

type recorder struct {
	message string
}

func (r *recorder) Helper() {}

func (r *recorder) Fatalf(format string, args ...any) {
	r.message = fmt.Sprintf(format, args...)
	panic(r)
}

// capture runs f and returns the Fatalf message, if any.
func capture(f func(t Fataler)) (message string) {
	r := &recorder{}
	defer func() {
		if recovered := recover(); recovered != nil && recovered != r {
			panic(recovered)
		}
		message = r.message
	}()
	f(r)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second); got != 7 {
		t.Errorf("RequireReceive = %d, want 7", got)
	}

	message := capture(func(f Fataler) {
		RequireReceive(f, make(chan int), time.Millisecond, "reader %d", 3)
	})
	if message == "" || message[:9] != "timed out" {
		t.Errorf("timeout message = %q", message)
	}

	closed := make(chan int)
	close(closed)
	message = capture(func(f Fataler) {
		RequireReceive(f, closed, time.Second, "closed")
	})
	if message != "channel closed without a value: closed" {
		t.Errorf("closed message = %q", message)
	}
}

func TestUniqueName(t *testing.T) {
	first := UniqueName("db")
	second := UniqueName("db")
	if first == second {
		t.Errorf("UniqueName returned %q twice", first)
	}
}
