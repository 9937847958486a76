// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. [Fatal] reports
// an error from run() to stderr before any structured logger exists
// and exits the process.
package process
