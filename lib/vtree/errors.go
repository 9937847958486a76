// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"errors"
	"fmt"

	"github.com/couchfs/couchfs/lib/couchstore"
)

var (
	// ErrNotFound means a segment did not resolve.
	ErrNotFound = errors.New("no such entry")

	// ErrPermission means the operation is not allowed on the node.
	ErrPermission = errors.New("permission denied")

	// ErrNotDirectory means a container operation hit terminal content.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory means a content operation hit a container.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotEmpty means a directory still holds entries.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrCrossDocument means a rename tried to move an attachment to
	// another document.
	ErrCrossDocument = errors.New("cannot move attachments between documents")

	// ErrExists means the target of a create already exists.
	ErrExists = errors.New("already exists")

	// ErrTooLarge means a write or truncate would grow an attachment
	// past MaxAttachmentSize.
	ErrTooLarge = errors.New("attachment too large")
)

// storeError translates a store failure. Misses become ErrNotFound and
// existing targets ErrExists; everything else is a transport failure
// and keeps its original chain.
func storeError(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, couchstore.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, couchstore.ErrExists):
		return fmt.Errorf("%s: %w", what, ErrExists)
	}
	return fmt.Errorf("%s: %w", what, err)
}
