// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"errors"
	"syscall"

	"github.com/couchfs/couchfs/lib/vtree"
)

// Errno maps an error from package couchfs to the errno returned to
// the kernel. A nil error maps to 0.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, vtree.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, vtree.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, vtree.ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, vtree.ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, vtree.ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, vtree.ErrCrossDocument):
		return syscall.EXDEV
	case errors.Is(err, vtree.ErrExists):
		return syscall.EEXIST
	case errors.Is(err, vtree.ErrTooLarge):
		return syscall.EFBIG
	}
	return syscall.EIO
}
