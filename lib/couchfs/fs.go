// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package couchfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/couchfs/couchfs/lib/clock"
	"github.com/couchfs/couchfs/lib/vtree"
	"golang.org/x/sys/unix"
)

// Capacity reported by Statfs. CouchDB has no notion of free space;
// these are fixed placeholders.
const (
	BlockSize = 1024
	Blocks    = 1024 * 1024
)

// Permission bits per node kind.
const (
	modeDirectory      os.FileMode = 0o755
	modeAttachmentDir  os.FileMode = 0o775
	modeAttachmentFile os.FileMode = 0o664
	modeValue          os.FileMode = 0o444
)

// Options configures an FS.
type Options struct {
	// Clock stamps file times. If nil, the real clock is used.
	Clock clock.Clock

	// Logger receives diagnostic messages. If nil, an error-level
	// logger on stderr is used.
	Logger *slog.Logger
}

// FS serves filesystem operations over a Resolver.
type FS struct {
	resolver *vtree.Resolver
	logger   *slog.Logger
	mounted  time.Time
}

// New returns an FS over resolver. File times are the time New was
// called, since CouchDB records no modification times.
func New(resolver *vtree.Resolver, options Options) *FS {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}
	return &FS{
		resolver: resolver,
		logger:   options.Logger,
		mounted:  options.Clock.Now(),
	}
}

// Logger returns the logger the FS reports through.
func (f *FS) Logger() *slog.Logger {
	return f.logger
}

// Attr describes a path.
type Attr struct {
	Mode    os.FileMode
	Size    int64
	Nlink   uint32
	ModTime time.Time
}

// IsDir reports whether the attributes describe a directory.
func (a Attr) IsDir() bool {
	return a.Mode.IsDir()
}

// DirEntry is one name in a directory listing.
type DirEntry struct {
	Name string
	Dir  bool
}

// StatFS reports filesystem capacity.
type StatFS struct {
	BlockSize uint32
	Blocks    uint64
	Free      uint64
	Available uint64
}

// fail logs err for op on p and returns it wrapped with both. Misses
// are routine lookups and stay at Debug.
func (f *FS) fail(op, p string, err error) error {
	wrapped := fmt.Errorf("%s %s: %w", op, p, err)
	switch {
	case errors.Is(err, vtree.ErrNotFound):
		f.logger.Debug("path not found", "op", op, "path", p)
	case errors.Is(err, vtree.ErrPermission),
		errors.Is(err, vtree.ErrNotDirectory),
		errors.Is(err, vtree.ErrIsDirectory),
		errors.Is(err, vtree.ErrNotEmpty),
		errors.Is(err, vtree.ErrCrossDocument),
		errors.Is(err, vtree.ErrExists),
		errors.Is(err, vtree.ErrTooLarge):
		f.logger.Debug("operation refused", "op", op, "path", p, "error", err)
	default:
		f.logger.Error("store operation failed", "op", op, "path", p, "error", err)
	}
	return wrapped
}

func (f *FS) resolve(ctx context.Context, op, p string) (vtree.Node, error) {
	chain, err := f.resolver.Resolve(ctx, p)
	if err != nil {
		return nil, f.fail(op, p, err)
	}
	return chain.Last(), nil
}

// resolveParent resolves the directory p would live in and returns it
// with p's final segment.
func (f *FS) resolveParent(ctx context.Context, op, p string) (vtree.Node, string, error) {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil, "", f.fail(op, p, vtree.ErrPermission)
	}
	parent, err := f.resolve(ctx, op, path.Dir(p))
	if err != nil {
		return nil, "", err
	}
	if !parent.Container() {
		return nil, "", f.fail(op, p, vtree.ErrNotDirectory)
	}
	return parent, path.Base(p), nil
}

func (f *FS) attr(node vtree.Node) Attr {
	attr := Attr{ModTime: f.mounted}
	switch node.(type) {
	case *vtree.AttachmentDir:
		attr.Mode = os.ModeDir | modeAttachmentDir
	case *vtree.Attachment:
		attr.Mode = modeAttachmentFile
	case *vtree.Value:
		attr.Mode = modeValue
	default:
		attr.Mode = os.ModeDir | modeDirectory
	}
	if attr.Mode.IsDir() {
		attr.Nlink = 2
		return attr
	}
	attr.Nlink = 1
	attr.Size, _ = vtree.Size(node)
	return attr
}

// Stat returns the attributes of p.
func (f *FS) Stat(ctx context.Context, p string) (Attr, error) {
	node, err := f.resolve(ctx, "stat", p)
	if err != nil {
		return Attr{}, err
	}
	return f.attr(node), nil
}

// ReadDir lists the directory p.
func (f *FS) ReadDir(ctx context.Context, p string) ([]DirEntry, error) {
	node, err := f.resolve(ctx, "readdir", p)
	if err != nil {
		return nil, err
	}
	entries, err := f.resolver.Entries(ctx, node)
	if err != nil {
		return nil, f.fail("readdir", p, err)
	}
	result := make([]DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = DirEntry{Name: entry.Name, Dir: entry.Container}
	}
	return result, nil
}

// Open checks that p may be opened with flags. Opening for write is
// allowed only on attachments; O_TRUNC empties the attachment.
func (f *FS) Open(ctx context.Context, p string, flags int) error {
	node, err := f.resolve(ctx, "open", p)
	if err != nil {
		return err
	}
	if node.Container() {
		return f.fail("open", p, vtree.ErrIsDirectory)
	}
	if flags&unix.O_ACCMODE == unix.O_RDONLY {
		return nil
	}
	if !vtree.Writable(node) {
		return f.fail("open", p, vtree.ErrPermission)
	}
	if flags&unix.O_TRUNC != 0 {
		if err := f.resolver.Truncate(ctx, node, 0); err != nil {
			return f.fail("open", p, err)
		}
	}
	return nil
}

// Read returns up to size bytes of p's content from offset.
func (f *FS) Read(ctx context.Context, p string, offset int64, size int) ([]byte, error) {
	node, err := f.resolve(ctx, "read", p)
	if err != nil {
		return nil, err
	}
	data, err := f.resolver.Read(ctx, node, offset, size)
	if err != nil {
		return nil, f.fail("read", p, err)
	}
	return data, nil
}

// Write stores data into the attachment p at offset.
func (f *FS) Write(ctx context.Context, p string, offset int64, data []byte) (int, error) {
	node, err := f.resolve(ctx, "write", p)
	if err != nil {
		return 0, err
	}
	written, err := f.resolver.Write(ctx, node, offset, data)
	if err != nil {
		return 0, f.fail("write", p, err)
	}
	return written, nil
}

// Truncate sets the length of the attachment p.
func (f *FS) Truncate(ctx context.Context, p string, size int64) error {
	node, err := f.resolve(ctx, "truncate", p)
	if err != nil {
		return err
	}
	if err := f.resolver.Truncate(ctx, node, size); err != nil {
		return f.fail("truncate", p, err)
	}
	return nil
}

// Create makes an empty attachment at p.
func (f *FS) Create(ctx context.Context, p string) error {
	parent, name, err := f.resolveParent(ctx, "create", p)
	if err != nil {
		return err
	}
	if err := f.resolver.CreateAttachment(ctx, parent, name); err != nil {
		return f.fail("create", p, err)
	}
	f.logger.Info("attachment created", "path", p)
	return nil
}

// Mkdir creates a database directly below the root, or a directory
// inside an attachment tree.
func (f *FS) Mkdir(ctx context.Context, p string) error {
	parent, name, err := f.resolveParent(ctx, "mkdir", p)
	if err != nil {
		return err
	}
	switch parent.(type) {
	case *vtree.Server:
		err = f.resolver.CreateDatabase(ctx, parent, name)
	default:
		err = f.resolver.MakeAttachmentDir(ctx, parent, name)
	}
	if err != nil {
		return f.fail("mkdir", p, err)
	}
	f.logger.Info("directory created", "path", p)
	return nil
}

// Unlink deletes the attachment p.
func (f *FS) Unlink(ctx context.Context, p string) error {
	node, err := f.resolve(ctx, "unlink", p)
	if err != nil {
		return err
	}
	if err := f.resolver.RemoveAttachment(ctx, node); err != nil {
		return f.fail("unlink", p, err)
	}
	f.logger.Info("attachment deleted", "path", p)
	return nil
}

// Rmdir deletes the empty attachment directory p.
func (f *FS) Rmdir(ctx context.Context, p string) error {
	node, err := f.resolve(ctx, "rmdir", p)
	if err != nil {
		return err
	}
	if err := f.resolver.RemoveAttachmentDir(ctx, node); err != nil {
		return f.fail("rmdir", p, err)
	}
	f.logger.Info("directory removed", "path", p)
	return nil
}

// Rename moves the attachment file or directory from to to within one
// document.
func (f *FS) Rename(ctx context.Context, from, to string) error {
	source, err := f.resolve(ctx, "rename", from)
	if err != nil {
		return err
	}
	parent, name, err := f.resolveParent(ctx, "rename", to)
	if err != nil {
		return err
	}
	if err := f.resolver.RenameAttachment(ctx, source, parent, name); err != nil {
		return f.fail("rename", from, err)
	}
	f.logger.Info("attachment renamed", "from", from, "to", to)
	return nil
}

// Statfs reports the fixed capacity figures.
func (f *FS) Statfs() StatFS {
	return StatFS{
		BlockSize: BlockSize,
		Blocks:    Blocks,
		Free:      Blocks,
		Available: Blocks,
	}
}
