// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/couchfs/couchfs/lib/couchfs"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// FS serves every filesystem operation.
	FS *couchfs.FS

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// FsName is shown as the source in the mount table. Empty uses
	// "couchfs".
	FsName string

	// EntryTimeout, AttrTimeout and NegativeTimeout bound how long the
	// kernel caches names, attributes and misses. Zero disables the
	// cache, so changes made by other clients are seen at once.
	EntryTimeout    time.Duration
	AttrTimeout     time.Duration
	NegativeTimeout time.Duration

	// Logger receives diagnostic messages. If nil, an error-level
	// logger on stderr is used.
	Logger *slog.Logger
}

// Mount mounts the filesystem at the configured mountpoint. The caller
// must call Unmount on the returned Server when done. The mountpoint
// directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.FS == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if options.FsName == "" {
		options.FsName = "couchfs"
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := newRoot(&options)

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &options.EntryTimeout,
		AttrTimeout:     &options.AttrTimeout,
		NegativeTimeout: &options.NegativeTimeout,
		UID:             uint32(os.Getuid()),
		GID:             uint32(os.Getgid()),
		MountOptions: fuse.MountOptions{
			FsName:     options.FsName,
			Name:       "couchfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("CouchDB FUSE filesystem mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// node is any path in the tree. It holds no CouchDB state; every call
// works from the inode's current path.
type node struct {
	gofuse.Inode
	options *Options
	inodes  *inodeTable
}

func newRoot(options *Options) *node {
	return &node{options: options, inodes: newInodeTable()}
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeMknoder = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)
var _ gofuse.NodeFlusher = (*node)(nil)
var _ gofuse.NodeFsyncer = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)

// path returns the absolute path of the inode. It reports false once
// the inode has been unlinked or superseded by another inode for its
// name; such an inode no longer names anything on the server.
func (n *node) path() (string, bool) {
	var segments []string
	inode := n.EmbeddedInode()
	for !inode.IsRoot() {
		name, parent := inode.Parent()
		if parent == nil {
			return "", false
		}
		segments = append(segments, name)
		inode = parent
	}
	slices.Reverse(segments)
	return "/" + strings.Join(segments, "/"), true
}

func (n *node) child(name string) (string, bool) {
	p, ok := n.path()
	if !ok {
		return "", false
	}
	return path.Join(p, name), true
}

func (n *node) fs() *couchfs.FS {
	return n.options.FS
}

// fillAttr copies FS attributes into a kernel attribute block.
func fillAttr(attr couchfs.Attr, out *fuse.Attr) {
	out.Mode = uint32(attr.Mode.Perm())
	if attr.IsDir() {
		out.Mode |= syscall.S_IFDIR
	} else {
		out.Mode |= syscall.S_IFREG
	}
	out.Size = uint64(attr.Size)
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = couchfs.BlockSize
	out.Nlink = attr.Nlink
	out.SetTimes(&attr.ModTime, &attr.ModTime, &attr.ModTime)
}

// newChild stats p and builds the inode and entry for it.
func (n *node) newChild(ctx context.Context, p string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, err := n.fs().Stat(ctx, p)
	if err != nil {
		return nil, Errno(err)
	}
	fillAttr(attr, &out.Attr)
	mode := uint32(syscall.S_IFREG)
	if attr.IsDir() {
		mode = syscall.S_IFDIR
	}
	child := &node{options: n.options, inodes: n.inodes}
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: mode, Ino: n.inodes.number(p, mode)}), 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p, ok := n.child(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	return n.newChild(ctx, p, out)
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	p, ok := n.path()
	if !ok {
		return nil, syscall.ENOENT
	}
	listing, err := n.fs().ReadDir(ctx, p)
	if err != nil {
		return nil, Errno(err)
	}
	entries := make([]fuse.DirEntry, len(listing))
	for i, entry := range listing {
		mode := uint32(syscall.S_IFREG)
		if entry.Dir {
			mode = syscall.S_IFDIR
		}
		entries[i] = fuse.DirEntry{Name: entry.Name, Mode: mode}
	}
	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	p, ok := n.path()
	if !ok {
		return syscall.ENOENT
	}
	attr, err := n.fs().Stat(ctx, p)
	if err != nil {
		return Errno(err)
	}
	fillAttr(attr, &out.Attr)
	return 0
}

// Setattr applies size changes. Mode, owner, and time changes are
// accepted and ignored; CouchDB has nowhere to keep them.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		p, ok := n.path()
		if !ok {
			return syscall.ENOENT
		}
		if err := n.fs().Truncate(ctx, p, int64(size)); err != nil {
			return Errno(err)
		}
	}
	return n.Getattr(ctx, f, out)
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	p, ok := n.path()
	if !ok {
		return nil, 0, syscall.ENOENT
	}
	if err := n.fs().Open(ctx, p, int(flags)); err != nil {
		return nil, 0, Errno(err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	p, ok := n.path()
	if !ok {
		return nil, syscall.ENOENT
	}
	data, err := n.fs().Read(ctx, p, off, len(dest))
	if err != nil {
		return nil, Errno(err)
	}
	return fuse.ReadResultData(data), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	p, ok := n.path()
	if !ok {
		return 0, syscall.ENOENT
	}
	written, err := n.fs().Write(ctx, p, off, data)
	if err != nil {
		return 0, Errno(err)
	}
	return uint32(written), 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	p, ok := n.child(name)
	if !ok {
		return nil, nil, 0, syscall.ENOENT
	}
	if err := n.fs().Create(ctx, p); err != nil {
		return nil, nil, 0, Errno(err)
	}
	child, errno := n.newChild(ctx, p, out)
	if errno != 0 {
		return nil, nil, 0, errno
	}
	return child, nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p, ok := n.child(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	if err := n.fs().Mkdir(ctx, p); err != nil {
		return nil, Errno(err)
	}
	return n.newChild(ctx, p, out)
}

// Mknod creates regular files only.
func (n *node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if mode&syscall.S_IFMT != syscall.S_IFREG && mode&syscall.S_IFMT != 0 {
		return nil, syscall.EPERM
	}
	p, ok := n.child(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	if err := n.fs().Create(ctx, p); err != nil {
		return nil, Errno(err)
	}
	return n.newChild(ctx, p, out)
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	p, ok := n.child(name)
	if !ok {
		return syscall.ENOENT
	}
	if err := n.fs().Unlink(ctx, p); err != nil {
		return Errno(err)
	}
	n.inodes.remove(p)
	return 0
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	p, ok := n.child(name)
	if !ok {
		return syscall.ENOENT
	}
	if err := n.fs().Rmdir(ctx, p); err != nil {
		return Errno(err)
	}
	n.inodes.remove(p)
	return 0
}

// Rename supports plain renames only; RENAME_EXCHANGE and
// RENAME_NOREPLACE are refused.
func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags != 0 {
		return syscall.EINVAL
	}
	from, ok := n.child(name)
	if !ok {
		return syscall.ENOENT
	}
	target, ok := newParent.(*node)
	if !ok {
		return syscall.EXDEV
	}
	to, ok := target.child(newName)
	if !ok {
		return syscall.ENOENT
	}
	if err := n.fs().Rename(ctx, from, to); err != nil {
		return Errno(err)
	}
	n.inodes.rename(from, to, n.GetChild(name))
	return 0
}

// Flush and Fsync have nothing to do: every Write is already stored.
func (n *node) Flush(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	return 0
}

func (n *node) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno {
	return 0
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	stat := n.fs().Statfs()
	out.Bsize = stat.BlockSize
	out.Frsize = stat.BlockSize
	out.Blocks = stat.Blocks
	out.Bfree = stat.Free
	out.Bavail = stat.Available
	out.NameLen = 255
	return 0
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
