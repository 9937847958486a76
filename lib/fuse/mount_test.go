// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"
	"time"

	"github.com/couchfs/couchfs/lib/couchfs"
	"github.com/couchfs/couchfs/lib/couchstore"
	"github.com/couchfs/couchfs/lib/testutil"
	"github.com/couchfs/couchfs/lib/vtree"
)

// fuseAvailable checks whether /dev/fuse is accessible. Tests that
// need a real FUSE mount call this and skip if the device is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	_, err := os.Stat("/dev/fuse")
	if err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// seedLibrary returns a store with database "library" holding document
// "book" (field "title", attachment "cover/front.txt").
func seedLibrary(t *testing.T) *couchstore.Memory {
	t.Helper()
	ctx := context.Background()
	store := couchstore.NewMemory()
	if err := store.CreateDB(ctx, "library"); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}
	rev, err := store.PutDocument("library", "book", map[string]any{"title": "Go"})
	if err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if _, err := store.PutAttachment(ctx, "library", "book", rev, &couchstore.Attachment{
		Name:    "cover/front.txt",
		Content: []byte("front"),
	}); err != nil {
		t.Fatalf("PutAttachment: %v", err)
	}
	return store
}

// testMount mounts seedLibrary's store with kernel caching disabled
// and returns the mountpoint.
func testMount(t *testing.T) (mountpoint string, store *couchstore.Memory) {
	t.Helper()
	fuseAvailable(t)

	store = seedLibrary(t)

	mountpoint = filepath.Join(t.TempDir(), "mount")
	server, err := Mount(Options{
		Mountpoint: mountpoint,
		FS:         couchfs.New(vtree.NewResolver(store), couchfs.Options{}),
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
	})

	return mountpoint, store
}

func readDirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", dir, err)
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name()
	}
	sort.Strings(names)
	return names
}

func TestErrno(t *testing.T) {
	tests := []struct {
		err  error
		want syscall.Errno
	}{
		{nil, 0},
		{vtree.ErrNotFound, syscall.ENOENT},
		{fmt.Errorf("stat /x: %w", vtree.ErrNotFound), syscall.ENOENT},
		{vtree.ErrPermission, syscall.EACCES},
		{vtree.ErrNotDirectory, syscall.ENOTDIR},
		{vtree.ErrIsDirectory, syscall.EISDIR},
		{vtree.ErrNotEmpty, syscall.ENOTEMPTY},
		{vtree.ErrCrossDocument, syscall.EXDEV},
		{vtree.ErrExists, syscall.EEXIST},
		{fmt.Errorf("truncate /x: %w", vtree.ErrTooLarge), syscall.EFBIG},
		{errors.New("connection refused"), syscall.EIO},
		{fmt.Errorf("write: %w", couchstore.ErrConflict), syscall.EIO},
	}
	for _, test := range tests {
		if got := Errno(test.err); got != test.want {
			t.Errorf("Errno(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}

func TestMountRequiresOptions(t *testing.T) {
	if _, err := Mount(Options{FS: &couchfs.FS{}}); err == nil {
		t.Error("Mount without a mountpoint succeeded")
	}
	if _, err := Mount(Options{Mountpoint: t.TempDir()}); err == nil {
		t.Error("Mount without a filesystem succeeded")
	}
}

func TestMountBrowse(t *testing.T) {
	mountpoint, _ := testMount(t)

	if got := readDirNames(t, mountpoint); len(got) != 1 || got[0] != "library" {
		t.Errorf("root = %q, want [library]", got)
	}
	if got := readDirNames(t, filepath.Join(mountpoint, "library")); len(got) != 2 {
		t.Errorf("database = %q, want _all_docs and _view", got)
	}

	title, err := os.ReadFile(filepath.Join(mountpoint, "library", "book", "title"))
	if err != nil {
		t.Fatalf("ReadFile(title): %v", err)
	}
	if string(title) != `"Go"` {
		t.Errorf("title = %q, want JSON text", title)
	}

	row, err := os.ReadFile(filepath.Join(mountpoint, "library", "_all_docs", "book", "value"))
	if err != nil {
		t.Fatalf("ReadFile(row value): %v", err)
	}
	if len(row) == 0 {
		t.Error("row value is empty")
	}
}

func TestMountValueIsReadOnly(t *testing.T) {
	mountpoint, _ := testMount(t)
	_, err := os.OpenFile(filepath.Join(mountpoint, "library", "book", "title"), os.O_WRONLY, 0)
	if !errors.Is(err, syscall.EACCES) {
		t.Errorf("write open error = %v, want EACCES", err)
	}
}

func TestMountAttachmentWrite(t *testing.T) {
	mountpoint, store := testMount(t)
	attachments := filepath.Join(mountpoint, "library", "book", "_attachments")
	front := filepath.Join(attachments, "cover", "front.txt")

	if err := os.WriteFile(front, []byte("new cover"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(front)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "new cover" {
		t.Errorf("content = %q, want %q", got, "new cover")
	}

	stored, err := store.GetAttachment(context.Background(), "library", "book", "cover/front.txt")
	if err != nil {
		t.Fatalf("GetAttachment: %v", err)
	}
	if string(stored.Content) != "new cover" {
		t.Errorf("stored content = %q", stored.Content)
	}
}

func TestMountConcurrentReads(t *testing.T) {
	mountpoint, _ := testMount(t)
	front := filepath.Join(mountpoint, "library", "book", "_attachments", "cover", "front.txt")

	const readers = 8
	results := make(chan string, readers)
	for range readers {
		go func() {
			content, err := os.ReadFile(front)
			if err != nil {
				results <- "error: " + err.Error()
				return
			}
			results <- string(content)
		}()
	}
	for i := range readers {
		if got := testutil.RequireReceive(t, results, 10*time.Second, "reader %d", i); got != "front" {
			t.Errorf("reader %d got %q", i, got)
		}
	}
}

func TestMountAttachmentTreeOperations(t *testing.T) {
	mountpoint, _ := testMount(t)
	attachments := filepath.Join(mountpoint, "library", "book", "_attachments")

	if err := os.Mkdir(filepath.Join(attachments, "notes"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(attachments, "notes", "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Rename(filepath.Join(attachments, "notes", "a.txt"), filepath.Join(attachments, "a.txt")); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := readDirNames(t, attachments); len(got) != 3 {
		t.Errorf("attachments = %q, want a.txt, cover, notes", got)
	}
	if err := os.Remove(filepath.Join(attachments, "notes")); err != nil {
		t.Fatalf("Remove(notes): %v", err)
	}
	if err := os.Remove(filepath.Join(attachments, "a.txt")); err != nil {
		t.Fatalf("Remove(a.txt): %v", err)
	}
	if got := readDirNames(t, attachments); len(got) != 1 || got[0] != "cover" {
		t.Errorf("attachments = %q, want [cover]", got)
	}

	err := os.Remove(filepath.Join(attachments, "cover"))
	if !errors.Is(err, syscall.ENOTEMPTY) {
		t.Errorf("Remove(non-empty) error = %v, want ENOTEMPTY", err)
	}
}

func TestMountCreateDatabase(t *testing.T) {
	mountpoint, store := testMount(t)
	name := testutil.UniqueName("archive")
	if err := os.Mkdir(filepath.Join(mountpoint, name), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	exists, err := store.DatabaseExists(context.Background(), name)
	if err != nil || !exists {
		t.Errorf("database not created: exists=%v error=%v", exists, err)
	}
}

func TestMountStatfs(t *testing.T) {
	mountpoint, _ := testMount(t)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(mountpoint, &stat); err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if stat.Bsize != couchfs.BlockSize || stat.Blocks != couchfs.Blocks {
		t.Errorf("Statfs = bsize %d blocks %d", stat.Bsize, stat.Blocks)
	}
}
