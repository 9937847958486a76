// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"encoding/binary"
	"fmt"
	"path"
	"strings"
	"sync"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/zeebo/blake3"
)

// inodeTable hands out inode numbers. A path keeps its number across
// lookups, so an open file stays attached to its inode while the
// kernel revalidates the name. go-fuse merges inodes that share a
// number, so a number must never name two paths at once:
//
//   - a rename records the moved inodes' numbers at their new paths
//     and retires the old path, so whatever appears there next gets a
//     fresh number;
//   - an unlink or rmdir retires the path the same way.
//
// Numbers come from blake3 over the file type and each path component
// paired with the count of times that prefix has been retired.
type inodeTable struct {
	mu sync.Mutex

	// retired counts renames away from and removals of each path.
	retired map[string]uint64

	// moved pins the numbers of inodes carried to a path by rename.
	moved map[inodeKey]uint64
}

type inodeKey struct {
	path string
	mode uint32
}

func newInodeTable() *inodeTable {
	return &inodeTable{
		retired: make(map[string]uint64),
		moved:   make(map[inodeKey]uint64),
	}
}

// number returns the inode number for a file of type mode (S_IFREG or
// S_IFDIR) at the absolute path p.
func (t *inodeTable) number(p string, mode uint32) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ino, ok := t.moved[inodeKey{p, mode}]; ok {
		return ino
	}

	hasher := blake3.New()
	fmt.Fprintf(hasher, "%o", mode)
	prefix := ""
	for _, segment := range strings.Split(p, "/") {
		if segment == "" {
			continue
		}
		prefix += "/" + segment
		fmt.Fprintf(hasher, "\x00%s\x00%d", segment, t.retired[prefix])
	}
	ino := binary.LittleEndian.Uint64(hasher.Sum(nil))
	if ino < 2 {
		ino += 2
	}
	return ino
}

// rename records that the entry at from now lives at to. inode is the
// moved entry's inode, or nil if the kernel never looked it up.
func (t *inodeTable) rename(from, to string, inode *gofuse.Inode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked(to)
	t.dropLocked(from)
	t.retired[from]++
	if inode != nil {
		t.carryLocked(to, inode)
	}
}

// remove retires p after an unlink or rmdir.
func (t *inodeTable) remove(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked(p)
	t.retired[p]++
}

func (t *inodeTable) carryLocked(p string, inode *gofuse.Inode) {
	attr := inode.StableAttr()
	t.moved[inodeKey{p, attr.Mode}] = attr.Ino
	for name, child := range inode.Children() {
		t.carryLocked(path.Join(p, name), child)
	}
}

// dropLocked forgets pinned numbers at or below p.
func (t *inodeTable) dropLocked(p string) {
	for key := range t.moved {
		if key.path == p || strings.HasPrefix(key.path, p+"/") {
			delete(t.moved, key)
		}
	}
}
