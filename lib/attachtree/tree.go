// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package attachtree

import (
	"path"
	"sort"
	"strings"
)

// Placeholder is the reserved attachment name that marks an otherwise
// empty directory.
const Placeholder = ".couchdb-fuse-placeholder"

// Separator splits attachment names into path components.
const Separator = "/"

// Tree maps each directory path to its immediate children. Directory
// paths are relative to the document root, which is "".
type Tree struct {
	directories map[string]map[string]bool
	files       map[string]bool
}

// Build constructs a Tree from attachment names. Names with empty
// components ("a//b", "/a", "a/") cannot be addressed by a path and
// are skipped.
func Build(names []string) *Tree {
	tree := &Tree{
		directories: map[string]map[string]bool{"": {}},
		files:       make(map[string]bool),
	}
	for _, name := range names {
		tree.add(name)
	}
	return tree
}

func (t *Tree) add(name string) {
	components := strings.Split(name, Separator)
	for _, component := range components {
		if component == "" || component == "." || component == ".." {
			return
		}
	}

	last := len(components) - 1
	placeholder := components[last] == Placeholder

	parent := ""
	for i, component := range components {
		if i == last {
			if placeholder {
				return
			}
			t.directories[parent][component] = true
			t.files[name] = true
			return
		}
		t.directories[parent][component] = true
		child := path.Join(parent, component)
		if t.directories[child] == nil {
			t.directories[child] = make(map[string]bool)
		}
		parent = child
	}
}

// IsDir reports whether dir is a directory in the tree.
func (t *Tree) IsDir(dir string) bool {
	_, exists := t.directories[dir]
	return exists
}

// IsFile reports whether name is an attachment (not a placeholder). A
// name that is also a directory prefix of other attachments is reported
// as a directory by IsDir; callers give the directory precedence.
func (t *Tree) IsFile(name string) bool {
	return t.files[name]
}

// Children returns the sorted immediate children of dir, or nil if dir
// is not a directory.
func (t *Tree) Children(dir string) []string {
	entries, exists := t.directories[dir]
	if !exists {
		return nil
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Directories returns the mapping from directory path to its set of
// child names. The returned map is a copy.
func (t *Tree) Directories() map[string]map[string]bool {
	result := make(map[string]map[string]bool, len(t.directories))
	for dir, children := range t.directories {
		copied := make(map[string]bool, len(children))
		for name := range children {
			copied[name] = true
		}
		result[dir] = copied
	}
	return result
}

// Files returns every attachment name under dir (recursively) that is
// a real file, sorted.
func (t *Tree) Files(dir string) []string {
	var names []string
	for name := range t.files {
		if Within(name, dir) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Within reports whether the attachment name lies inside dir. Every
// name lies inside the root "".
func Within(name, dir string) bool {
	if dir == "" {
		return true
	}
	return strings.HasPrefix(name, dir+Separator)
}

// PlaceholderFor returns the placeholder attachment name for dir.
func PlaceholderFor(dir string) string {
	return path.Join(dir, Placeholder)
}

// IsPlaceholder reports whether the attachment name is a placeholder.
func IsPlaceholder(name string) bool {
	return path.Base(name) == Placeholder
}
