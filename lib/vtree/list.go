// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/couchfs/couchfs/lib/couchstore"
)

// List returns the names of node's children. Every returned name
// resolves through Step from node; names that could not resolve are
// left out.
func (r *Resolver) List(ctx context.Context, node Node) ([]string, error) {
	switch node := node.(type) {
	case *Server:
		return r.listServer(ctx)
	case *Database:
		return []string{AllDocsSegment, ViewsSegment}, nil
	case *DesignListing:
		return r.listDesigns(ctx, node)
	case *DesignRow:
		names := make([]string, 0, len(node.Views))
		for name := range node.Views {
			if validSegment(name) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return names, nil
	case *Index:
		return r.listIndex(ctx, node)
	case *Row:
		return []string{ValueSegment}, nil
	case *Document:
		names := make([]string, 0, len(node.Doc.Fields)+1)
		for name := range node.Doc.Fields {
			if validSegment(name) && name != AttachmentsSegment {
				names = append(names, name)
			}
		}
		names = append(names, AttachmentsSegment)
		sort.Strings(names)
		return names, nil
	case *AttachmentDir:
		return node.Tree.Children(node.Dir), nil
	case *Value, *Attachment:
		return nil, ErrNotDirectory
	}
	return nil, fmt.Errorf("unhandled node %T", node)
}

func (r *Resolver) listServer(ctx context.Context) ([]string, error) {
	databases, err := r.store.AllDBs(ctx)
	if err != nil {
		return nil, storeError(err, "listing databases")
	}
	names := make([]string, 0, len(databases))
	for _, name := range databases {
		if validSegment(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *Resolver) listDesigns(ctx context.Context, listing *DesignListing) ([]string, error) {
	rows, err := r.store.Query(ctx, listing.Database, designRange())
	if err != nil {
		return nil, storeError(err, "listing design documents of %s", listing.Database)
	}
	var names []string
	for _, row := range rows {
		name, found := strings.CutPrefix(row.ID, couchstore.DesignPrefix)
		if found && validSegment(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// listIndex names the distinct next components of the rows under the
// index's prefix, in index order.
func (r *Resolver) listIndex(ctx context.Context, index *Index) ([]string, error) {
	query := index.query()
	if index.Prefix != nil {
		start, end, err := extensionRange(index, index.Prefix)
		if err != nil {
			return nil, fmt.Errorf("prefix %s: %w", index.Prefix, err)
		}
		query.StartKey, query.EndKey = start.Raw(), end.Raw()
	}
	rows, err := r.store.Query(ctx, index.Database, query)
	if err != nil {
		return nil, storeError(err, "listing %s", index.View)
	}

	seen := make(map[string]bool)
	var names []string
	for _, row := range rows {
		name, ok := nextComponent(index, row)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// Entry is a listed name with its kind.
type Entry struct {
	Name      string
	Container bool
}

// Entries is List with each name's kind, derived from node alone
// without further store queries.
func (r *Resolver) Entries(ctx context.Context, node Node) ([]Entry, error) {
	names, err := r.List(ctx, node)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(names))
	for i, name := range names {
		entries[i] = Entry{Name: name, Container: childIsContainer(node, name)}
	}
	return entries, nil
}

// childIsContainer reports the kind of a listed child. Index children
// are rows or sub-ranges and both are containers; only document
// fields, row values, and attachment files are terminal.
func childIsContainer(node Node, name string) bool {
	switch node := node.(type) {
	case *Row:
		return false
	case *Document:
		return name == AttachmentsSegment
	case *AttachmentDir:
		return node.Tree.IsDir(path.Join(node.Dir, name))
	}
	return true
}
