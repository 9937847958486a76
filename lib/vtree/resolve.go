// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/couchfs/couchfs/lib/attachtree"
	"github.com/couchfs/couchfs/lib/couchstore"
	"github.com/couchfs/couchfs/lib/keycodec"
)

// Scope restricts a Resolver to the attachment tree of one document.
// The tree root then stands in for the server root.
type Scope struct {
	Database string
	Document string
}

// Resolver walks paths against a store. It holds no state between
// calls and is safe for concurrent use.
type Resolver struct {
	store couchstore.Store
	scope *Scope
}

// NewResolver returns a Resolver over the whole server.
func NewResolver(store couchstore.Store) *Resolver {
	return &Resolver{store: store}
}

// NewScopedResolver returns a Resolver whose root is the attachment
// tree of one document.
func NewScopedResolver(store couchstore.Store, scope Scope) *Resolver {
	return &Resolver{store: store, scope: &scope}
}

// Store returns the store the resolver queries.
func (r *Resolver) Store() couchstore.Store {
	return r.store
}

// Split tokenizes a path into segments, dropping empty ones.
func Split(p string) []string {
	var segments []string
	for _, segment := range strings.Split(p, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// Resolve walks p from the root and returns every node visited. It
// fails as a whole: a miss anywhere returns ErrNotFound and no chain.
func (r *Resolver) Resolve(ctx context.Context, p string) (Chain, error) {
	chain, err := r.root(ctx)
	if err != nil {
		return nil, err
	}
	for _, segment := range Split(p) {
		next, err := r.Step(ctx, chain.Last(), segment)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", p, err)
		}
		chain = append(chain, next)
	}
	return chain, nil
}

// root returns the chain for the empty path.
func (r *Resolver) root(ctx context.Context) (Chain, error) {
	chain := Chain{&Server{}}
	if r.scope == nil {
		return chain, nil
	}
	database, err := r.stepServer(ctx, r.scope.Database)
	if err != nil {
		return nil, err
	}
	document, err := r.document(ctx, r.scope.Database, r.scope.Document)
	if err != nil {
		return nil, err
	}
	return append(chain, database, document, attachmentRoot(document)), nil
}

// Step resolves one segment below current.
func (r *Resolver) Step(ctx context.Context, current Node, segment string) (Node, error) {
	if !validSegment(segment) {
		return nil, fmt.Errorf("segment %q: %w", segment, ErrNotFound)
	}
	switch node := current.(type) {
	case *Server:
		return r.stepServer(ctx, segment)
	case *Database:
		return r.stepDatabase(ctx, node, segment)
	case *DesignListing:
		return r.stepDesignListing(ctx, node, segment)
	case *DesignRow:
		return stepDesignRow(node, segment)
	case *Index:
		return r.stepIndex(ctx, node, segment)
	case *Row:
		if segment != ValueSegment {
			return nil, fmt.Errorf("row %s has no %q: %w", node.Key, segment, ErrNotFound)
		}
		return &Value{Data: node.Value}, nil
	case *Document:
		return stepDocument(node, segment)
	case *AttachmentDir:
		return stepAttachmentDir(node, segment)
	case *Value, *Attachment:
		return nil, fmt.Errorf("segment %q below terminal content: %w", segment, ErrNotDirectory)
	}
	return nil, fmt.Errorf("unhandled node %T", current)
}

func (r *Resolver) stepServer(ctx context.Context, name string) (Node, error) {
	exists, err := r.store.DatabaseExists(ctx, name)
	if err != nil {
		return nil, storeError(err, "database %s", name)
	}
	if !exists {
		return nil, fmt.Errorf("database %s: %w", name, ErrNotFound)
	}
	return &Database{Name: name}, nil
}

func (r *Resolver) stepDatabase(ctx context.Context, database *Database, segment string) (Node, error) {
	switch segment {
	case AllDocsSegment:
		return &Index{Database: database.Name, View: couchstore.AllDocs}, nil
	case ViewsSegment:
		return &DesignListing{Database: database.Name}, nil
	}
	return r.document(ctx, database.Name, segment)
}

func (r *Resolver) document(ctx context.Context, database, id string) (*Document, error) {
	document, err := r.store.GetDocument(ctx, database, id)
	if err != nil {
		return nil, storeError(err, "document %s/%s", database, id)
	}
	return &Document{Database: database, Doc: document}, nil
}

// designRange is the _all_docs range holding every design document.
func designRange() couchstore.Query {
	return couchstore.Query{
		View:     couchstore.AllDocs,
		StartKey: keycodec.String(couchstore.DesignPrefix).Raw(),
		EndKey:   keycodec.String(couchstore.DesignPrefix + DocumentIDSentinel).Raw(),
	}
}

func (r *Resolver) stepDesignListing(ctx context.Context, listing *DesignListing, design string) (Node, error) {
	id := couchstore.DesignPrefix + design
	query := couchstore.Query{View: couchstore.AllDocs, Key: keycodec.String(id).Raw()}
	rows, err := r.store.Query(ctx, listing.Database, query)
	if err != nil {
		return nil, storeError(err, "design document %s/%s", listing.Database, id)
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("design document %s/%s: %w", listing.Database, id, ErrNotFound)
	}

	document, err := r.store.GetDocument(ctx, listing.Database, id)
	if err != nil {
		return nil, storeError(err, "design document %s/%s", listing.Database, id)
	}
	views, err := designViews(document)
	if err != nil {
		return nil, fmt.Errorf("design document %s/%s: %w", listing.Database, id, err)
	}
	return &DesignRow{Database: listing.Database, Design: design, Views: views}, nil
}

// designViews reads the views member of a design document.
func designViews(document *couchstore.Document) (map[string]bool, error) {
	views := make(map[string]bool)
	raw, exists := document.Fields["views"]
	if !exists {
		return views, nil
	}
	var definitions map[string]struct {
		Reduce json.RawMessage `json:"reduce"`
	}
	if err := json.Unmarshal(raw, &definitions); err != nil {
		return nil, fmt.Errorf("decoding views: %w", err)
	}
	for name, definition := range definitions {
		views[name] = len(definition.Reduce) > 0 && !bytes.Equal(definition.Reduce, []byte("null"))
	}
	return views, nil
}

func stepDesignRow(row *DesignRow, view string) (Node, error) {
	reduce, exists := row.Views[view]
	if !exists {
		return nil, fmt.Errorf("view %s/%s: %w", row.Design, view, ErrNotFound)
	}
	return &Index{Database: row.Database, Design: row.Design, View: view, Group: reduce}, nil
}

func (r *Resolver) stepIndex(ctx context.Context, index *Index, segment string) (Node, error) {
	key, err := childKey(index, segment)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w: %v", segment, ErrNotFound, err)
	}

	start, end, err := extensionRange(index, key)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w: %v", key, ErrNotFound, err)
	}
	extensions := index.query()
	extensions.StartKey, extensions.EndKey, extensions.Limit = start.Raw(), end.Raw(), 1
	extended, err := r.store.Query(ctx, index.Database, extensions)
	if err != nil {
		return nil, storeError(err, "querying %s for keys under %s", index.View, key)
	}

	var exact []couchstore.Row
	if len(extended) == 0 {
		lookup := index.query()
		lookup.Key = key.Raw()
		exact, err = r.store.Query(ctx, index.Database, lookup)
		if err != nil {
			return nil, storeError(err, "querying %s for key %s", index.View, key)
		}
	}

	decision, row := Disambiguate(exact, len(extended))
	switch decision {
	case SubRange:
		return index.narrow(key), nil
	case SingleRow:
		rowKey, err := keycodec.Parse(row.Key)
		if err != nil {
			return nil, fmt.Errorf("row key from %s: %w", index.View, err)
		}
		return &Row{Database: index.Database, ID: row.ID, Key: rowKey, Value: compact(row.Value)}, nil
	}
	return nil, fmt.Errorf("key %s in %s: %w", key, index.View, ErrNotFound)
}

func stepDocument(document *Document, field string) (Node, error) {
	if field == AttachmentsSegment {
		return attachmentRoot(document), nil
	}
	value, exists := document.Doc.Fields[field]
	if !exists {
		return nil, fmt.Errorf("field %s of %s: %w", field, document.Doc.ID, ErrNotFound)
	}
	return &Value{Data: compact(value)}, nil
}

func attachmentRoot(document *Document) *AttachmentDir {
	return &AttachmentDir{
		Database: document.Database,
		Doc:      document.Doc,
		Tree:     attachtree.Build(document.Doc.AttachmentNames()),
	}
}

func stepAttachmentDir(dir *AttachmentDir, segment string) (Node, error) {
	name := path.Join(dir.Dir, segment)
	if dir.Tree.IsDir(name) {
		child := *dir
		child.Dir = name
		return &child, nil
	}
	if dir.Tree.IsFile(name) {
		return &Attachment{
			Database: dir.Database,
			Doc:      dir.Doc,
			Name:     name,
			Meta:     dir.Doc.Attachments[name],
		}, nil
	}
	return nil, fmt.Errorf("attachment %s on %s: %w", name, dir.Doc.ID, ErrNotFound)
}

// compact returns the canonical JSON text of raw, or raw itself if it
// does not parse.
func compact(raw json.RawMessage) json.RawMessage {
	var buffer bytes.Buffer
	if err := json.Compact(&buffer, raw); err != nil {
		return raw
	}
	return buffer.Bytes()
}

// IsNotFound reports whether err is a resolution miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
