// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"context"
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/couchfs/couchfs/lib/attachtree"
	"github.com/couchfs/couchfs/lib/couchstore"
)

// revision threads a document's revision through a sequence of
// attachment writes.
type revision struct {
	store    couchstore.Store
	database string
	document string
	rev      string
}

func (r *Resolver) revision(database string, document *couchstore.Document) *revision {
	return &revision{store: r.store, database: database, document: document.ID, rev: document.Rev}
}

func (v *revision) put(ctx context.Context, attachment *couchstore.Attachment) error {
	rev, err := v.store.PutAttachment(ctx, v.database, v.document, v.rev, attachment)
	if err != nil {
		return storeError(err, "writing attachment %s on %s", attachment.Name, v.document)
	}
	v.rev = rev
	return nil
}

func (v *revision) delete(ctx context.Context, name string) error {
	rev, err := v.store.DeleteAttachment(ctx, v.database, v.document, v.rev, name)
	if err != nil {
		return storeError(err, "deleting attachment %s on %s", name, v.document)
	}
	v.rev = rev
	return nil
}

// CreateDatabase creates a database below the server root.
func (r *Resolver) CreateDatabase(ctx context.Context, parent Node, name string) error {
	if _, ok := parent.(*Server); !ok || r.scope != nil {
		return fmt.Errorf("creating %q: %w", name, ErrPermission)
	}
	if !validSegment(name) {
		return fmt.Errorf("database name %q: %w", name, ErrPermission)
	}
	if err := r.store.CreateDB(ctx, name); err != nil {
		return storeError(err, "creating database %s", name)
	}
	return nil
}

// CreateAttachment stores an empty attachment named name inside dir.
// The content type is guessed from the name's extension.
func (r *Resolver) CreateAttachment(ctx context.Context, parent Node, name string) error {
	dir, err := attachmentParent(parent, name)
	if err != nil {
		return err
	}
	full := path.Join(dir.Dir, name)
	if dir.Tree.IsDir(full) || dir.Tree.IsFile(full) {
		return fmt.Errorf("attachment %s on %s: %w", full, dir.Doc.ID, ErrExists)
	}
	return r.revision(dir.Database, dir.Doc).put(ctx, &couchstore.Attachment{
		Name:        full,
		ContentType: contentType(full),
	})
}

// MakeAttachmentDir creates an empty directory inside dir by storing
// a placeholder attachment in it.
func (r *Resolver) MakeAttachmentDir(ctx context.Context, parent Node, name string) error {
	dir, err := attachmentParent(parent, name)
	if err != nil {
		return err
	}
	full := path.Join(dir.Dir, name)
	if dir.Tree.IsDir(full) || dir.Tree.IsFile(full) {
		return fmt.Errorf("attachment directory %s on %s: %w", full, dir.Doc.ID, ErrExists)
	}
	return r.revision(dir.Database, dir.Doc).put(ctx, &couchstore.Attachment{
		Name:        attachtree.PlaceholderFor(full),
		ContentType: "application/octet-stream",
	})
}

func attachmentParent(parent Node, name string) (*AttachmentDir, error) {
	dir, ok := parent.(*AttachmentDir)
	if !ok {
		return nil, fmt.Errorf("creating %q: %w", name, ErrPermission)
	}
	if !validSegment(name) || attachtree.IsPlaceholder(name) {
		return nil, fmt.Errorf("attachment name %q: %w", name, ErrPermission)
	}
	return dir, nil
}

// RemoveAttachment deletes an attachment. When that leaves its
// directory without entries, a placeholder keeps the directory.
func (r *Resolver) RemoveAttachment(ctx context.Context, node Node) error {
	attachment, ok := node.(*Attachment)
	if !ok {
		if node.Container() {
			return ErrIsDirectory
		}
		return fmt.Errorf("removing JSON content: %w", ErrPermission)
	}
	rev := r.revision(attachment.Database, attachment.Doc)
	if err := rev.delete(ctx, attachment.Name); err != nil {
		return err
	}
	return keepDirectory(ctx, rev, attachment.Doc, attachment.Name)
}

// RemoveAttachmentDir deletes an attachment directory. Only a
// directory whose sole contents are placeholders can be removed.
func (r *Resolver) RemoveAttachmentDir(ctx context.Context, node Node) error {
	dir, ok := node.(*AttachmentDir)
	if !ok {
		if node.Container() {
			return fmt.Errorf("removing directory: %w", ErrPermission)
		}
		return ErrNotDirectory
	}
	if dir.Dir == "" {
		return fmt.Errorf("removing the attachment root of %s: %w", dir.Doc.ID, ErrPermission)
	}
	if len(dir.Tree.Children(dir.Dir)) > 0 {
		return fmt.Errorf("attachment directory %s on %s: %w", dir.Dir, dir.Doc.ID, ErrNotEmpty)
	}

	rev := r.revision(dir.Database, dir.Doc)
	for _, name := range namesWithin(dir.Doc, dir.Dir) {
		if err := rev.delete(ctx, name); err != nil {
			return err
		}
	}
	return keepDirectory(ctx, rev, dir.Doc, dir.Dir)
}

// keepDirectory writes a placeholder into the parent directory of
// removed when no other attachment lives there. Names in added were
// written after document was fetched.
func keepDirectory(ctx context.Context, rev *revision, document *couchstore.Document, removed string, added ...string) error {
	parent := path.Dir(removed)
	if parent == "." {
		return nil
	}
	for _, name := range added {
		if attachtree.Within(name, parent) {
			return nil
		}
	}
	for name := range document.Attachments {
		if name != removed && attachtree.Within(name, parent) && !attachtree.Within(name, removed) {
			return nil
		}
	}
	return rev.put(ctx, &couchstore.Attachment{
		Name:        attachtree.PlaceholderFor(parent),
		ContentType: "application/octet-stream",
	})
}

// RenameAttachment moves an attachment file or directory to name
// inside target. Both must belong to the same document; the move is a
// copy of every affected attachment followed by deletion of the
// originals.
func (r *Resolver) RenameAttachment(ctx context.Context, source, target Node, name string) error {
	dir, err := attachmentParent(target, name)
	if err != nil {
		return err
	}

	var from string
	var document *couchstore.Document
	var database string
	switch source := source.(type) {
	case *Attachment:
		from, document, database = source.Name, source.Doc, source.Database
	case *AttachmentDir:
		if source.Dir == "" {
			return fmt.Errorf("renaming the attachment root of %s: %w", source.Doc.ID, ErrPermission)
		}
		from, document, database = source.Dir, source.Doc, source.Database
	default:
		return fmt.Errorf("renaming %T: %w", source, ErrPermission)
	}
	if database != dir.Database || document.ID != dir.Doc.ID {
		return fmt.Errorf("renaming %s on %s to %s: %w", from, document.ID, dir.Doc.ID, ErrCrossDocument)
	}

	to := path.Join(dir.Dir, name)
	if to == from {
		return nil
	}
	if attachtree.Within(to, from) {
		return fmt.Errorf("moving %s into itself: %w", from, ErrPermission)
	}

	tree := attachtree.Build(document.AttachmentNames())
	_, isFile := source.(*Attachment)
	switch {
	case isFile && tree.IsDir(to):
		return fmt.Errorf("attachment %s on %s: %w", to, document.ID, ErrIsDirectory)
	case !isFile && tree.IsFile(to):
		return fmt.Errorf("attachment %s on %s: %w", to, document.ID, ErrNotDirectory)
	case !isFile && len(tree.Children(to)) > 0:
		return fmt.Errorf("attachment directory %s on %s: %w", to, document.ID, ErrNotEmpty)
	}

	moves := map[string]string{}
	if isFile {
		moves[from] = to
	} else {
		for _, old := range namesWithin(document, from) {
			moves[old] = to + strings.TrimPrefix(old, from)
		}
	}
	olds := make([]string, 0, len(moves))
	for old := range moves {
		olds = append(olds, old)
	}
	sort.Strings(olds)

	rev := r.revision(database, document)
	for _, old := range olds {
		attachment, err := r.store.GetAttachment(ctx, database, document.ID, old)
		if err != nil {
			return storeError(err, "reading attachment %s on %s", old, document.ID)
		}
		attachment.Name = moves[old]
		if err := rev.put(ctx, attachment); err != nil {
			return err
		}
	}
	for _, old := range olds {
		if err := rev.delete(ctx, old); err != nil {
			return err
		}
	}
	return keepDirectory(ctx, rev, document, from, to)
}

// namesWithin returns every stored attachment name under dir,
// placeholders included, sorted.
func namesWithin(document *couchstore.Document, dir string) []string {
	var names []string
	for name := range document.Attachments {
		if attachtree.Within(name, dir) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func contentType(name string) string {
	if guessed := mime.TypeByExtension(path.Ext(name)); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}
