// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"context"
	"fmt"

	"github.com/couchfs/couchfs/lib/couchstore"
)

// MaxAttachmentSize caps the length a Write or Truncate may give an
// attachment. Every write holds the whole attachment in memory.
const MaxAttachmentSize = 1 << 30

// Size returns the byte length of a terminal node's content.
func Size(node Node) (int64, error) {
	switch node := node.(type) {
	case *Value:
		return int64(len(node.Data)), nil
	case *Attachment:
		return node.Meta.Length, nil
	}
	return 0, ErrIsDirectory
}

// Writable reports whether Write and Truncate accept the node.
func Writable(node Node) bool {
	_, ok := node.(*Attachment)
	return ok
}

// Read returns up to size bytes of node's content starting at offset.
// An offset at or past the end yields an empty slice; a read crossing
// the end is clamped.
func (r *Resolver) Read(ctx context.Context, node Node, offset int64, size int) ([]byte, error) {
	var content []byte
	switch node := node.(type) {
	case *Value:
		content = node.Data
	case *Attachment:
		attachment, err := r.store.GetAttachment(ctx, node.Database, node.Doc.ID, node.Name)
		if err != nil {
			return nil, storeError(err, "reading attachment %s on %s", node.Name, node.Doc.ID)
		}
		content = attachment.Content
	default:
		if node.Container() {
			return nil, ErrIsDirectory
		}
		return nil, fmt.Errorf("unhandled node %T", node)
	}
	return window(content, offset, size), nil
}

func window(content []byte, offset int64, size int) []byte {
	if offset < 0 || size < 0 || offset >= int64(len(content)) {
		return []byte{}
	}
	end := offset + int64(size)
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return content[offset:end]
}

// Write replaces len(data) bytes of an attachment at offset, growing
// it with zero bytes when offset lies past the end, and stores the
// result under the document revision the node was resolved at. It
// returns the number of bytes written. Content that has no writable
// backing is refused with ErrPermission and nothing is stored.
func (r *Resolver) Write(ctx context.Context, node Node, offset int64, data []byte) (int, error) {
	attachment, err := writableAttachment(node)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, fmt.Errorf("negative offset %d", offset)
	}
	if offset > MaxAttachmentSize-int64(len(data)) {
		return 0, fmt.Errorf("writing %d bytes at offset %d: %w", len(data), offset, ErrTooLarge)
	}
	current, err := r.store.GetAttachment(ctx, attachment.Database, attachment.Doc.ID, attachment.Name)
	if err != nil {
		return 0, storeError(err, "reading attachment %s on %s", attachment.Name, attachment.Doc.ID)
	}
	content := splice(current.Content, offset, data)
	if err := r.replace(ctx, attachment, current.ContentType, content); err != nil {
		return 0, err
	}
	return len(data), nil
}

// splice overlays data onto content at offset.
func splice(content []byte, offset int64, data []byte) []byte {
	end := offset + int64(len(data))
	size := int64(len(content))
	if end > size {
		size = end
	}
	result := make([]byte, size)
	copy(result, content)
	copy(result[offset:], data)
	return result
}

// Truncate sets an attachment's length, dropping trailing bytes or
// padding with zero bytes.
func (r *Resolver) Truncate(ctx context.Context, node Node, size int64) error {
	attachment, err := writableAttachment(node)
	if err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("negative size %d", size)
	}
	if size > MaxAttachmentSize {
		return fmt.Errorf("truncating to %d bytes: %w", size, ErrTooLarge)
	}
	current, err := r.store.GetAttachment(ctx, attachment.Database, attachment.Doc.ID, attachment.Name)
	if err != nil {
		return storeError(err, "reading attachment %s on %s", attachment.Name, attachment.Doc.ID)
	}
	content := make([]byte, size)
	copy(content, current.Content)
	return r.replace(ctx, attachment, current.ContentType, content)
}

// writableAttachment accepts attachments only. Attachment directories
// are containers; everything else mirrors read-only server state.
func writableAttachment(node Node) (*Attachment, error) {
	switch node := node.(type) {
	case *Attachment:
		return node, nil
	case *AttachmentDir:
		return nil, ErrIsDirectory
	}
	return nil, fmt.Errorf("%T is read-only: %w", node, ErrPermission)
}

func (r *Resolver) replace(ctx context.Context, attachment *Attachment, contentType string, content []byte) error {
	_, err := r.store.PutAttachment(ctx, attachment.Database, attachment.Doc.ID, attachment.Doc.Rev, &couchstore.Attachment{
		Name:        attachment.Name,
		ContentType: contentType,
		Content:     content,
	})
	if err != nil {
		return storeError(err, "writing attachment %s on %s", attachment.Name, attachment.Doc.ID)
	}
	return nil
}
