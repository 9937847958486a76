// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package couchstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned when the database, document, or
	// attachment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write carries a stale revision.
	ErrConflict = errors.New("document update conflict")

	// ErrExists is returned when creating a database that exists.
	ErrExists = errors.New("already exists")
)

// AllDocs is the name of the built-in index over document IDs.
const AllDocs = "_all_docs"

// DesignPrefix starts the ID of every design document.
const DesignPrefix = "_design/"

// AttachmentsField is the reserved document field holding attachment
// metadata.
const AttachmentsField = "_attachments"

// Store is the set of CouchDB operations the filesystem needs. All
// methods block until the server answers.
type Store interface {
	AllDBs(ctx context.Context) ([]string, error)
	DatabaseExists(ctx context.Context, name string) (bool, error)
	CreateDB(ctx context.Context, name string) error

	GetDocument(ctx context.Context, database, id string) (*Document, error)
	Query(ctx context.Context, database string, query Query) ([]Row, error)

	GetAttachment(ctx context.Context, database, documentID, name string) (*Attachment, error)
	PutAttachment(ctx context.Context, database, documentID, rev string, attachment *Attachment) (string, error)
	DeleteAttachment(ctx context.Context, database, documentID, rev, name string) (string, error)
}

// Document is a fetched document. Fields holds every member except
// _attachments, whose stubs are decoded into Attachments.
type Document struct {
	ID          string
	Rev         string
	Fields      map[string]json.RawMessage
	Attachments map[string]AttachmentMeta
}

// AttachmentMeta is the stub CouchDB stores for an attachment.
type AttachmentMeta struct {
	ContentType string `json:"content_type"`
	Length      int64  `json:"length"`
}

// AttachmentNames returns the names of the document's attachments.
func (d *Document) AttachmentNames() []string {
	names := make([]string, 0, len(d.Attachments))
	for name := range d.Attachments {
		names = append(names, name)
	}
	return names
}

// Attachment is a whole attachment body.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Row is one row of index output. ID is the source document.
type Row struct {
	ID    string
	Key   json.RawMessage
	Value json.RawMessage
}

// Query selects rows from an index. Design is the design document name
// without the "_design/" prefix; it is empty for _all_docs. Key,
// StartKey and EndKey are raw JSON, nil when unset. Ranges are
// inclusive at both ends, as CouchDB's default.
type Query struct {
	Design   string
	View     string
	Key      json.RawMessage
	StartKey json.RawMessage
	EndKey   json.RawMessage
	Group    bool
	Limit    int
}

// IsAllDocs reports whether the query targets the _all_docs index.
func (q Query) IsAllDocs() bool {
	return q.Design == "" && q.View == AllDocs
}

// decodeDocument splits a raw document body into a Document.
func decodeDocument(body map[string]json.RawMessage) (*Document, error) {
	document := &Document{
		Fields:      make(map[string]json.RawMessage, len(body)),
		Attachments: make(map[string]AttachmentMeta),
	}
	for name, value := range body {
		switch name {
		case AttachmentsField:
			if err := json.Unmarshal(value, &document.Attachments); err != nil {
				return nil, err
			}
			continue
		case "_id":
			if err := json.Unmarshal(value, &document.ID); err != nil {
				return nil, err
			}
		case "_rev":
			if err := json.Unmarshal(value, &document.Rev); err != nil {
				return nil, err
			}
		}
		document.Fields[name] = value
	}
	return document, nil
}
