// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"encoding/json"

	"github.com/couchfs/couchfs/lib/attachtree"
	"github.com/couchfs/couchfs/lib/couchstore"
	"github.com/couchfs/couchfs/lib/keycodec"
)

// Segment names with fixed meaning.
const (
	AllDocsSegment     = couchstore.AllDocs
	ViewsSegment       = "_view"
	ValueSegment       = "value"
	AttachmentsSegment = couchstore.AttachmentsField
)

// Node is one resolved entity. The set of implementations is closed;
// every switch over a Node in this package handles each of them.
type Node interface {
	// Container reports whether the node is listed as a directory.
	Container() bool
	node()
}

// Server is the root of the tree.
type Server struct{}

// Database is a database on the server.
type Database struct {
	Name string
}

// DesignListing is the "_view" directory of a database.
type DesignListing struct {
	Database string
}

// DesignRow is a design document browsed as a container of its views.
type DesignRow struct {
	Database string
	Design   string

	// Views maps each view name to whether it has a reduce function.
	Views map[string]bool
}

// Index is _all_docs or a view. Prefix is nil at the index root; inside
// a sub-range it holds the compound key every listed row extends.
type Index struct {
	Database string
	Design   string
	View     string
	Group    bool
	Prefix   keycodec.Key
}

// Row is one row of ordinary index output.
type Row struct {
	Database string
	ID       string
	Key      keycodec.Key
	Value    json.RawMessage
}

// Document is a fetched document.
type Document struct {
	Database string
	Doc      *couchstore.Document
}

// AttachmentDir is a directory of a document's attachment tree. Dir is
// "" for the tree root.
type AttachmentDir struct {
	Database string
	Doc      *couchstore.Document
	Tree     *attachtree.Tree
	Dir      string
}

// Value is terminal JSON content.
type Value struct {
	Data json.RawMessage
}

// Attachment is one attachment of a document.
type Attachment struct {
	Database string
	Doc      *couchstore.Document
	Name     string
	Meta     couchstore.AttachmentMeta
}

func (*Server) Container() bool        { return true }
func (*Database) Container() bool      { return true }
func (*DesignListing) Container() bool { return true }
func (*DesignRow) Container() bool     { return true }
func (*Index) Container() bool         { return true }
func (*Row) Container() bool           { return true }
func (*Document) Container() bool      { return true }
func (*AttachmentDir) Container() bool { return true }
func (*Value) Container() bool         { return false }
func (*Attachment) Container() bool    { return false }

func (*Server) node()        {}
func (*Database) node()      {}
func (*DesignListing) node() {}
func (*DesignRow) node()     {}
func (*Index) node()         {}
func (*Row) node()           {}
func (*Document) node()      {}
func (*AttachmentDir) node() {}
func (*Value) node()         {}
func (*Attachment) node()    {}

// AllDocs reports whether the index is the _all_docs index, whose keys
// are document IDs.
func (i *Index) AllDocs() bool {
	return i.Design == "" && i.View == couchstore.AllDocs
}

// query returns the store query for the whole index (or sub-range).
func (i *Index) query() couchstore.Query {
	return couchstore.Query{Design: i.Design, View: i.View, Group: i.Group}
}

// narrow returns the sub-range index for prefix.
func (i *Index) narrow(prefix keycodec.Key) *Index {
	narrowed := *i
	narrowed.Prefix = prefix
	return &narrowed
}

// Chain is the sequence of nodes from the root to the resolved node.
type Chain []Node

// Last returns the resolved node.
func (c Chain) Last() Node {
	return c[len(c)-1]
}

// Parent returns the node before the resolved one, or nil at the root.
func (c Chain) Parent() Node {
	if len(c) < 2 {
		return nil
	}
	return c[len(c)-2]
}
