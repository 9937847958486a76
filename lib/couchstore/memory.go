// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package couchstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Store. Documents, attachments, and revisions
// behave like CouchDB; views return the static rows registered with
// DefineView.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	databases map[string]*memoryDatabase
	failure   error
}

type memoryDatabase struct {
	documents map[string]*memoryDocument
	views     map[string]*memoryView
}

type memoryDocument struct {
	generation  int
	fields      map[string]json.RawMessage
	attachments map[string]*Attachment
}

type memoryView struct {
	reduce bool
	rows   []Row
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{databases: make(map[string]*memoryDatabase)}
}

// Fail makes every subsequent call return err until Fail(nil) is
// called. Tests use it to simulate an unreachable server.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

func (d *memoryDocument) rev() string {
	return fmt.Sprintf("%d-%08x", d.generation, d.generation*2654435761)
}

// PutDocument creates or replaces a document's ordinary fields from any
// JSON-marshalable body. Existing attachments are kept.
func (m *Memory) PutDocument(database, id string, body any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling document %s: %w", id, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", fmt.Errorf("document %s is not an object: %w", id, err)
	}
	delete(fields, "_id")
	delete(fields, "_rev")
	delete(fields, AttachmentsField)

	m.mu.Lock()
	defer m.mu.Unlock()
	db, err := m.database(database)
	if err != nil {
		return "", err
	}
	document := db.documents[id]
	if document == nil {
		document = &memoryDocument{attachments: make(map[string]*Attachment)}
		db.documents[id] = document
	}
	document.fields = fields
	document.generation++
	return document.rev(), nil
}

// DefineView stores a design document declaring the view and registers
// the rows the view returns. Rows are sorted with Collate on query.
func (m *Memory) DefineView(database, design, view string, reduce bool, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	db, err := m.database(database)
	if err != nil {
		return err
	}

	id := DesignPrefix + design
	document := db.documents[id]
	if document == nil {
		document = &memoryDocument{
			fields:      map[string]json.RawMessage{"views": json.RawMessage(`{}`)},
			attachments: make(map[string]*Attachment),
		}
		db.documents[id] = document
	}
	var views map[string]map[string]string
	if err := json.Unmarshal(document.fields["views"], &views); err != nil || views == nil {
		views = make(map[string]map[string]string)
	}
	definition := map[string]string{"map": "function(doc) {}"}
	if reduce {
		definition["reduce"] = "_count"
	}
	views[view] = definition
	encoded, err := json.Marshal(views)
	if err != nil {
		return err
	}
	document.fields["views"] = encoded
	document.generation++

	db.views[design+"/"+view] = &memoryView{reduce: reduce, rows: append([]Row(nil), rows...)}
	return nil
}

func (m *Memory) database(name string) (*memoryDatabase, error) {
	db, exists := m.databases[name]
	if !exists {
		return nil, fmt.Errorf("database %s: %w", name, ErrNotFound)
	}
	return db, nil
}

func (m *Memory) document(database, id string) (*memoryDocument, error) {
	db, err := m.database(database)
	if err != nil {
		return nil, err
	}
	document, exists := db.documents[id]
	if !exists {
		return nil, fmt.Errorf("document %s/%s: %w", database, id, ErrNotFound)
	}
	return document, nil
}

func (m *Memory) AllDBs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	names := make([]string, 0, len(m.databases))
	for name := range m.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) DatabaseExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return false, m.failure
	}
	_, exists := m.databases[name]
	return exists, nil
}

func (m *Memory) CreateDB(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return m.failure
	}
	if _, exists := m.databases[name]; exists {
		return fmt.Errorf("database %s: %w", name, ErrExists)
	}
	m.databases[name] = &memoryDatabase{
		documents: make(map[string]*memoryDocument),
		views:     make(map[string]*memoryView),
	}
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, database, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	stored, err := m.document(database, id)
	if err != nil {
		return nil, err
	}

	document := &Document{
		ID:          id,
		Rev:         stored.rev(),
		Fields:      make(map[string]json.RawMessage, len(stored.fields)+2),
		Attachments: make(map[string]AttachmentMeta, len(stored.attachments)),
	}
	for name, value := range stored.fields {
		document.Fields[name] = append(json.RawMessage(nil), value...)
	}
	document.Fields["_id"] = marshalString(id)
	document.Fields["_rev"] = marshalString(document.Rev)
	for name, attachment := range stored.attachments {
		document.Attachments[name] = AttachmentMeta{
			ContentType: attachment.ContentType,
			Length:      int64(len(attachment.Content)),
		}
	}
	return document, nil
}

func (m *Memory) Query(ctx context.Context, database string, query Query) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	db, err := m.database(database)
	if err != nil {
		return nil, err
	}

	var rows []Row
	compare := Collate
	group := false
	if query.IsAllDocs() {
		compare = RawCollate
		for id, document := range db.documents {
			rows = append(rows, Row{
				ID:    id,
				Key:   marshalString(id),
				Value: json.RawMessage(fmt.Sprintf(`{"rev":%s}`, marshalString(document.rev()))),
			})
		}
	} else {
		view, exists := db.views[query.Design+"/"+query.View]
		if !exists {
			return nil, fmt.Errorf("view %s/%s in %s: %w", query.Design, query.View, database, ErrNotFound)
		}
		if query.Group && !view.reduce {
			return nil, fmt.Errorf("view %s/%s: grouping requires a reduce function", query.Design, query.View)
		}
		group = query.Group
		rows = append(rows, view.rows...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := compare(rows[i].Key, rows[j].Key); c != 0 {
			return c < 0
		}
		return rows[i].ID < rows[j].ID
	})

	var selected []Row
	for _, row := range rows {
		if query.Key != nil && compare(row.Key, query.Key) != 0 {
			continue
		}
		if query.StartKey != nil && compare(row.Key, query.StartKey) < 0 {
			continue
		}
		if query.EndKey != nil && compare(row.Key, query.EndKey) > 0 {
			continue
		}
		// Grouped rows carry no document ID; the first row's value
		// stands in for the reduction.
		if group {
			if n := len(selected); n > 0 && compare(selected[n-1].Key, row.Key) == 0 {
				continue
			}
			row.ID = ""
		}
		selected = append(selected, row)
		if query.Limit > 0 && len(selected) == query.Limit {
			break
		}
	}
	return selected, nil
}

func (m *Memory) GetAttachment(ctx context.Context, database, documentID, name string) (*Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return nil, m.failure
	}
	document, err := m.document(database, documentID)
	if err != nil {
		return nil, err
	}
	attachment, exists := document.attachments[name]
	if !exists {
		return nil, fmt.Errorf("attachment %s on %s/%s: %w", name, database, documentID, ErrNotFound)
	}
	return &Attachment{
		Name:        attachment.Name,
		ContentType: attachment.ContentType,
		Content:     bytes.Clone(attachment.Content),
	}, nil
}

func (m *Memory) PutAttachment(ctx context.Context, database, documentID, rev string, attachment *Attachment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return "", m.failure
	}
	db, err := m.database(database)
	if err != nil {
		return "", err
	}
	document, exists := db.documents[documentID]
	switch {
	case !exists && rev != "":
		return "", fmt.Errorf("document %s/%s: %w", database, documentID, ErrNotFound)
	case !exists:
		document = &memoryDocument{
			fields:      make(map[string]json.RawMessage),
			attachments: make(map[string]*Attachment),
		}
		db.documents[documentID] = document
	case rev != document.rev():
		return "", fmt.Errorf("document %s/%s at %s: %w", database, documentID, rev, ErrConflict)
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	document.attachments[attachment.Name] = &Attachment{
		Name:        attachment.Name,
		ContentType: contentType,
		Content:     bytes.Clone(attachment.Content),
	}
	document.generation++
	return document.rev(), nil
}

func (m *Memory) DeleteAttachment(ctx context.Context, database, documentID, rev, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure != nil {
		return "", m.failure
	}
	document, err := m.document(database, documentID)
	if err != nil {
		return "", err
	}
	if rev != document.rev() {
		return "", fmt.Errorf("document %s/%s at %s: %w", database, documentID, rev, ErrConflict)
	}
	if _, exists := document.attachments[name]; !exists {
		return "", fmt.Errorf("attachment %s on %s/%s: %w", name, database, documentID, ErrNotFound)
	}
	delete(document.attachments, name)
	document.generation++
	return document.rev(), nil
}

func marshalString(s string) json.RawMessage {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(s)
	return json.RawMessage(bytes.TrimRight(buffer.Bytes(), "\n"))
}
