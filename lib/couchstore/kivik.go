// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package couchstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	kivik "github.com/go-kivik/kivik/v4"
	"github.com/go-kivik/kivik/v4/couchdb"
)

// DefaultURI is the connection used when none is configured.
const DefaultURI = "http://localhost:5984/"

// Kivik is a Store backed by a CouchDB server.
type Kivik struct {
	client *kivik.Client
}

var _ Store = (*Kivik)(nil)

// NewKivik connects to the server at uri. A zero timeout leaves HTTP
// requests unbounded.
func NewKivik(uri string, timeout time.Duration) (*Kivik, error) {
	if uri == "" {
		uri = DefaultURI
	}
	client, err := kivik.New("couch", uri, couchdb.OptionHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	return &Kivik{client: client}, nil
}

// Close releases the client's resources.
func (k *Kivik) Close() error {
	return k.client.Close()
}

// classify maps HTTP statuses onto the package's sentinel errors.
// Other failures pass through wrapped with what was being attempted.
func classify(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", what, ErrConflict)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w", what, ErrExists)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (k *Kivik) AllDBs(ctx context.Context) ([]string, error) {
	names, err := k.client.AllDBs(ctx)
	if err != nil {
		return nil, classify(err, "listing databases")
	}
	return names, nil
}

func (k *Kivik) DatabaseExists(ctx context.Context, name string) (bool, error) {
	exists, err := k.client.DBExists(ctx, name)
	if err != nil {
		return false, classify(err, "checking database %s", name)
	}
	return exists, nil
}

func (k *Kivik) CreateDB(ctx context.Context, name string) error {
	if err := k.client.CreateDB(ctx, name); err != nil {
		return classify(err, "creating database %s", name)
	}
	return nil
}

func (k *Kivik) GetDocument(ctx context.Context, database, id string) (*Document, error) {
	var body map[string]json.RawMessage
	if err := k.client.DB(database).Get(ctx, id).ScanDoc(&body); err != nil {
		return nil, classify(err, "fetching %s/%s", database, id)
	}
	document, err := decodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", database, id, err)
	}
	return document, nil
}

// queryParams converts a Query into kivik options. The couchdb driver
// JSON-encodes key parameters; json.RawMessage passes through as-is.
func queryParams(query Query) map[string]any {
	params := make(map[string]any)
	if query.Key != nil {
		params["key"] = query.Key
	}
	if query.StartKey != nil {
		params["startkey"] = query.StartKey
	}
	if query.EndKey != nil {
		params["endkey"] = query.EndKey
	}
	if query.Group {
		params["group"] = true
	}
	if query.Limit > 0 {
		params["limit"] = query.Limit
	}
	return params
}

func (k *Kivik) Query(ctx context.Context, database string, query Query) ([]Row, error) {
	db := k.client.DB(database)
	options := kivik.Params(queryParams(query))

	var results *kivik.ResultSet
	if query.IsAllDocs() {
		results = db.AllDocs(ctx, options)
	} else {
		results = db.Query(ctx, DesignPrefix+query.Design, "_view/"+query.View, options)
	}
	defer results.Close()

	var rows []Row
	for results.Next() {
		var row Row
		id, err := results.ID()
		if err != nil {
			return nil, classify(err, "reading row id from %s/%s", database, query.View)
		}
		row.ID = id
		if err := results.ScanKey(&row.Key); err != nil {
			return nil, classify(err, "reading row key from %s/%s", database, query.View)
		}
		if err := results.ScanValue(&row.Value); err != nil {
			return nil, classify(err, "reading row value from %s/%s", database, query.View)
		}
		rows = append(rows, row)
	}
	if err := results.Err(); err != nil {
		return nil, classify(err, "querying %s/%s", database, query.View)
	}
	return rows, nil
}

func (k *Kivik) GetAttachment(ctx context.Context, database, documentID, name string) (*Attachment, error) {
	attachment, err := k.client.DB(database).GetAttachment(ctx, documentID, name)
	if err != nil {
		return nil, classify(err, "fetching attachment %s on %s/%s", name, database, documentID)
	}
	defer attachment.Content.Close()

	content, err := io.ReadAll(attachment.Content)
	if err != nil {
		return nil, fmt.Errorf("reading attachment %s on %s/%s: %w", name, database, documentID, err)
	}
	return &Attachment{
		Name:        name,
		ContentType: attachment.ContentType,
		Content:     content,
	}, nil
}

func (k *Kivik) PutAttachment(ctx context.Context, database, documentID, rev string, attachment *Attachment) (string, error) {
	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var options []kivik.Option
	if rev != "" {
		options = append(options, kivik.Rev(rev))
	}
	newRev, err := k.client.DB(database).PutAttachment(ctx, documentID, &kivik.Attachment{
		Filename:    attachment.Name,
		ContentType: contentType,
		Content:     io.NopCloser(bytes.NewReader(attachment.Content)),
	}, options...)
	if err != nil {
		return "", classify(err, "storing attachment %s on %s/%s", attachment.Name, database, documentID)
	}
	return newRev, nil
}

func (k *Kivik) DeleteAttachment(ctx context.Context, database, documentID, rev, name string) (string, error) {
	newRev, err := k.client.DB(database).DeleteAttachment(ctx, documentID, rev, name)
	if err != nil {
		return "", classify(err, "deleting attachment %s on %s/%s", name, database, documentID)
	}
	return newRev, nil
}
