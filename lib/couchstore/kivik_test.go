// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package couchstore

import (
	"encoding/json"
	"testing"
)

func TestQueryParams(t *testing.T) {
	params := queryParams(Query{
		Design:   "stats",
		View:     "by_date",
		StartKey: json.RawMessage(`[2024]`),
		EndKey:   json.RawMessage(`[2024,{}]`),
		Group:    true,
		Limit:    1,
	})
	if string(params["startkey"].(json.RawMessage)) != `[2024]` {
		t.Errorf("startkey = %v", params["startkey"])
	}
	if string(params["endkey"].(json.RawMessage)) != `[2024,{}]` {
		t.Errorf("endkey = %v", params["endkey"])
	}
	if params["group"] != true || params["limit"] != 1 {
		t.Errorf("group/limit = %v/%v", params["group"], params["limit"])
	}
	if _, exists := params["key"]; exists {
		t.Error("unset key present in params")
	}

	empty := queryParams(Query{View: AllDocs})
	if len(empty) != 0 {
		t.Errorf("empty query params = %v", empty)
	}
}

func TestDecodeDocument(t *testing.T) {
	var body map[string]json.RawMessage
	raw := `{"_id":"doc","_rev":"3-abc","title":"x","_attachments":{"a/b":{"content_type":"text/plain","length":5,"stub":true}}}`
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatal(err)
	}
	document, err := decodeDocument(body)
	if err != nil {
		t.Fatalf("decodeDocument: %v", err)
	}
	if document.ID != "doc" || document.Rev != "3-abc" {
		t.Errorf("id/rev = %s/%s", document.ID, document.Rev)
	}
	if _, exists := document.Fields["_attachments"]; exists {
		t.Error("_attachments kept in Fields")
	}
	if string(document.Fields["title"]) != `"x"` {
		t.Errorf("title = %s", document.Fields["title"])
	}
	if meta := document.Attachments["a/b"]; meta.Length != 5 || meta.ContentType != "text/plain" {
		t.Errorf("attachment meta = %+v", meta)
	}
}
