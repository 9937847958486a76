// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/couchfs/couchfs/lib/couchstore"
)

// newFixture returns a resolver over a store holding database "music":
//
//	2024/03/01, 2024/03/02, 2024/04/01   slash-separated document IDs
//	readme                               fields plus attachments
//	_design/by                           views "year" (map) and "count" (reduce)
func newFixture(t *testing.T) (*Resolver, *couchstore.Memory) {
	t.Helper()
	ctx := context.Background()
	store := couchstore.NewMemory()
	if err := store.CreateDB(ctx, "music"); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}
	for _, id := range []string{"2024/03/01", "2024/03/02", "2024/04/01"} {
		if _, err := store.PutDocument("music", id, map[string]any{"day": id}); err != nil {
			t.Fatalf("PutDocument(%s): %v", id, err)
		}
	}
	rev, err := store.PutDocument("music", "readme", map[string]any{"title": "hi", "n": 3})
	if err != nil {
		t.Fatalf("PutDocument(readme): %v", err)
	}
	for _, attachment := range []*couchstore.Attachment{
		{Name: "notes.txt", ContentType: "text/plain", Content: []byte("hello")},
		{Name: "img/a.png", ContentType: "image/png", Content: []byte{0x89, 'P', 'N', 'G'}},
	} {
		rev, err = store.PutAttachment(ctx, "music", "readme", rev, attachment)
		if err != nil {
			t.Fatalf("PutAttachment(%s): %v", attachment.Name, err)
		}
	}

	yearRows := []couchstore.Row{
		{ID: "2024/03/01", Key: json.RawMessage(`[2024,"03"]`), Value: json.RawMessage(`1`)},
		{ID: "2024/03/02", Key: json.RawMessage(`[2024,"03"]`), Value: json.RawMessage(`2`)},
		{ID: "2024/04/01", Key: json.RawMessage(`[2024,"04"]`), Value: json.RawMessage(`{"a": [1, 2]}`)},
		{ID: "readme", Key: json.RawMessage(`"solo"`), Value: json.RawMessage(`null`)},
	}
	if err := store.DefineView("music", "by", "year", false, yearRows); err != nil {
		t.Fatalf("DefineView(year): %v", err)
	}
	countRows := []couchstore.Row{
		{Key: json.RawMessage(`["a",1]`), Value: json.RawMessage(`2`)},
		{Key: json.RawMessage(`["a",2]`), Value: json.RawMessage(`5`)},
		{Key: json.RawMessage(`["b",1]`), Value: json.RawMessage(`1`)},
	}
	if err := store.DefineView("music", "by", "count", true, countRows); err != nil {
		t.Fatalf("DefineView(count): %v", err)
	}
	return NewResolver(store), store
}

func resolveLast(t *testing.T, resolver *Resolver, path string) Node {
	t.Helper()
	chain, err := resolver.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", path, err)
	}
	return chain.Last()
}

func listPath(t *testing.T, resolver *Resolver, path string) []string {
	t.Helper()
	names, err := resolver.List(context.Background(), resolveLast(t, resolver, path))
	if err != nil {
		t.Fatalf("List(%q): %v", path, err)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
