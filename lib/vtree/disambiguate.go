// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package vtree

import (
	"fmt"
	"strings"

	"github.com/couchfs/couchfs/lib/couchstore"
	"github.com/couchfs/couchfs/lib/keycodec"
)

// DocumentIDSentinel sorts after every continuation of a document ID
// prefix under raw collation. It is the highest code point, so IDs
// with characters beyond U+FFF0 stay inside the range too.
const DocumentIDSentinel = "\U0010FFFF"

// viewSentinel is the empty object, which sorts after every other JSON
// value under view collation.
var viewSentinel = keycodec.Key(`{}`)

// Decision is the outcome of disambiguating a key against an index.
type Decision int

const (
	// NoMatch: neither an exact row nor any longer key exists.
	NoMatch Decision = iota

	// SingleRow: the key names exactly one row.
	SingleRow

	// SubRange: the key is a proper prefix of at least one row key.
	SubRange
)

func (d Decision) String() string {
	switch d {
	case SingleRow:
		return "single-row"
	case SubRange:
		return "sub-range"
	}
	return "no-match"
}

// Disambiguate decides what a decoded key denotes given the rows whose
// key equals it and the number of rows whose key strictly extends it.
// Extensions take precedence, so a key that is both a row and a prefix
// opens a sub-range. Several exact rows with no extensions (a map view
// emitting one key from many documents) resolve to the first in index
// order: a path segment can only name a key, so the remaining rows
// sharing it are not reachable through the tree. Listings show the
// key once.
func Disambiguate(exact []couchstore.Row, extended int) (Decision, couchstore.Row) {
	switch {
	case extended > 0:
		return SubRange, couchstore.Row{}
	case len(exact) > 0:
		return SingleRow, exact[0]
	}
	return NoMatch, couchstore.Row{}
}

// childKey forms the key a segment denotes inside index. At the index
// root the segment is decoded on its own; inside a sub-range it is
// appended to the prefix: joined with "/" for document IDs, as one more
// array element for views.
func childKey(index *Index, segment string) (keycodec.Key, error) {
	component, err := keycodec.DecodeSegment(segment, index.AllDocs())
	if err != nil {
		return nil, err
	}
	if index.Prefix == nil {
		return component, nil
	}
	if !index.AllDocs() {
		return keycodec.Append(index.Prefix, component)
	}
	prefix, ok := index.Prefix.AsString()
	if !ok {
		return nil, fmt.Errorf("%w: document ID prefix %s", keycodec.ErrMalformed, index.Prefix)
	}
	return keycodec.String(prefix + keycodec.Separator + segment), nil
}

// extensionRange returns the inclusive key range holding every key
// that strictly extends key.
func extensionRange(index *Index, key keycodec.Key) (start, end keycodec.Key, err error) {
	if index.AllDocs() {
		id, ok := key.AsString()
		if !ok {
			return nil, nil, fmt.Errorf("%w: document ID %s", keycodec.ErrMalformed, key)
		}
		base := id + keycodec.Separator
		return keycodec.String(base), keycodec.String(base + DocumentIDSentinel), nil
	}
	start, err = keycodec.Append(key, keycodec.Null)
	if err != nil {
		return nil, nil, err
	}
	end, err = keycodec.Append(key, viewSentinel)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// nextComponent returns the name of the path component that follows
// prefix in a row key, or false if the row cannot be shown as one.
func nextComponent(index *Index, row couchstore.Row) (string, bool) {
	if index.AllDocs() {
		rest := row.ID
		if index.Prefix != nil {
			prefix, ok := index.Prefix.AsString()
			if !ok || !strings.HasPrefix(row.ID, prefix+keycodec.Separator) {
				return "", false
			}
			rest = row.ID[len(prefix)+1:]
		}
		component, _, _ := strings.Cut(rest, keycodec.Separator)
		return component, validSegment(component)
	}

	key, err := keycodec.Parse(row.Key)
	if err != nil {
		return "", false
	}
	if index.Prefix != nil {
		prefixElements, err := index.Prefix.Elements()
		if err != nil {
			return "", false
		}
		elements, err := key.Elements()
		if err != nil || !key.IsArray() || len(elements) <= len(prefixElements) {
			return "", false
		}
		key = elements[len(prefixElements)]
	}
	name, err := keycodec.Encode(key)
	if err != nil {
		return "", false
	}
	return name, validSegment(name)
}

// validSegment reports whether name can appear as a single path
// segment.
func validSegment(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.Contains(name, "/") && !strings.ContainsRune(name, 0)
}
