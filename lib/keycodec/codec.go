// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package keycodec

import (
	"fmt"
	"net/url"
	"strings"
)

// Encode renders a view key as a path segment.
func Encode(key Key) (string, error) {
	canonical, err := Parse(key)
	if err != nil {
		return "", err
	}
	if strings.Contains(string(canonical), Separator) {
		return "", fmt.Errorf("%w: %s contains %q", ErrUnrepresentable, canonical, Separator)
	}
	return url.PathEscape(string(canonical)), nil
}

// Decode parses a path segment produced by Encode (or typed by hand)
// back into a canonical view key.
func Decode(segment string) (Key, error) {
	text, err := url.PathUnescape(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	key, err := Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	if strings.Contains(string(key), Separator) {
		return nil, fmt.Errorf("%w: %s contains %q", ErrUnrepresentable, key, Separator)
	}
	return key, nil
}

// EncodeSegment renders a key for an index. Document-ID indexes use
// the raw ID; a non-string key there is malformed.
func EncodeSegment(key Key, documentIDs bool) (string, error) {
	if !documentIDs {
		return Encode(key)
	}
	id, ok := key.AsString()
	if !ok {
		return "", fmt.Errorf("%w: document ID %s is not a string", ErrMalformed, key)
	}
	return id, nil
}

// DecodeSegment is the inverse of EncodeSegment. The caller supplies
// the index context because the two forms overlap: "2024" is a number
// in a view and a document ID in _all_docs.
func DecodeSegment(segment string, documentIDs bool) (Key, error) {
	if documentIDs {
		return String(segment), nil
	}
	return Decode(segment)
}
