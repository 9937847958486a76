// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package keycodec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Separator joins the components of a compound document ID.
const Separator = "/"

var (
	// ErrMalformed is returned when a segment does not decode to a
	// JSON value.
	ErrMalformed = errors.New("malformed key")

	// ErrUnrepresentable is returned for keys that cannot be carried
	// in a single path segment.
	ErrUnrepresentable = errors.New("key not representable as a path segment")
)

// Key is the canonical JSON text of an index key.
type Key json.RawMessage

// Null is the JSON null key.
var Null = Key("null")

// Parse validates raw JSON and returns its canonical form.
func Parse(raw []byte) (Key, error) {
	var buffer bytes.Buffer
	if err := json.Compact(&buffer, bytes.TrimSpace(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	return Key(buffer.Bytes()), nil
}

// String returns the key for a JSON string value.
func String(s string) Key {
	key, _ := Of(s)
	return key
}

// Of marshals an arbitrary Go value into a key. HTML escaping is off so
// that the text matches what CouchDB itself emits for the same value.
func Of(value any) (Key, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Key(bytes.TrimRight(buffer.Bytes(), "\n")), nil
}

// Raw returns the key as a json.RawMessage for handing to the store.
func (k Key) Raw() json.RawMessage { return json.RawMessage(k) }

// Equal reports whether two keys have identical canonical text.
func (k Key) Equal(other Key) bool { return bytes.Equal(k, other) }

// IsArray reports whether the key is a JSON array.
func (k Key) IsArray() bool { return len(k) > 0 && k[0] == '[' }

// AsString returns the Go string if the key is a JSON string.
func (k Key) AsString() (string, bool) {
	if len(k) == 0 || k[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(k, &s); err != nil {
		return "", false
	}
	return s, true
}

// Elements splits an array key into its element keys. A non-array key
// is returned as a one-element slice so that scalars can act as the
// first component of a compound key.
func (k Key) Elements() ([]Key, error) {
	if !k.IsArray() {
		return []Key{k}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(k, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	elements := make([]Key, len(raw))
	for i, element := range raw {
		canonical, err := Parse(element)
		if err != nil {
			return nil, err
		}
		elements[i] = canonical
	}
	return elements, nil
}

// Array builds an array key from element keys.
func Array(elements ...Key) Key {
	var buffer bytes.Buffer
	buffer.WriteByte('[')
	for i, element := range elements {
		if i > 0 {
			buffer.WriteByte(',')
		}
		buffer.Write(element)
	}
	buffer.WriteByte(']')
	return Key(buffer.Bytes())
}

// Append returns the array formed by the elements of prefix followed
// by extra.
func Append(prefix Key, extra ...Key) (Key, error) {
	elements, err := prefix.Elements()
	if err != nil {
		return nil, err
	}
	combined := make([]Key, 0, len(elements)+len(extra))
	combined = append(combined, elements...)
	combined = append(combined, extra...)
	return Array(combined...), nil
}

func (k Key) String() string { return string(k) }
