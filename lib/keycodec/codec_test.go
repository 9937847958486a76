// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package keycodec

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	keys := []string{
		`null`,
		`true`,
		`false`,
		`0`,
		`-12.5`,
		`2024`,
		`"plain"`,
		`""`,
		`"with space and %"`,
		`"unicode ☃"`,
		`[]`,
		`[2024,3,1]`,
		`["a",["nested",{"z":1,"a":2}],null]`,
		`{"b":1,"a":[true,false]}`,
		`{}`,
	}
	for _, text := range keys {
		t.Run(text, func(t *testing.T) {
			key, err := Parse([]byte(text))
			if err != nil {
				t.Fatalf("Parse(%s): %v", text, err)
			}
			segment, err := Encode(key)
			if err != nil {
				t.Fatalf("Encode(%s): %v", text, err)
			}
			decoded, err := Decode(segment)
			if err != nil {
				t.Fatalf("Decode(%q): %v", segment, err)
			}
			if !decoded.Equal(key) {
				t.Errorf("round trip: got %s, want %s", decoded, key)
			}
		})
	}
}

func TestEncodeInjective(t *testing.T) {
	keys := []string{`1`, `"1"`, `[1]`, `{"1":1}`, `"%31"`, `"1 "`, `" 1"`}
	seen := make(map[string]string)
	for _, text := range keys {
		segment, err := Encode(Key(text))
		if err != nil {
			t.Fatalf("Encode(%s): %v", text, err)
		}
		if previous, exists := seen[segment]; exists {
			t.Errorf("keys %s and %s both encode to %q", previous, text, segment)
		}
		seen[segment] = text
	}
}

func TestEncodeProducesSingleSegment(t *testing.T) {
	segment, err := Encode(Key(`["a b","c?d"]`))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, r := range segment {
		if r == '/' || r == 0 {
			t.Fatalf("segment %q contains a separator", segment)
		}
	}
}

func TestEncodeRejectsSeparator(t *testing.T) {
	for _, text := range []string{`"2024/03"`, `["a","b/c"]`, `{"x/y":1}`} {
		if _, err := Encode(Key(text)); !errors.Is(err, ErrUnrepresentable) {
			t.Errorf("Encode(%s) error = %v, want ErrUnrepresentable", text, err)
		}
	}
	if _, err := Decode("%222024%2F03%22"); !errors.Is(err, ErrUnrepresentable) {
		t.Errorf("Decode of separator key: error = %v, want ErrUnrepresentable", err)
	}
}

func TestDecodeCanonicalizes(t *testing.T) {
	key, err := Decode("%5B1%2C%20%202%5D")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(key) != `[1,2]` {
		t.Errorf("got %s, want [1,2]", key)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, segment := range []string{"abc", "%zz", "", "[1,", "{\"a\"}"} {
		if _, err := Decode(segment); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q) error = %v, want ErrMalformed", segment, err)
		}
	}
}

func TestDocumentIDSegments(t *testing.T) {
	key, err := DecodeSegment("2024", true)
	if err != nil {
		t.Fatalf("DecodeSegment: %v", err)
	}
	if string(key) != `"2024"` {
		t.Errorf("document ID key = %s, want \"2024\"", key)
	}
	segment, err := EncodeSegment(key, true)
	if err != nil {
		t.Fatalf("EncodeSegment: %v", err)
	}
	if segment != "2024" {
		t.Errorf("segment = %q, want 2024", segment)
	}

	viewKey, err := DecodeSegment("2024", false)
	if err != nil {
		t.Fatalf("DecodeSegment view: %v", err)
	}
	if string(viewKey) != `2024` {
		t.Errorf("view key = %s, want 2024", viewKey)
	}

	if _, err := EncodeSegment(Key(`7`), true); !errors.Is(err, ErrMalformed) {
		t.Errorf("EncodeSegment(number, documentIDs) error = %v, want ErrMalformed", err)
	}
}

func TestAppendAndElements(t *testing.T) {
	prefix := Key(`2024`)
	extended, err := Append(prefix, Key(`3`))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if string(extended) != `[2024,3]` {
		t.Fatalf("Append scalar = %s, want [2024,3]", extended)
	}
	extended, err = Append(extended, Key(`{"b":1,"a":2}`))
	if err != nil {
		t.Fatalf("Append array: %v", err)
	}
	if string(extended) != `[2024,3,{"b":1,"a":2}]` {
		t.Fatalf("Append array = %s", extended)
	}
	elements, err := extended.Elements()
	if err != nil {
		t.Fatalf("Elements: %v", err)
	}
	if len(elements) != 3 || string(elements[2]) != `{"b":1,"a":2}` {
		t.Errorf("Elements = %v", elements)
	}
}
