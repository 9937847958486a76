// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

package couchstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Collate compares two raw JSON keys using CouchDB view collation:
// null < false < true < numbers < strings < arrays < objects. Arrays
// compare element-wise and objects member-wise in their stored order.
// Strings compare by code point; CouchDB uses ICU collation, which
// differs for mixed case and punctuation, so Memory is only an
// approximation of a real server there.
//
// Malformed input sorts before everything else.
func Collate(a, b json.RawMessage) int {
	left, leftErr := decodeOrdered(a)
	right, rightErr := decodeOrdered(b)
	switch {
	case leftErr != nil && rightErr != nil:
		return 0
	case leftErr != nil:
		return -1
	case rightErr != nil:
		return 1
	}
	return compareValues(left, right)
}

// RawCollate orders _all_docs keys, which CouchDB compares by raw code
// point rather than ICU.
func RawCollate(a, b json.RawMessage) int {
	var left, right string
	leftErr := json.Unmarshal(a, &left)
	rightErr := json.Unmarshal(b, &right)
	if leftErr != nil || rightErr != nil {
		return Collate(a, b)
	}
	return strings.Compare(left, right)
}

type member struct {
	name  string
	value any
}

// object keeps members in document order.
type object []member

func decodeOrdered(raw json.RawMessage) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	value, err := decodeValue(decoder)
	if err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return value, nil
}

func decodeValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch delimiter := token.(type) {
	case json.Delim:
		switch delimiter {
		case '[':
			var elements []any
			for decoder.More() {
				element, err := decodeValue(decoder)
				if err != nil {
					return nil, err
				}
				elements = append(elements, element)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			if elements == nil {
				elements = []any{}
			}
			return elements, nil
		case '{':
			members := object{}
			for decoder.More() {
				nameToken, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				name, ok := nameToken.(string)
				if !ok {
					return nil, fmt.Errorf("object member name is %T", nameToken)
				}
				value, err := decodeValue(decoder)
				if err != nil {
					return nil, err
				}
				members = append(members, member{name: name, value: value})
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return members, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", delimiter)
		}
	default:
		return token, nil
	}
}

// rank orders the JSON types.
func rank(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case bool:
		if v {
			return 2
		}
		return 1
	case json.Number:
		return 3
	case string:
		return 4
	case []any:
		return 5
	case object:
		return 6
	}
	return 7
}

func compareValues(a, b any) int {
	rankA, rankB := rank(a), rank(b)
	if rankA != rankB {
		return compareInts(rankA, rankB)
	}
	switch left := a.(type) {
	case json.Number:
		x, _ := left.Float64()
		y, _ := b.(json.Number).Float64()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		return strings.Compare(left, b.(string))
	case []any:
		right := b.([]any)
		for i := 0; i < len(left) && i < len(right); i++ {
			if c := compareValues(left[i], right[i]); c != 0 {
				return c
			}
		}
		return compareInts(len(left), len(right))
	case object:
		right := b.(object)
		for i := 0; i < len(left) && i < len(right); i++ {
			if c := strings.Compare(left[i].name, right[i].name); c != 0 {
				return c
			}
			if c := compareValues(left[i].value, right[i].value); c != 0 {
				return c
			}
		}
		return compareInts(len(left), len(right))
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
