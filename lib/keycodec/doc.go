// Copyright 2026 The CouchFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package keycodec maps CouchDB index keys to single path segments and
// back.
//
// A key is carried as its canonical JSON text ([Key]): compact, with
// object members in their original order. Keeping the raw text instead
// of decoding into Go maps is what lets objects round-trip exactly; a
// map[string]any would reorder members and the re-encoded key would no
// longer match the row in the store.
//
// Two segment forms exist and the caller picks one by context:
//
//   - View keys: the canonical JSON, percent-escaped with
//     [url.PathEscape]. "2024" is the number 2024, "%22a%22" is the
//     string "a", "%5B1%2C2%5D" is the array [1,2].
//   - Document IDs (the _all_docs index): the raw ID text, no JSON.
//
// View keys whose canonical JSON contains the path separator are
// outside the representable domain. [Encode] rejects them with
// [ErrUnrepresentable] and [Decode] refuses to produce them.
package keycodec
