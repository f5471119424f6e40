// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pciids

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
)

// entryKind tags a single record inside a string block. Stored as a u16
// on disk.
type entryKind uint16

const (
	entryFull  entryKind = 1
	entryDelta entryKind = 2
)

// commonPrefixLen returns the length of the longest common byte prefix of
// a and b, capped at 65535 since the on-disk prefix length field is a
// u16.
func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n > 0xffff {
		n = 0xffff
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// encodeBlock front-codes a slice of at most defaultBlockStride
// lexicographically-adjacent strings into a single block payload. The
// first string (the block's base) is stored in full; every subsequent
// string is stored as (shared-prefix-length-with-base, suffix).
//
// If compress is true, the encoded payload is run through a standard
// zlib writer; callers that want to skip compression (for small blocks
// where it doesn't pay off, or for a -no-compress build) pass false.
func encodeBlock(strs []string, compress bool) ([]byte, error) {
	if len(strs) == 0 {
		return nil, fmt.Errorf("pciids: encodeBlock: empty block")
	}
	if len(strs) > defaultBlockStride {
		return nil, fmt.Errorf("pciids: encodeBlock: %d entries exceeds stride %d", len(strs), defaultBlockStride)
	}

	var raw bytes.Buffer
	binary.Write(&raw, binary.LittleEndian, uint16(defaultBlockStride))

	base := strs[0]
	binary.Write(&raw, binary.LittleEndian, uint16(entryFull))
	binary.Write(&raw, binary.LittleEndian, uint32(len(base)))
	raw.WriteString(base)

	for _, s := range strs[1:] {
		prefix := commonPrefixLen(base, s)
		suffix := s[prefix:]
		binary.Write(&raw, binary.LittleEndian, uint16(entryDelta))
		binary.Write(&raw, binary.LittleEndian, uint16(prefix))
		binary.Write(&raw, binary.LittleEndian, uint32(len(suffix)))
		raw.WriteString(suffix)
	}

	if !compress {
		return raw.Bytes(), nil
	}

	var out bytes.Buffer
	w := zlib.NewWriter(&out)
	if _, err := w.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("pciids: encodeBlock: deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("pciids: encodeBlock: deflate close: %w", err)
	}
	return out.Bytes(), nil
}

// decodeBlock reverses encodeBlock, returning every string in the block
// in order. It first tries to inflate the payload as a zlib stream;
// a well-formed zlib error (bad checksum, bad header) is treated as
// "this block was written uncompressed" and the raw bytes are decoded
// directly, matching the discovery-by-attempt policy used elsewhere in
// this package.
func decodeBlock(payload []byte) ([]string, error) {
	return decodeBlockUpTo(payload, defaultBlockStride)
}

// decodeBlockEntries decodes up to limit entries (or fewer, if the block
// itself holds fewer) from raw, returning every decoded
// entry. Used directly by decodeBlockUpTo to avoid re-running the
// inflate probe per partial decode.
func decodeBlockEntries(raw []byte, limit int) ([]string, error) {
	r := bytes.NewReader(raw)
	var stride uint16
	if err := binary.Read(r, binary.LittleEndian, &stride); err != nil {
		return nil, newErr(KindInvalidFormat, "string block: truncated stride header", err)
	}

	var out []string
	var base string
	for i := 0; r.Len() > 0 && i < limit; i++ {
		var kindWord uint16
		if err := binary.Read(r, binary.LittleEndian, &kindWord); err != nil {
			return nil, newErr(KindInvalidFormat, "string block: truncated entry kind", err)
		}
		switch entryKind(kindWord) {
		case entryFull:
			var n uint32
			if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
				return nil, newErr(KindInvalidFormat, "string block: truncated full length", err)
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, newErr(KindInvalidFormat, "string block: full entry past payload end", err)
			}
			base = string(buf)
			out = append(out, base)
		case entryDelta:
			var prefix uint16
			var suflen uint32
			if err := binary.Read(r, binary.LittleEndian, &prefix); err != nil {
				return nil, newErr(KindInvalidFormat, "string block: truncated prefix length", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &suflen); err != nil {
				return nil, newErr(KindInvalidFormat, "string block: truncated suffix length", err)
			}
			if int(prefix) > len(base) {
				return nil, newErr(KindInvalidFormat, "string block: prefix length exceeds base", nil)
			}
			suf := make([]byte, suflen)
			if _, err := io.ReadFull(r, suf); err != nil {
				return nil, newErr(KindInvalidFormat, "string block: delta entry past payload end", err)
			}
			out = append(out, base[:prefix]+string(suf))
		default:
			return nil, newErr(KindInvalidFormat, fmt.Sprintf("string block: unknown entry kind %d", kindWord), nil)
		}
	}
	return out, nil
}

// decodeBlockAt decodes a block and returns only the string at
// idxInBlock, without materializing strings past it, so it avoids the
// O(stride) full decode when all a caller needs is a single entry. The
// binary reader does not use it: it decodes whole blocks with decodeBlock
// and caches them.
func decodeBlockAt(payload []byte, idxInBlock int) (string, error) {
	strs, err := decodeBlockUpTo(payload, idxInBlock+1)
	if err != nil {
		return "", err
	}
	if idxInBlock >= len(strs) {
		return "", newErr(KindInvalidFormat, fmt.Sprintf("string block: index %d beyond %d entries", idxInBlock, len(strs)), nil)
	}
	return strs[idxInBlock], nil
}

// decodeBlockUpTo decodes only the first n entries of a block (the base
// plus n-1 deltas), inflating first if the payload looks like zlib.
func decodeBlockUpTo(payload []byte, n int) ([]string, error) {
	raw := payload
	if zr, err := zlib.NewReader(bytes.NewReader(payload)); err == nil {
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err == nil {
			raw = inflated
		}
	}
	return decodeBlockEntries(raw, n)
}
