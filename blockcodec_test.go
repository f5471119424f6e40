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
	"reflect"
	"testing"
)

func TestBlockCodecRoundTripUncompressed(t *testing.T) {
	in := []string{"Intel Corporation", "Intel Corp Mobile", "Intel Corp Desktop"}
	payload, err := encodeBlock(in, false)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	out, err := decodeBlock(payload)
	if err != nil {
		t.Fatalf("decodeBlock: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: got %v, want %v", out, in)
	}
}

func TestBlockCodecRoundTripCompressed(t *testing.T) {
	in := []string{
		"NVIDIA Corporation",
		"NVIDIA Corp GPU",
		"NVIDIA Corp GPU rev2",
		"NVIDIA Corp Mobile GPU",
	}
	payload, err := encodeBlock(in, true)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	out, err := decodeBlock(payload)
	if err != nil {
		t.Fatalf("decodeBlock: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: got %v, want %v", out, in)
	}
}

func TestBlockCodecCompressionInvariance(t *testing.T) {
	in := []string{"Advanced Micro Devices, Inc.", "Advanced Micro Devices [AMD]", "Advanced Micro Devices [AMD/ATI]"}
	raw, err := encodeBlock(in, false)
	if err != nil {
		t.Fatalf("encodeBlock(raw): %v", err)
	}
	compressed, err := encodeBlock(in, true)
	if err != nil {
		t.Fatalf("encodeBlock(compressed): %v", err)
	}
	outRaw, err := decodeBlock(raw)
	if err != nil {
		t.Fatalf("decodeBlock(raw): %v", err)
	}
	outCompressed, err := decodeBlock(compressed)
	if err != nil {
		t.Fatalf("decodeBlock(compressed): %v", err)
	}
	if !reflect.DeepEqual(outRaw, outCompressed) {
		t.Fatalf("compression invariance violated: raw=%v compressed=%v", outRaw, outCompressed)
	}
}

func TestBlockCodecDecodeAt(t *testing.T) {
	in := []string{"aaa", "aab", "aac", "abc"}
	payload, err := encodeBlock(in, false)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	for i, want := range in {
		got, err := decodeBlockAt(payload, i)
		if err != nil {
			t.Fatalf("decodeBlockAt(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("decodeBlockAt(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestBlockCodecIdempotence(t *testing.T) {
	in := []string{"x", "xy", "xyz"}
	payload, err := encodeBlock(in, true)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	first, err := decodeBlock(payload)
	if err != nil {
		t.Fatalf("decodeBlock (1st): %v", err)
	}
	second, err := decodeBlock(payload)
	if err != nil {
		t.Fatalf("decodeBlock (2nd): %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("decode not idempotent: %v vs %v", first, second)
	}
}

func TestBlockCodecEmptyBlockRejected(t *testing.T) {
	if _, err := encodeBlock(nil, false); err == nil {
		t.Error("encodeBlock(nil): expected error, got nil")
	}
}

func TestBlockCodecOversizeBlockRejected(t *testing.T) {
	strs := make([]string, defaultBlockStride+1)
	for i := range strs {
		strs[i] = "x"
	}
	if _, err := encodeBlock(strs, false); err == nil {
		t.Error("encodeBlock(oversize): expected error, got nil")
	}
}

func TestBlockCodecCorruptTruncated(t *testing.T) {
	in := []string{"hello", "help", "helper"}
	payload, err := encodeBlock(in, false)
	if err != nil {
		t.Fatalf("encodeBlock: %v", err)
	}
	corrupt := payload[:len(payload)-2]
	if _, err := decodeBlock(corrupt); err == nil {
		t.Error("decodeBlock(truncated): expected error, got nil")
	}
}

func TestCommonPrefixLen(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abd", 2},
		{"abc", "abc", 3},
		{"abc", "xyz", 0},
		{"ab", "abcdef", 2},
	}
	for _, tc := range tests {
		if got := commonPrefixLen(tc.a, tc.b); got != tc.want {
			t.Errorf("commonPrefixLen(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
