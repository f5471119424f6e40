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
	"encoding/binary"
	"strings"
	"testing"
)

func TestCompileHeaderLayout(t *testing.T) {
	out, err := Compile(strings.NewReader(sampleText), "fixture", CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(out) < headerSize {
		t.Fatalf("output shorter than header: %d bytes", len(out))
	}
	var magic uint32
	if err := binary.Read(bytes.NewReader(out[:4]), binary.LittleEndian, &magic); err != nil {
		t.Fatal(err)
	}
	if magic != magicPCIB {
		t.Errorf("magic = %#x, want %#x", magic, magicPCIB)
	}
	var version uint16
	binary.Read(bytes.NewReader(out[4:6]), binary.LittleEndian, &version)
	if version != formatVersion {
		t.Errorf("version = %d, want %d", version, formatVersion)
	}
}

func TestCompileRejectsEmptyInput(t *testing.T) {
	if _, err := Compile(strings.NewReader("# nothing but comments\n"), "fixture", CompileOptions{}); err == nil {
		t.Error("Compile(empty): expected error, got nil")
	}
}

func TestCompileCompressionInvariance(t *testing.T) {
	raw, err := Compile(strings.NewReader(sampleText), "fixture", CompileOptions{Compress: false})
	if err != nil {
		t.Fatalf("Compile(raw): %v", err)
	}
	compressed, err := Compile(strings.NewReader(sampleText), "fixture", CompileOptions{Compress: true})
	if err != nil {
		t.Fatalf("Compile(compressed): %v", err)
	}

	rawReader, err := openBinaryBytes(raw)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer rawReader.Close()
	compReader, err := openBinaryBytes(compressed)
	if err != nil {
		t.Fatalf("open compressed: %v", err)
	}
	defer compReader.Close()

	if got, want := rawReader.VendorName(0x8086), compReader.VendorName(0x8086); got != want {
		t.Errorf("VendorName mismatch: raw=%q compressed=%q", got, want)
	}
	if got, want := rawReader.DeviceName(0x10de, 0x1ba1), compReader.DeviceName(0x10de, 0x1ba1); got != want {
		t.Errorf("DeviceName mismatch: raw=%q compressed=%q", got, want)
	}
}

func TestCompileOrderings(t *testing.T) {
	text := `ffff  Zeta Corp
	0002  Zeta Device Two
	0001  Zeta Device One
0001  Alpha Corp
	0001  Alpha Device
`
	out, err := Compile(strings.NewReader(text), "fixture", CompileOptions{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	r, err := openBinaryBytes(out)
	if err != nil {
		t.Fatalf("openBinaryBytes: %v", err)
	}
	defer r.Close()

	if len(r.vendorIDs) != 2 || r.vendorIDs[0] != 0x0001 || r.vendorIDs[1] != 0xffff {
		t.Fatalf("vendorIDs not ascending: %v", r.vendorIDs)
	}
}
