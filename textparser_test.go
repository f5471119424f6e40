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
	"strings"
	"testing"
)

const sampleText = `# sample pci.ids fixture
8086  Intel Corporation
	1237  440FX - 82441FX PMC
10de  NVIDIA Corporation
	1ba1  GP104 [GeForce GTX 1070 Max-Q]
		1458 1651  GeForce GTX 1070 Max-Q

C 03  Display controller
	00  VGA compatible controller
		00  VGA controller
	80  Display controller
`

func TestParseTextVendorsAndDevices(t *testing.T) {
	db, err := parseText(strings.NewReader(sampleText), "fixture")
	if err != nil {
		t.Fatalf("parseText: %v", err)
	}
	if len(db.vendors) != 2 {
		t.Fatalf("got %d vendors, want 2", len(db.vendors))
	}
	intel := db.vendors[0]
	if intel.id != 0x8086 || intel.name != "Intel Corporation" {
		t.Errorf("vendor[0] = %+v", intel)
	}
	if len(intel.devices) != 1 || intel.devices[0].id != 0x1237 || intel.devices[0].name != "440FX - 82441FX PMC" {
		t.Errorf("intel devices = %+v", intel.devices)
	}

	nvidia := db.vendors[1]
	if nvidia.id != 0x10de {
		t.Fatalf("vendor[1].id = %#x, want 0x10de", nvidia.id)
	}
	dev := nvidia.devices[0]
	if dev.id != 0x1ba1 {
		t.Fatalf("device id = %#x, want 0x1ba1", dev.id)
	}
	if len(dev.subsystems) != 1 {
		t.Fatalf("got %d subsystems, want 1", len(dev.subsystems))
	}
	sub := dev.subsystems[0]
	if sub.sv != 0x1458 || sub.sd != 0x1651 || sub.name != "GeForce GTX 1070 Max-Q" {
		t.Errorf("subsystem = %+v", sub)
	}
}

func TestParseTextClasses(t *testing.T) {
	db, err := parseText(strings.NewReader(sampleText), "fixture")
	if err != nil {
		t.Fatalf("parseText: %v", err)
	}
	if len(db.classes) != 1 {
		t.Fatalf("got %d classes, want 1", len(db.classes))
	}
	cls := db.classes[0]
	if cls.base != 0x03 || cls.name != "Display controller" {
		t.Errorf("class = %+v", cls)
	}
	if len(cls.subclasses) != 2 {
		t.Fatalf("got %d subclasses, want 2", len(cls.subclasses))
	}
	vga := cls.subclasses[0]
	if vga.sub != 0x00 || vga.name != "VGA compatible controller" {
		t.Errorf("subclass[0] = %+v", vga)
	}
	if len(vga.progIfs) != 1 || vga.progIfs[0].pi != 0x00 || vga.progIfs[0].name != "VGA controller" {
		t.Errorf("progIfs = %+v", vga.progIfs)
	}
}

func TestParseTextSkipsMalformedLines(t *testing.T) {
	text := `8086  Intel Corporation
ZZZZ  Bad Vendor Id
	1237  440FX - 82441FX PMC
`
	db, err := parseText(strings.NewReader(text), "fixture")
	if err != nil {
		t.Fatalf("parseText: %v", err)
	}
	if len(db.vendors) != 1 {
		t.Fatalf("got %d vendors, want 1 (malformed vendor line should be skipped)", len(db.vendors))
	}
}

func TestParseTextBlankAndCommentLinesIgnored(t *testing.T) {
	text := "# a comment\n\n8086  Intel Corporation\n\t# nested comment\n\t1237  Some Device\n"
	db, err := parseText(strings.NewReader(text), "fixture")
	if err != nil {
		t.Fatalf("parseText: %v", err)
	}
	if len(db.vendors) != 1 || len(db.vendors[0].devices) != 1 {
		t.Fatalf("got %+v", db.vendors)
	}
}

func TestParseTextPreservesInternalWhitespace(t *testing.T) {
	text := "8086  Intel   Corporation  Extra Spaces\n"
	db, err := parseText(strings.NewReader(text), "fixture")
	if err != nil {
		t.Fatalf("parseText: %v", err)
	}
	want := "Intel   Corporation  Extra Spaces"
	if got := db.vendors[0].name; got != want {
		t.Errorf("name = %q, want %q", got, want)
	}
}
