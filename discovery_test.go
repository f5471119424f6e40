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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempText(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeTempBin(t *testing.T, dir, name string) string {
	t.Helper()
	out, err := Compile(strings.NewReader(sampleText), "fixture", CompileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, out, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolveCandidatesEnvBinWinsOverEnvText(t *testing.T) {
	dir := t.TempDir()
	binPath := writeTempBin(t, dir, "pci.ids.bin")
	textPath := writeTempText(t, dir, "pci.ids", sampleText)

	cands := resolveCandidates("", binPath, textPath, false, false)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1 (env-bin should preempt env-text)", len(cands))
	}
	if cands[0].kind != "env-bin" {
		t.Fatalf("first candidate kind = %q, want env-bin", cands[0].kind)
	}
}

func TestResolveCandidatesEnvBinBadMagicDoesNotFallToEnvText(t *testing.T) {
	dir := t.TempDir()
	// env-bin points at a text file: bad magic.
	badBin := writeTempText(t, dir, "pci.ids.bin", sampleText)
	textPath := writeTempText(t, dir, "pci.ids", sampleText)

	cands := resolveCandidates("", badBin, textPath, false, false)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1 (env-text must not be consulted when env-bin is set)", len(cands))
	}
	if _, err := cands[0].open(); err == nil {
		t.Fatal("expected env-bin candidate to fail on bad magic")
	}
}

func TestResolveCandidatesExplicitPathNoFallback(t *testing.T) {
	cands := resolveCandidates("/does/not/exist", "irrelevant", "irrelevant", true, true)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1 for explicit path", len(cands))
	}
}

func TestOpenNotFoundWhenEverythingSuppressed(t *testing.T) {
	t.Setenv("PCIID_BIN", "")
	t.Setenv("PCIID_TEXT", "")
	t.Setenv("PCIID_NO_SYSTEM", "1")
	t.Setenv("PCIID_NO_BUNDLED", "1")

	_, err := Open("")
	if err == nil {
		t.Fatal("Open: expected error, got nil")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Open: err = %v, want kind NotFound", err)
	}
}

func TestOpenEnvText(t *testing.T) {
	dir := t.TempDir()
	textPath := writeTempText(t, dir, "pci.ids", sampleText)

	t.Setenv("PCIID_BIN", "")
	t.Setenv("PCIID_TEXT", textPath)
	t.Setenv("PCIID_NO_SYSTEM", "1")
	t.Setenv("PCIID_NO_BUNDLED", "1")

	db, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if _, ok := db.(*TextReader); !ok {
		t.Fatalf("got %T, want *TextReader", db)
	}
	if got := db.VendorName(0x8086); got != "Intel Corporation" {
		t.Errorf("VendorName = %q", got)
	}
}

func TestOpenFallsBackToBundledText(t *testing.T) {
	t.Setenv("PCIID_BIN", "")
	t.Setenv("PCIID_TEXT", "")
	t.Setenv("PCIID_NO_SYSTEM", "1")
	t.Setenv("PCIID_NO_BUNDLED", "")

	db, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if got := db.VendorName(0x8086); got == "" {
		t.Error("expected bundled database to resolve vendor 0x8086")
	}
}

func TestMagicRejection(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.bin")
	buf := make([]byte, headerSize)
	buf[0], buf[1], buf[2], buf[3] = 0xef, 0xbe, 0xad, 0xde // 0xDEADBEEF LE
	if err := os.WriteFile(p, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenBinaryFile(p)
	if err == nil {
		t.Fatal("OpenBinaryFile: expected error on bad magic")
	}
	var dberr *DBError
	if !errors.As(err, &dberr) || dberr.Kind != KindInvalidFormat {
		t.Errorf("err = %v, want KindInvalidFormat", err)
	}
}
