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
	"os"

	"github.com/golang/glog"

	"github.com/stnoonan/pciids/data"
)

const (
	envBin       = "PCIID_BIN"
	envText      = "PCIID_TEXT"
	envNoSystem  = "PCIID_NO_SYSTEM"
	envNoBundled = "PCIID_NO_BUNDLED"

	systemBinPath  = "/usr/share/hwdata/pci.ids.bin"
	systemTextPath = "/usr/share/hwdata/pci.ids"
)

// candidate is one entry in the ordered discovery list: a human-readable
// label for logging, plus a thunk that opens it or fails.
type candidate struct {
	kind string
	ref  string
	open func() (PciDB, error)
}

// looksBinary reports whether the file at path starts with the binary
// magic. Unreadable files report false so the caller's own open attempt
// produces the real error.
func looksBinary(path string) bool {
	magic, err := readMagic(path)
	if err != nil {
		return false
	}
	return bytes.Equal(magic[:], []byte{0x50, 0x43, 0x49, 0x42}) // "PCIB"
}

// openAuto opens path as a binary database if its magic matches, else as
// text.
func openAuto(path string) (PciDB, error) {
	if looksBinary(path) {
		return OpenBinaryFile(path)
	}
	return OpenTextFile(path)
}

func openBundledText() (PciDB, error) {
	return newTextReader(bytes.NewReader(data.BundledText()), "<bundled pci.ids>")
}

// resolveCandidates builds the ordered candidate list described by
// Open's environment and explicit-path contract. It is a pure function
// of its inputs so discovery order can be unit tested without touching
// the environment.
func resolveCandidates(explicitPath, envBinPath, envTextPath string, allowSystem, allowBundled bool) []candidate {
	if explicitPath != "" {
		p := explicitPath
		return []candidate{{
			kind: "explicit-path",
			ref:  p,
			open: func() (PciDB, error) { return openAuto(p) },
		}}
	}

	var cands []candidate

	if envBinPath != "" {
		p := envBinPath
		cands = append(cands, candidate{
			kind: "env-bin",
			ref:  p,
			open: func() (PciDB, error) {
				if !looksBinary(p) {
					return nil, newErr(KindInvalidFormat, envBin+" is not a valid binary database: "+p, nil)
				}
				return OpenBinaryFile(p)
			},
		})
	}

	// PCIID_TEXT is only consulted when PCIID_BIN is unset: once a caller
	// has pinned the binary candidate, a failure there does not fall
	// through to the text one, it falls through to the system/bundled
	// tiers instead.
	if envBinPath == "" && envTextPath != "" {
		p := envTextPath
		cands = append(cands, candidate{
			kind: "env-text",
			ref:  p,
			open: func() (PciDB, error) {
				if !exists(p) {
					return nil, newErr(KindIO, envText+" not found: "+p, nil)
				}
				return OpenTextFile(p)
			},
		})
	}

	if allowSystem {
		cands = append(cands, candidate{
			kind: "system-bin",
			ref:  systemBinPath,
			open: func() (PciDB, error) {
				if !exists(systemBinPath) || !looksBinary(systemBinPath) {
					return nil, newErr(KindNotFound, "no system binary database at "+systemBinPath, nil)
				}
				return OpenBinaryFile(systemBinPath)
			},
		})
	}

	if allowBundled && data.BundledBinAvailable() {
		cands = append(cands, candidate{
			kind: "bundled-bin",
			ref:  "<bundled pci.ids.bin>",
			open: func() (PciDB, error) {
				return nil, newErr(KindNotFound, "no bundled binary database compiled into this binary", nil)
			},
		})
	}

	if allowSystem {
		cands = append(cands, candidate{
			kind: "system-text",
			ref:  systemTextPath,
			open: func() (PciDB, error) {
				if !exists(systemTextPath) {
					return nil, newErr(KindNotFound, "no system text database at "+systemTextPath, nil)
				}
				return OpenTextFile(systemTextPath)
			},
		})
	}

	if allowBundled && data.BundledTextAvailable() {
		cands = append(cands, candidate{
			kind: "bundled-text",
			ref:  "<bundled pci.ids>",
			open: openBundledText,
		})
	}

	return cands
}

// Open picks one database source and returns it opened, trying candidates
// in this fixed order: an explicit path (if non-empty) short-circuits
// everything else; otherwise PCIID_BIN, PCIID_TEXT (only when PCIID_BIN
// is unset), the system binary, the bundled binary, the system text, and
// finally the bundled text. The system and bundled tiers can be skipped
// via PCIID_NO_SYSTEM and PCIID_NO_BUNDLED.
//
// If every candidate fails, Open returns ErrNotFound wrapping the last
// candidate's failure.
func Open(explicitPath string) (PciDB, error) {
	allowSystem := os.Getenv(envNoSystem) != "1"
	allowBundled := os.Getenv(envNoBundled) != "1"
	cands := resolveCandidates(explicitPath, os.Getenv(envBin), os.Getenv(envText), allowSystem, allowBundled)

	var lastErr error
	for _, c := range cands {
		db, err := c.open()
		if err == nil {
			glog.V(1).Infof("pciids: opened %s candidate %s", c.kind, c.ref)
			return db, nil
		}
		glog.V(1).Infof("pciids: %s candidate %s failed: %v", c.kind, c.ref, err)
		lastErr = err
	}
	return nil, newErr(KindNotFound, "no candidate database source available", lastErr)
}
