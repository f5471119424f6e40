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

// Package data holds the small text database bundled into this module
// itself, so a program linking against pciids always has a last-resort
// source even on a system with no hwdata package installed and no
// PCIID_BIN/PCIID_TEXT set.
package data

import _ "embed"

//go:embed pci.ids
var bundledText []byte

// BundledText returns the embedded sample pci.ids text. The returned
// slice must not be modified; it aliases the compiled-in data.
func BundledText() []byte {
	return bundledText
}

// BundledTextAvailable reports whether a bundled text database was
// compiled into this binary. It always returns true for this module,
// but discovery checks it anyway rather than assuming.
func BundledTextAvailable() bool {
	return len(bundledText) > 0
}

// BundledBinAvailable reports whether a precompiled bundled binary
// database is available. This module does not ship one: building the
// binary form requires running the compiler at build time, which this
// module's build process does not do, so the bundled-binary discovery
// candidate is always skipped in favor of bundled-text.
func BundledBinAvailable() bool {
	return false
}
