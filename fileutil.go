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

import "os"

// exists reports whether filename can be stat'd. Discovery uses this to
// probe the PCIID_TEXT and system candidate paths before attempting to
// open them.
func exists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// openFileForRead opens path for reading, used by the text reader.
func openFileForRead(path string) (*os.File, error) {
	return os.Open(path)
}

// readMagic reads the first 4 bytes of path without holding the file
// open past the probe, used by discovery to decide whether a candidate
// looks like a binary or text database.
func readMagic(path string) ([4]byte, error) {
	var buf [4]byte
	f, err := os.Open(path)
	if err != nil {
		return buf, err
	}
	defer f.Close()
	_, err = f.Read(buf[:])
	return buf, err
}
