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

// Package pciids looks up human-readable names for PCI vendors, devices,
// subsystems and device classes given their numeric identifiers.
//
// The package has three moving parts: a compiler that turns the canonical
// "pci.ids" text database into a compact, randomly-addressable binary file;
// a reader that memory-maps that binary file and answers point lookups
// without ever parsing the whole database; and a text reader that builds
// the same indices straight out of the text file for callers that have no
// binary artifact handy. Open picks one of several candidate sources for
// you; most callers only need that one entry point.
package pciids
