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

import "fmt"

// PciDB is the lookup capability every opened database satisfies,
// whether backed by a memory-mapped binary file or by an in-memory text
// index. Every lookup method returns the empty string for a key that is
// simply absent. Lookups return no error: corrupt data met during a lookup
// (an unreadable row or string block) is logged and also yields the empty
// string.
type PciDB interface {
	// VendorName resolves a PCI vendor id to its human-readable name.
	VendorName(ven uint16) string
	// DeviceName resolves a device id under a vendor.
	DeviceName(ven, dev uint16) string
	// SubsystemName resolves a subsystem (subvendor, subdevice) pair
	// under a device.
	SubsystemName(ven, dev, sv, sd uint16) string
	// ClassName resolves a device-class name. sub and pi are optional
	// (nil means "not specified"); when a more specific level is absent,
	// the result falls back to the nearest enclosing level that exists.
	ClassName(base uint8, sub, pi *uint8) string
	// ClassNameFromCode resolves a 24-bit PCI class code at a given
	// depth, clamped into [0,3]. It tries the most specific existing
	// level allowed by depth, in order prog-if -> subclass -> base;
	// depths 0 and 1 both resolve the base name only.
	ClassNameFromCode(code24 uint32, depth int) string
	// DescribeDeviceBestEffort always returns a non-empty string: the
	// vendor/device name pair when both resolve, otherwise a synthesized
	// "Unknown <vendor> <class> (0xdddd)" label.
	DescribeDeviceBestEffort(ven, dev uint16, code24 *uint32) string
	// Close releases any resources (memory map, file handle, bundled
	// resource scope) held by the database.
	Close() error
}

// classNameFromCode implements the ClassNameFromCode contract in terms of
// a reader's ClassName, shared by both concrete readers since the
// fallback logic does not depend on how the class table is stored.
func classNameFromCode(db PciDB, code24 uint32, depth int) string {
	depth = clampDepth(depth)
	base, sub, pi := classCode24(code24)
	if depth > 2 {
		if name := db.ClassName(base, &sub, &pi); name != "" {
			return name
		}
	}
	if depth > 1 {
		if name := db.ClassName(base, &sub, nil); name != "" {
			return name
		}
	}
	return db.ClassName(base, nil, nil)
}

// describeDeviceBestEffort implements the DescribeDeviceBestEffort
// contract in terms of a reader's other lookups.
func describeDeviceBestEffort(db PciDB, ven, dev uint16, code24 *uint32) string {
	vname := db.VendorName(ven)
	dname := db.DeviceName(ven, dev)
	if vname != "" && dname != "" {
		return fmt.Sprintf("%s %s", vname, dname)
	}

	vendorPart := vname
	if vendorPart == "" {
		vendorPart = fmt.Sprintf("0x%04x", ven)
	}
	classPart := "PCI device"
	if code24 != nil {
		if cn := classNameFromCode(db, *code24, 2); cn != "" {
			classPart = cn
		}
	}
	return fmt.Sprintf("Unknown %s %s (0x%04x)", vendorPart, classPart, dev)
}
