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
	"io"
	"sort"

	"github.com/golang/glog"
)

// TextReader builds the same compact, range-addressed index arrays as
// BinaryReader directly in memory from a parsed pci.ids text file. Names
// live in an ordinary Go slice rather than a block-coded string pool, but
// every lookup returns results identical to the equivalent compiled
// BinaryReader (see the parity test).
type TextReader struct {
	strings []string // index is the same string-pool id the compiler would assign

	vendorIDs []uint16
	vendors   []vendorRow

	devices []deviceRow // flat, grouped by vendor's [devStart,devStart+devCount)

	subsystems []subsysRow // flat, grouped by device's [subStart,subStart+subCount)

	classBase    [numClassSlots]uint32
	subclassKeys []uint16
	subclasses   []subclassRow

	progIfs []progIfRow

	closed  bool
	onClose func()
}

var _ PciDB = (*TextReader)(nil)

// OpenTextFile parses path as a pci.ids text database and builds a
// TextReader over it.
func OpenTextFile(path string) (*TextReader, error) {
	f, err := openFileForRead(path)
	if err != nil {
		return nil, newErr(KindIO, "opening "+path, err)
	}
	defer f.Close()
	return newTextReader(f, path)
}

func newTextReader(r io.Reader, name string) (*TextReader, error) {
	parsed, err := parseText(r, name)
	if err != nil {
		return nil, err
	}
	if len(parsed.vendors) == 0 && len(parsed.classes) == 0 {
		return nil, newErr(KindParse, "text database has no vendors or classes after parsing", nil)
	}

	pool := newStringInterner()
	// Reserve id 0 for the empty string exactly as Compile does, so that a
	// 0 in classBase only ever means "no class at this base".
	pool.add("")
	for _, v := range parsed.vendors {
		pool.add(v.name)
		for _, d := range v.devices {
			pool.add(d.name)
			for _, s := range d.subsystems {
				pool.add(s.name)
			}
		}
	}
	for _, c := range parsed.classes {
		pool.add(c.name)
		for _, sc := range c.subclasses {
			pool.add(sc.name)
			for _, pi := range sc.progIfs {
				pool.add(pi.name)
			}
		}
	}
	pool.finalize(orderLexicographic)

	tr := &TextReader{}
	tr.strings = make([]string, pool.len())
	for i := range tr.strings {
		tr.strings[i] = pool.get(i)
	}

	vendors := append([]parsedVendor(nil), parsed.vendors...)
	sort.Slice(vendors, func(i, j int) bool { return vendors[i].id < vendors[j].id })

	for _, v := range vendors {
		devs := append([]parsedDevice(nil), v.devices...)
		sort.Slice(devs, func(i, j int) bool { return devs[i].id < devs[j].id })
		devStart := len(tr.devices)
		for _, d := range devs {
			subs := append([]parsedSubsystem(nil), d.subsystems...)
			sort.Slice(subs, func(i, j int) bool { return subsysKey(subs[i]) < subsysKey(subs[j]) })
			subStart := len(tr.subsystems)
			for _, s := range subs {
				nameID, _ := pool.idOf(s.name)
				tr.subsystems = append(tr.subsystems, subsysRow{subVendor: s.sv, subDevice: s.sd, nameID: uint32(nameID)})
			}
			devNameID, _ := pool.idOf(d.name)
			tr.devices = append(tr.devices, deviceRow{
				id:       d.id,
				nameID:   uint32(devNameID),
				subStart: uint32(subStart),
				subCount: uint32(len(tr.subsystems) - subStart),
			})
		}
		venNameID, _ := pool.idOf(v.name)
		tr.vendors = append(tr.vendors, vendorRow{
			id:       v.id,
			nameID:   uint32(venNameID),
			devStart: uint32(devStart),
			devCount: uint32(len(tr.devices) - devStart),
		})
		tr.vendorIDs = append(tr.vendorIDs, v.id)
	}

	classes := append([]parsedClass(nil), parsed.classes...)
	sort.Slice(classes, func(i, j int) bool { return classes[i].base < classes[j].base })
	for _, c := range classes {
		nameID, _ := pool.idOf(c.name)
		tr.classBase[c.base] = uint32(nameID)

		subs := append([]parsedSubclass(nil), c.subclasses...)
		sort.Slice(subs, func(i, j int) bool { return subs[i].sub < subs[j].sub })
		for _, sc := range subs {
			pis := append([]parsedProgIf(nil), sc.progIfs...)
			sort.Slice(pis, func(i, j int) bool { return pis[i].pi < pis[j].pi })
			piStart := len(tr.progIfs)
			for _, pi := range pis {
				piNameID, _ := pool.idOf(pi.name)
				tr.progIfs = append(tr.progIfs, progIfRow{pi: pi.pi, nameID: uint32(piNameID)})
			}
			scNameID, _ := pool.idOf(sc.name)
			key := subclassKey(c.base, sc.sub)
			tr.subclasses = append(tr.subclasses, subclassRow{
				key:     key,
				nameID:  uint32(scNameID),
				piStart: uint32(piStart),
				piCount: uint32(len(tr.progIfs) - piStart),
			})
			tr.subclassKeys = append(tr.subclassKeys, key)
		}
	}

	return tr, nil
}

func (r *TextReader) getString(id uint32) string {
	if int(id) >= len(r.strings) {
		glog.Warningf("pciids: string id %d out of range", id)
		return ""
	}
	return r.strings[id]
}

func (r *TextReader) findVendor(ven uint16) int {
	i := sort.Search(len(r.vendorIDs), func(i int) bool { return r.vendorIDs[i] >= ven })
	if i < len(r.vendorIDs) && r.vendorIDs[i] == ven {
		return i
	}
	return -1
}

// VendorName implements PciDB.
func (r *TextReader) VendorName(ven uint16) string {
	idx := r.findVendor(ven)
	if idx < 0 {
		return ""
	}
	return r.getString(r.vendors[idx].nameID)
}

// DeviceName implements PciDB.
func (r *TextReader) DeviceName(ven, dev uint16) string {
	vidx := r.findVendor(ven)
	if vidx < 0 {
		return ""
	}
	vrow := r.vendors[vidx]
	didx, ok := bisectDeviceSlice(r.devices[vrow.devStart:vrow.devStart+vrow.devCount], dev)
	if !ok {
		return ""
	}
	return r.getString(r.devices[int(vrow.devStart)+didx].nameID)
}

func bisectDeviceSlice(rows []deviceRow, dev uint16) (int, bool) {
	i := sort.Search(len(rows), func(i int) bool { return rows[i].id >= dev })
	if i < len(rows) && rows[i].id == dev {
		return i, true
	}
	return 0, false
}

// SubsystemName implements PciDB.
func (r *TextReader) SubsystemName(ven, dev, sv, sd uint16) string {
	vidx := r.findVendor(ven)
	if vidx < 0 {
		return ""
	}
	vrow := r.vendors[vidx]
	devs := r.devices[vrow.devStart : vrow.devStart+vrow.devCount]
	didx, ok := bisectDeviceSlice(devs, dev)
	if !ok {
		return ""
	}
	drow := devs[didx]
	subs := r.subsystems[drow.subStart : drow.subStart+drow.subCount]
	want := uint32(sv)<<16 | uint32(sd)
	i := sort.Search(len(subs), func(i int) bool { return subs[i].key() >= want })
	if i < len(subs) && subs[i].key() == want {
		return r.getString(subs[i].nameID)
	}
	return ""
}

// ClassName implements PciDB.
func (r *TextReader) ClassName(base uint8, sub, pi *uint8) string {
	baseNameID := r.classBase[base]
	baseName := ""
	if baseNameID != 0 {
		baseName = r.getString(baseNameID)
	}
	if sub == nil {
		return baseName
	}

	key := subclassKey(base, *sub)
	i := sort.Search(len(r.subclassKeys), func(i int) bool { return r.subclassKeys[i] >= key })
	if i >= len(r.subclassKeys) || r.subclassKeys[i] != key {
		return baseName
	}
	scRow := r.subclasses[i]
	subName := r.getString(scRow.nameID)
	if pi == nil {
		return subName
	}

	pis := r.progIfs[scRow.piStart : scRow.piStart+scRow.piCount]
	j := sort.Search(len(pis), func(j int) bool { return pis[j].pi >= *pi })
	if j < len(pis) && pis[j].pi == *pi {
		return r.getString(pis[j].nameID)
	}
	return subName
}

// ClassNameFromCode implements PciDB.
func (r *TextReader) ClassNameFromCode(code24 uint32, depth int) string {
	return classNameFromCode(r, code24, depth)
}

// DescribeDeviceBestEffort implements PciDB.
func (r *TextReader) DescribeDeviceBestEffort(ven, dev uint16, code24 *uint32) string {
	return describeDeviceBestEffort(r, ven, dev, code24)
}

// Close implements PciDB. A TextReader owns no file handle past
// construction, so Close only releases a bundled-resource scope if
// discovery attached one.
func (r *TextReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.onClose != nil {
		r.onClose()
	}
	return nil
}
