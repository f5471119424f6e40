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
	"fmt"
	"io"
	"sort"

	"github.com/golang/glog"
)

// CompileOptions controls how Compile packs a text database into the
// binary layout.
type CompileOptions struct {
	// Compress, if true, runs every string block through zlib. Off by
	// default matches a "-no-compress" build: smaller code path, bigger
	// file, useful when diagnosing a block codec problem.
	Compress bool
}

// Compile reads a pci.ids-formatted text database from r and returns the
// equivalent binary database. name is used only to annotate parser
// warnings.
//
// Compile buffers the row tables and string blocks in memory and computes
// every section's offset and length before it builds the 112-byte header,
// so the header is the last thing computed even though it is written
// first, at offset 0 in the result.
func Compile(r io.Reader, name string, opts CompileOptions) ([]byte, error) {
	glog.V(1).Infof("compiling %s (compress=%v)", name, opts.Compress)

	parsed, err := parseText(r, name)
	if err != nil {
		return nil, err
	}
	if len(parsed.vendors) == 0 && len(parsed.classes) == 0 {
		return nil, newErr(KindParse, "text database has no vendors or classes after parsing", nil)
	}

	pool := newStringInterner()
	// The empty string sorts first and so takes id 0, which keeps every
	// class name off id 0: a 0 in the class-base table then only ever
	// means "no class at this base".
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
	glog.V(1).Infof("%s: %d vendors, %d classes, %d distinct strings", name, len(parsed.vendors), len(parsed.classes), pool.len())

	vendors := append([]parsedVendor(nil), parsed.vendors...)
	sort.Slice(vendors, func(i, j int) bool { return vendors[i].id < vendors[j].id })

	var vendorRows []vendorRow
	var deviceRows []deviceRow
	var subsysRows []subsysRow

	for _, v := range vendors {
		devs := append([]parsedDevice(nil), v.devices...)
		sort.Slice(devs, func(i, j int) bool { return devs[i].id < devs[j].id })
		devStart := len(deviceRows)
		for _, d := range devs {
			subs := append([]parsedSubsystem(nil), d.subsystems...)
			sort.Slice(subs, func(i, j int) bool {
				return subsysKey(subs[i]) < subsysKey(subs[j])
			})
			subStart := len(subsysRows)
			for _, s := range subs {
				nameID, _ := pool.idOf(s.name)
				subsysRows = append(subsysRows, subsysRow{
					subVendor: s.sv,
					subDevice: s.sd,
					nameID:    uint32(nameID),
				})
			}
			devNameID, _ := pool.idOf(d.name)
			deviceRows = append(deviceRows, deviceRow{
				id:       d.id,
				nameID:   uint32(devNameID),
				subStart: uint32(subStart),
				subCount: uint32(len(subsysRows) - subStart),
			})
		}
		venNameID, _ := pool.idOf(v.name)
		vendorRows = append(vendorRows, vendorRow{
			id:       v.id,
			nameID:   uint32(venNameID),
			devStart: uint32(devStart),
			devCount: uint32(len(deviceRows) - devStart),
		})
	}

	classes := append([]parsedClass(nil), parsed.classes...)
	sort.Slice(classes, func(i, j int) bool { return classes[i].base < classes[j].base })

	var classBase [numClassSlots]uint32
	var subclassRows []subclassRow
	var progIfRows []progIfRow

	for _, c := range classes {
		nameID, _ := pool.idOf(c.name)
		classBase[c.base] = uint32(nameID)

		subs := append([]parsedSubclass(nil), c.subclasses...)
		sort.Slice(subs, func(i, j int) bool { return subs[i].sub < subs[j].sub })
		for _, sc := range subs {
			pis := append([]parsedProgIf(nil), sc.progIfs...)
			sort.Slice(pis, func(i, j int) bool { return pis[i].pi < pis[j].pi })
			piStart := len(progIfRows)
			for _, pi := range pis {
				piNameID, _ := pool.idOf(pi.name)
				progIfRows = append(progIfRows, progIfRow{pi: pi.pi, nameID: uint32(piNameID)})
			}
			scNameID, _ := pool.idOf(sc.name)
			subclassRows = append(subclassRows, subclassRow{
				key:     subclassKey(c.base, sc.sub),
				nameID:  uint32(scNameID),
				piStart: uint32(piStart),
				piCount: uint32(len(progIfRows) - piStart),
			})
		}
	}

	strDir, strBlocks, err := packStringSections(pool, opts.Compress, headerSize)
	if err != nil {
		return nil, err
	}

	vendorsBuf := packVendorRows(vendorRows)
	devicesBuf := packDeviceRows(deviceRows)
	subsysBuf := packSubsysRows(subsysRows)
	classBaseBuf := packClassBase(classBase)
	subclassBuf := packSubclassRows(subclassRows)
	progIfBuf := packProgIfRows(progIfRows)

	sections := [][]byte{
		strDir,
		strBlocks,
		vendorsBuf,
		devicesBuf,
		subsysBuf,
		classBaseBuf,
		subclassBuf,
		progIfBuf,
		nil, // misc, reserved
		nil, nil, nil, nil,
	}

	var hdr header
	hdr.magic = magicPCIB
	hdr.version = formatVersion
	offset := uint32(headerSize)
	for i, sec := range sections {
		hdr.sections[i] = sectionPair{offset: offset, length: uint32(len(sec))}
		offset += uint32(len(sec))
	}

	var out bytes.Buffer
	out.Grow(int(offset))
	if err := writeHeader(&out, &hdr); err != nil {
		return nil, err
	}
	for _, sec := range sections {
		out.Write(sec)
	}
	glog.V(1).Infof("%s: wrote %d bytes (%d vendors, %d devices, %d subsystems)", name, out.Len(), len(vendorRows), len(deviceRows), len(subsysRows))
	return out.Bytes(), nil
}

func subsysKey(s parsedSubsystem) uint32 {
	return uint32(s.sv)<<16 | uint32(s.sd)
}

func writeHeader(w io.Writer, h *header) error {
	if err := binary.Write(w, binary.LittleEndian, h.magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.flags); err != nil {
		return err
	}
	for _, s := range h.sections {
		if err := binary.Write(w, binary.LittleEndian, s.offset); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.length); err != nil {
			return err
		}
	}
	return nil
}

// packStringSections lays out the string directory (block count + block
// offsets) followed by the block payloads themselves. dirBaseOffset is
// the absolute file offset where the string directory begins (right
// after the fixed header); block offsets recorded in the directory are
// absolute offsets from the start of the file, as the reader expects to
// dereference them directly against its memory map.
func packStringSections(pool *stringInterner, compress bool, dirBaseOffset uint32) (dir, blocks []byte, err error) {
	n := pool.len()
	blockCount := (n + defaultBlockStride - 1) / defaultBlockStride
	dirSize := 4 + 4*blockCount

	var blocksBuf bytes.Buffer
	blockOffsets := make([]uint32, 0, blockCount)
	off := dirBaseOffset + uint32(dirSize)
	for i := 0; i < n; i += defaultBlockStride {
		end := i + defaultBlockStride
		if end > n {
			end = n
		}
		strs := make([]string, end-i)
		for j := range strs {
			strs[j] = pool.get(i + j)
		}
		payload, err := encodeBlock(strs, compress)
		if err != nil {
			return nil, nil, fmt.Errorf("pciids: compile: block %d: %w", i/defaultBlockStride, err)
		}
		blockOffsets = append(blockOffsets, off)
		blocksBuf.Write(payload)
		off += uint32(len(payload))
	}

	var dirBuf bytes.Buffer
	binary.Write(&dirBuf, binary.LittleEndian, uint32(blockCount))
	for _, o := range blockOffsets {
		binary.Write(&dirBuf, binary.LittleEndian, o)
	}
	return dirBuf.Bytes(), blocksBuf.Bytes(), nil
}

func packVendorRows(rows []vendorRow) []byte {
	var buf bytes.Buffer
	buf.Grow(len(rows) * vendorRowSize)
	for _, r := range rows {
		binary.Write(&buf, binary.LittleEndian, r.id)
		binary.Write(&buf, binary.LittleEndian, r.nameID)
		binary.Write(&buf, binary.LittleEndian, r.devStart)
		binary.Write(&buf, binary.LittleEndian, r.devCount)
	}
	return buf.Bytes()
}

func packDeviceRows(rows []deviceRow) []byte {
	var buf bytes.Buffer
	buf.Grow(len(rows) * deviceRowSize)
	for _, r := range rows {
		binary.Write(&buf, binary.LittleEndian, r.id)
		binary.Write(&buf, binary.LittleEndian, r.nameID)
		binary.Write(&buf, binary.LittleEndian, r.subStart)
		binary.Write(&buf, binary.LittleEndian, r.subCount)
	}
	return buf.Bytes()
}

func packSubsysRows(rows []subsysRow) []byte {
	var buf bytes.Buffer
	buf.Grow(len(rows) * subsysRowSize)
	for _, r := range rows {
		binary.Write(&buf, binary.LittleEndian, r.subVendor)
		binary.Write(&buf, binary.LittleEndian, r.subDevice)
		binary.Write(&buf, binary.LittleEndian, r.nameID)
	}
	return buf.Bytes()
}

func packClassBase(base [numClassSlots]uint32) []byte {
	var buf bytes.Buffer
	buf.Grow(numClassSlots * 4)
	for _, v := range base {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func packSubclassRows(rows []subclassRow) []byte {
	var buf bytes.Buffer
	buf.Grow(len(rows) * subclassRowSize)
	for _, r := range rows {
		binary.Write(&buf, binary.LittleEndian, r.key)
		binary.Write(&buf, binary.LittleEndian, r.nameID)
		binary.Write(&buf, binary.LittleEndian, r.piStart)
		binary.Write(&buf, binary.LittleEndian, r.piCount)
	}
	return buf.Bytes()
}

func packProgIfRows(rows []progIfRow) []byte {
	var buf bytes.Buffer
	buf.Grow(len(rows) * progIfRowSize)
	for _, r := range rows {
		buf.WriteByte(r.pi)
		binary.Write(&buf, binary.LittleEndian, r.nameID)
	}
	return buf.Bytes()
}
