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
	"io"
	"sort"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/exp/mmap"
)

// readerAt is the minimal surface BinaryReader needs from its backing
// store: random-access reads plus a close. golang.org/x/exp/mmap.ReaderAt
// satisfies this for real files; tests and in-process compilation
// satisfy it with an in-memory implementation (see bytesReaderAt below).
type readerAt interface {
	io.ReaderAt
	Close() error
}

// bytesReaderAt adapts a byte slice to readerAt, used when a database is
// compiled straight into memory rather than read back off disk.
type bytesReaderAt struct {
	*bytes.Reader
}

func (bytesReaderAt) Close() error { return nil }

func newBytesReaderAt(b []byte) readerAt {
	return bytesReaderAt{bytes.NewReader(b)}
}

// BinaryReader answers point lookups against a memory-mapped pciids
// binary file without ever parsing the file as a whole. It is safe for
// concurrent lookups: its index arrays are immutable after open and its
// block cache is mutex-guarded.
type BinaryReader struct {
	ra  readerAt
	hdr header

	vendorIDs    []uint16 // ascending, parallel to vendor row index
	subclassKeys []uint16 // ascending, parallel to subclass row index
	blockOffsets []uint32 // absolute file offsets, one per string block
	stringsEnd   uint32   // end of the string-blocks section

	mu         sync.Mutex
	blockCache map[int][]string

	closed bool

	// onClose, if set, runs after the underlying store is released. No
	// code in this package sets it.
	onClose func()
}

var _ PciDB = (*BinaryReader)(nil)

// OpenBinaryFile memory-maps path and opens it as a binary database.
func OpenBinaryFile(path string) (*BinaryReader, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, newErr(KindIO, "opening "+path, err)
	}
	r, err := newBinaryReader(ra)
	if err != nil {
		ra.Close()
		return nil, err
	}
	glog.V(1).Infof("opened binary database %s", path)
	return r, nil
}

// openBinaryBytes opens an in-memory compiled database, primarily for
// tests and for callers that compile and immediately query without
// touching disk.
func openBinaryBytes(data []byte) (*BinaryReader, error) {
	return newBinaryReader(newBytesReaderAt(data))
}

func newBinaryReader(ra readerAt) (*BinaryReader, error) {
	r := &BinaryReader{
		ra:         ra,
		blockCache: make(map[int][]string),
	}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	if err := r.buildIndices(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *BinaryReader) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := r.ra.ReadAt(buf, 0); err != nil {
		return newErr(KindInvalidFormat, "truncated header", err)
	}
	br := bytes.NewReader(buf)
	if err := binary.Read(br, binary.LittleEndian, &r.hdr.magic); err != nil {
		return newErr(KindInvalidFormat, "truncated header", err)
	}
	if r.hdr.magic != magicPCIB {
		return newErr(KindInvalidFormat, "bad magic", nil)
	}
	if err := binary.Read(br, binary.LittleEndian, &r.hdr.version); err != nil {
		return newErr(KindInvalidFormat, "truncated header", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &r.hdr.flags); err != nil {
		return newErr(KindInvalidFormat, "truncated header", err)
	}
	for i := range r.hdr.sections {
		if err := binary.Read(br, binary.LittleEndian, &r.hdr.sections[i].offset); err != nil {
			return newErr(KindInvalidFormat, "truncated section table", err)
		}
		if err := binary.Read(br, binary.LittleEndian, &r.hdr.sections[i].length); err != nil {
			return newErr(KindInvalidFormat, "truncated section table", err)
		}
	}
	return nil
}

func (r *BinaryReader) buildIndices() error {
	dirSec := r.hdr.section(secStringDir)
	dirBuf := make([]byte, dirSec.length)
	if _, err := r.ra.ReadAt(dirBuf, int64(dirSec.offset)); err != nil {
		return newErr(KindInvalidFormat, "reading string directory", err)
	}
	dr := bytes.NewReader(dirBuf)
	var blockCount uint32
	if err := binary.Read(dr, binary.LittleEndian, &blockCount); err != nil {
		return newErr(KindInvalidFormat, "truncated string directory", err)
	}
	r.blockOffsets = make([]uint32, blockCount)
	for i := range r.blockOffsets {
		if err := binary.Read(dr, binary.LittleEndian, &r.blockOffsets[i]); err != nil {
			return newErr(KindInvalidFormat, "truncated string directory", err)
		}
	}
	blocksSec := r.hdr.section(secStringBlocks)
	r.stringsEnd = blocksSec.offset + blocksSec.length

	vendorsSec := r.hdr.section(secVendors)
	nVendors := int(vendorsSec.length / vendorRowSize)
	r.vendorIDs = make([]uint16, nVendors)
	for i := 0; i < nVendors; i++ {
		id, err := r.readU16(vendorsSec.offset + uint32(i*vendorRowSize))
		if err != nil {
			return err
		}
		r.vendorIDs[i] = id
	}

	subclassSec := r.hdr.section(secSubclasses)
	nSubclass := int(subclassSec.length / subclassRowSize)
	r.subclassKeys = make([]uint16, nSubclass)
	for i := 0; i < nSubclass; i++ {
		key, err := r.readU16(subclassSec.offset + uint32(i*subclassRowSize))
		if err != nil {
			return err
		}
		r.subclassKeys[i] = key
	}
	return nil
}

func (r *BinaryReader) readU16(off uint32) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := r.ra.ReadAt(buf, int64(off)); err != nil {
		return 0, newErr(KindInvalidFormat, "short read", err)
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (r *BinaryReader) readU32(off uint32) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := r.ra.ReadAt(buf, int64(off)); err != nil {
		return 0, newErr(KindInvalidFormat, "short read", err)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (r *BinaryReader) readVendorRow(idx int) (vendorRow, error) {
	sec := r.hdr.section(secVendors)
	base := sec.offset + uint32(idx*vendorRowSize)
	buf := make([]byte, vendorRowSize)
	if _, err := r.ra.ReadAt(buf, int64(base)); err != nil {
		return vendorRow{}, newErr(KindInvalidFormat, "short vendor row read", err)
	}
	return vendorRow{
		id:       binary.LittleEndian.Uint16(buf[0:2]),
		nameID:   binary.LittleEndian.Uint32(buf[2:6]),
		devStart: binary.LittleEndian.Uint32(buf[6:10]),
		devCount: binary.LittleEndian.Uint32(buf[10:14]),
	}, nil
}

func (r *BinaryReader) readDeviceRow(idx int) (deviceRow, error) {
	sec := r.hdr.section(secDevices)
	base := sec.offset + uint32(idx*deviceRowSize)
	buf := make([]byte, deviceRowSize)
	if _, err := r.ra.ReadAt(buf, int64(base)); err != nil {
		return deviceRow{}, newErr(KindInvalidFormat, "short device row read", err)
	}
	return deviceRow{
		id:       binary.LittleEndian.Uint16(buf[0:2]),
		nameID:   binary.LittleEndian.Uint32(buf[2:6]),
		subStart: binary.LittleEndian.Uint32(buf[6:10]),
		subCount: binary.LittleEndian.Uint32(buf[10:14]),
	}, nil
}

func (r *BinaryReader) readSubsysRow(idx int) (subsysRow, error) {
	sec := r.hdr.section(secSubsystems)
	base := sec.offset + uint32(idx*subsysRowSize)
	buf := make([]byte, subsysRowSize)
	if _, err := r.ra.ReadAt(buf, int64(base)); err != nil {
		return subsysRow{}, newErr(KindInvalidFormat, "short subsystem row read", err)
	}
	return subsysRow{
		subVendor: binary.LittleEndian.Uint16(buf[0:2]),
		subDevice: binary.LittleEndian.Uint16(buf[2:4]),
		nameID:    binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func (r *BinaryReader) readSubclassRow(idx int) (subclassRow, error) {
	sec := r.hdr.section(secSubclasses)
	base := sec.offset + uint32(idx*subclassRowSize)
	buf := make([]byte, subclassRowSize)
	if _, err := r.ra.ReadAt(buf, int64(base)); err != nil {
		return subclassRow{}, newErr(KindInvalidFormat, "short subclass row read", err)
	}
	return subclassRow{
		key:     binary.LittleEndian.Uint16(buf[0:2]),
		nameID:  binary.LittleEndian.Uint32(buf[2:6]),
		piStart: binary.LittleEndian.Uint32(buf[6:10]),
		piCount: binary.LittleEndian.Uint32(buf[10:14]),
	}, nil
}

func (r *BinaryReader) readProgIfRow(idx int) (progIfRow, error) {
	sec := r.hdr.section(secProgIfs)
	base := sec.offset + uint32(idx*progIfRowSize)
	buf := make([]byte, progIfRowSize)
	if _, err := r.ra.ReadAt(buf, int64(base)); err != nil {
		return progIfRow{}, newErr(KindInvalidFormat, "short prog-if row read", err)
	}
	return progIfRow{
		pi:     buf[0],
		nameID: binary.LittleEndian.Uint32(buf[1:5]),
	}, nil
}

// getString resolves a string-pool id to its text, using the block
// cache. Safe for concurrent use.
func (r *BinaryReader) getString(nameID uint32) (string, error) {
	stride := defaultBlockStride
	blockIdx := int(nameID) / stride
	idxInBlock := int(nameID) % stride

	r.mu.Lock()
	if strs, ok := r.blockCache[blockIdx]; ok {
		r.mu.Unlock()
		if idxInBlock >= len(strs) {
			return "", newErr(KindInvalidFormat, "string id out of range", nil)
		}
		return strs[idxInBlock], nil
	}
	r.mu.Unlock()

	if blockIdx >= len(r.blockOffsets) {
		return "", newErr(KindInvalidFormat, "string id out of range", nil)
	}
	start := r.blockOffsets[blockIdx]
	end := r.stringsEnd
	if blockIdx+1 < len(r.blockOffsets) {
		end = r.blockOffsets[blockIdx+1]
	}
	payload := make([]byte, end-start)
	if _, err := r.ra.ReadAt(payload, int64(start)); err != nil {
		return "", newErr(KindInvalidFormat, "reading string block", err)
	}
	glog.V(3).Infof("pciids: decoding string block %d (%d bytes)", blockIdx, len(payload))
	strs, err := decodeBlock(payload)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.blockCache[blockIdx] = strs
	r.mu.Unlock()

	if idxInBlock >= len(strs) {
		return "", newErr(KindInvalidFormat, "string id out of range", nil)
	}
	return strs[idxInBlock], nil
}

func (r *BinaryReader) mustString(nameID uint32) string {
	s, err := r.getString(nameID)
	if err != nil {
		glog.Warningf("pciids: corrupt string block for id %d: %v", nameID, err)
		return ""
	}
	return s
}

// findVendor returns the vendor row index for ven, or -1.
func (r *BinaryReader) findVendor(ven uint16) int {
	i := sort.Search(len(r.vendorIDs), func(i int) bool { return r.vendorIDs[i] >= ven })
	if i < len(r.vendorIDs) && r.vendorIDs[i] == ven {
		return i
	}
	return -1
}

// VendorName implements PciDB.
func (r *BinaryReader) VendorName(ven uint16) string {
	idx := r.findVendor(ven)
	if idx < 0 {
		glog.V(2).Infof("pciids: vendor %04x not in database", ven)
		return ""
	}
	row, err := r.readVendorRow(idx)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return ""
	}
	return r.mustString(row.nameID)
}

// DeviceName implements PciDB.
func (r *BinaryReader) DeviceName(ven, dev uint16) string {
	vidx := r.findVendor(ven)
	if vidx < 0 {
		return ""
	}
	vrow, err := r.readVendorRow(vidx)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return ""
	}
	didx, ok := r.bisectDeviceRange(vrow.devStart, vrow.devCount, dev)
	if !ok {
		glog.V(2).Infof("pciids: device %04x:%04x not in database", ven, dev)
		return ""
	}
	drow, err := r.readDeviceRow(didx)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return ""
	}
	return r.mustString(drow.nameID)
}

func (r *BinaryReader) bisectDeviceRange(start, count uint32, dev uint16) (int, bool) {
	lo, hi := 0, int(count)
	for lo < hi {
		mid := (lo + hi) / 2
		row, err := r.readDeviceRow(int(start) + mid)
		if err != nil {
			return 0, false
		}
		if row.id < dev {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < int(count) {
		row, err := r.readDeviceRow(int(start) + lo)
		if err == nil && row.id == dev {
			return int(start) + lo, true
		}
	}
	return 0, false
}

// SubsystemName implements PciDB.
func (r *BinaryReader) SubsystemName(ven, dev, sv, sd uint16) string {
	vidx := r.findVendor(ven)
	if vidx < 0 {
		return ""
	}
	vrow, err := r.readVendorRow(vidx)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return ""
	}
	didx, ok := r.bisectDeviceRange(vrow.devStart, vrow.devCount, dev)
	if !ok {
		return ""
	}
	drow, err := r.readDeviceRow(didx)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return ""
	}
	want := uint32(sv)<<16 | uint32(sd)
	lo, hi := 0, int(drow.subCount)
	for lo < hi {
		mid := (lo + hi) / 2
		row, err := r.readSubsysRow(int(drow.subStart) + mid)
		if err != nil {
			return ""
		}
		if row.key() < want {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < int(drow.subCount) {
		row, err := r.readSubsysRow(int(drow.subStart) + lo)
		if err == nil && row.key() == want {
			return r.mustString(row.nameID)
		}
	}
	return ""
}

// ClassName implements PciDB.
func (r *BinaryReader) ClassName(base uint8, sub, pi *uint8) string {
	classBaseSec := r.hdr.section(secClassBase)
	baseNameID, err := r.readU32(classBaseSec.offset + uint32(base)*4)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return ""
	}
	baseName := ""
	if baseNameID != 0 {
		baseName = r.mustString(baseNameID)
	}
	if sub == nil {
		return baseName
	}

	key := subclassKey(base, *sub)
	idx := sort.Search(len(r.subclassKeys), func(i int) bool { return r.subclassKeys[i] >= key })
	if idx >= len(r.subclassKeys) || r.subclassKeys[idx] != key {
		return baseName
	}
	scRow, err := r.readSubclassRow(idx)
	if err != nil {
		glog.Warningf("pciids: %v", err)
		return baseName
	}
	subName := r.mustString(scRow.nameID)
	if pi == nil {
		return subName
	}

	lo, hi := 0, int(scRow.piCount)
	for lo < hi {
		mid := (lo + hi) / 2
		row, err := r.readProgIfRow(int(scRow.piStart) + mid)
		if err != nil {
			return subName
		}
		if row.pi < *pi {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < int(scRow.piCount) {
		row, err := r.readProgIfRow(int(scRow.piStart) + lo)
		if err == nil && row.pi == *pi {
			return r.mustString(row.nameID)
		}
	}
	return subName
}

// ClassNameFromCode implements PciDB.
func (r *BinaryReader) ClassNameFromCode(code24 uint32, depth int) string {
	return classNameFromCode(r, code24, depth)
}

// DescribeDeviceBestEffort implements PciDB.
func (r *BinaryReader) DescribeDeviceBestEffort(ven, dev uint16, code24 *uint32) string {
	return describeDeviceBestEffort(r, ven, dev, code24)
}

// Close implements PciDB.
func (r *BinaryReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.ra.Close()
	if r.onClose != nil {
		r.onClose()
	}
	if err != nil {
		return newErr(KindIO, "closing database", err)
	}
	return nil
}
