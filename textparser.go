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

//go:generate go run internal/gentest/main.go
//
// $ go generate
// $ go test -bench .

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parsedProgIf is one programming-interface entry under a subclass.
type parsedProgIf struct {
	pi   uint8
	name string
}

// parsedSubclass is one subclass entry under a class base, with its
// programming interfaces in the order they were seen.
type parsedSubclass struct {
	sub     uint8
	name    string
	progIfs []parsedProgIf
}

// parsedClass is one top-level device-class entry ("C BB  NAME").
type parsedClass struct {
	base       uint8
	name       string
	subclasses []parsedSubclass
}

// parsedSubsystem is one subsystem entry under a device.
type parsedSubsystem struct {
	sv, sd uint16
	name   string
}

// parsedDevice is one device entry under a vendor.
type parsedDevice struct {
	id         uint16
	name       string
	subsystems []parsedSubsystem
}

// parsedVendor is one top-level vendor entry.
type parsedVendor struct {
	id      uint16
	name    string
	devices []parsedDevice
}

// parsedDB is the full result of parsing a pci.ids text file: vendors and
// classes in the order they were encountered, ready to be sorted and
// packed by the compiler.
type parsedDB struct {
	vendors []parsedVendor
	classes []parsedClass
}

// parseText reads a pci.ids-formatted text database from r, logging and
// skipping any malformed line instead of failing the whole parse. name is
// used only to annotate warnings (typically a file path).
func parseText(r io.Reader, name string) (*parsedDB, error) {
	db := &parsedDB{}

	const (
		modeVendor = iota
		modeClass
	)
	mode := modeVendor

	var curVendor *parsedVendor
	var curDevice *parsedDevice
	var curClass *parsedClass
	var curSubclass *parsedSubclass

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		raw := scanner.Text()
		line := strings.TrimRight(raw, " \t\r\n")
		if line == "" || strings.HasPrefix(strings.TrimLeft(line, "\t"), "#") {
			continue
		}

		tabs := 0
		for tabs < len(line) && line[tabs] == '\t' {
			tabs++
		}
		body := line[tabs:]
		if body == "" {
			continue
		}

		if tabs == 0 && (strings.HasPrefix(body, "C\t") || strings.HasPrefix(body, "C ")) {
			base, rest, ok := parseHexField(body[2:], 2)
			if !ok {
				warn(name, lineno, "malformed class header, skipped")
				continue
			}
			mode = modeClass
			cls := parsedClass{base: uint8(base), name: trimFieldName(rest)}
			db.classes = append(db.classes, cls)
			curClass = &db.classes[len(db.classes)-1]
			curSubclass = nil
			continue
		}

		switch mode {
		case modeVendor:
			switch tabs {
			case 0:
				id, rest, ok := parseHexField(body, 4)
				if !ok {
					warn(name, lineno, "malformed vendor line, skipped")
					curVendor = nil
					continue
				}
				v := parsedVendor{id: uint16(id), name: trimFieldName(rest)}
				db.vendors = append(db.vendors, v)
				curVendor = &db.vendors[len(db.vendors)-1]
				curDevice = nil
			case 1:
				if curVendor == nil {
					warn(name, lineno, "device line with no current vendor, skipped")
					continue
				}
				id, rest, ok := parseHexField(body, 4)
				if !ok {
					warn(name, lineno, "malformed device line, skipped")
					curDevice = nil
					continue
				}
				d := parsedDevice{id: uint16(id), name: trimFieldName(rest)}
				curVendor.devices = append(curVendor.devices, d)
				curDevice = &curVendor.devices[len(curVendor.devices)-1]
			case 2:
				if curDevice == nil {
					warn(name, lineno, "subsystem line with no current device, skipped")
					continue
				}
				sv, rest, ok := parseHexField(body, 4)
				if !ok {
					warn(name, lineno, "malformed subsystem line, skipped")
					continue
				}
				rest = strings.TrimLeft(rest, " \t")
				sd, rest, ok := parseHexField(rest, 4)
				if !ok {
					warn(name, lineno, "malformed subsystem line, skipped")
					continue
				}
				s := parsedSubsystem{sv: uint16(sv), sd: uint16(sd), name: trimFieldName(rest)}
				curDevice.subsystems = append(curDevice.subsystems, s)
			default:
				warn(name, lineno, "unexpected indentation, skipped")
			}
		case modeClass:
			switch tabs {
			case 1:
				if curClass == nil {
					warn(name, lineno, "subclass line with no current class, skipped")
					continue
				}
				sub, rest, ok := parseHexField(body, 2)
				if !ok {
					warn(name, lineno, "malformed subclass line, skipped")
					curSubclass = nil
					continue
				}
				sc := parsedSubclass{sub: uint8(sub), name: trimFieldName(rest)}
				curClass.subclasses = append(curClass.subclasses, sc)
				curSubclass = &curClass.subclasses[len(curClass.subclasses)-1]
			case 2:
				if curSubclass == nil {
					warn(name, lineno, "prog-if line with no current subclass, skipped")
					continue
				}
				pi, rest, ok := parseHexField(body, 2)
				if !ok {
					warn(name, lineno, "malformed prog-if line, skipped")
					continue
				}
				curSubclass.progIfs = append(curSubclass.progIfs, parsedProgIf{pi: uint8(pi), name: trimFieldName(rest)})
			default:
				warn(name, lineno, "unexpected indentation, skipped")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, newErr(KindIO, "reading text database", err)
	}
	return db, nil
}

// parseHexField consumes exactly width hex digits from the front of s and
// returns the parsed value, the remainder of s, and whether the field was
// well-formed (width hex digits immediately followed by whitespace or end
// of string).
func parseHexField(s string, width int) (value int, rest string, ok bool) {
	if len(s) < width {
		return 0, s, false
	}
	field := s[:width]
	n, err := strconv.ParseUint(field, 16, 32)
	if err != nil {
		return 0, s, false
	}
	remainder := s[width:]
	if remainder != "" && remainder[0] != ' ' && remainder[0] != '\t' {
		return 0, s, false
	}
	return int(n), remainder, true
}

// trimFieldName strips the separating whitespace between a hex id field
// and its name, preserving any internal whitespace in the name itself.
func trimFieldName(s string) string {
	return strings.TrimLeft(s, " \t")
}
