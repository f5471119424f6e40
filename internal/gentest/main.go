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

// gentest is a program to generate benchmark tests for parsing the
// testdata/*.ids fixtures, one BenchmarkParseTestdata<Name> per file.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const preamble = `package pciids

import (
	"os"
	"testing"
)

`

var tmpl = template.Must(template.New("benchmarktest").Parse(`
func BenchmarkParseTestdata{{.Name}}(b *testing.B) {
	f, err := os.Open({{.Filename | printf "%q"}})
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Seek(0, 0)
		if _, err := parseText(f, {{.Filename | printf "%q"}}); err != nil {
			b.Fatal(err)
		}
	}
}
`))

func testName(fname string) string {
	base := filepath.Base(fname)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	base = strings.ReplaceAll(base, "-", "")
	base = strings.ReplaceAll(base, "_", "")
	return strings.Title(base)
}

func writeBenchmarkTest(w io.Writer, fname string) {
	err := tmpl.Execute(w, struct {
		Name     string
		Filename string
	}{
		Name:     testName(fname),
		Filename: fname,
	})
	if err != nil {
		panic(err)
	}
}

func main() {
	f, err := os.Create("parse_benchmark_test.go")
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			panic(err)
		}
	}()
	fmt.Fprint(f, preamble)
	matches, err := filepath.Glob("testdata/*.ids")
	if err != nil {
		panic(err)
	}
	for _, tc := range matches {
		writeBenchmarkTest(f, tc)
	}
}
