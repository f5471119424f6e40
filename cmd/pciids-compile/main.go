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

// Command pciids-compile turns a pci.ids text database into the compact
// binary form that pciids.BinaryReader can memory-map.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/golang/glog"

	"github.com/stnoonan/pciids"
)

var (
	inputFlag      string
	outputFlag     string
	noCompressFlag bool
	cpuprofile     string
)

func parseFlags() {
	flag.StringVar(&inputFlag, "i", "", "input pci.ids text file (default: stdin)")
	flag.StringVar(&outputFlag, "o", "", "output binary file (required)")
	flag.BoolVar(&noCompressFlag, "no-compress", false, "do not deflate the string pool")
	flag.StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	flag.Parse()
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "pciids-compile: "+format+"\n", args...)
	os.Exit(2)
}

func main() {
	parseFlags()

	if outputFlag == "" {
		fail("-o is required")
	}

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			fail("%v", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	in := os.Stdin
	name := "<stdin>"
	if inputFlag != "" {
		f, err := os.Open(inputFlag)
		if err != nil {
			fail("%v", err)
		}
		defer f.Close()
		in = f
		name = inputFlag
	}

	glog.V(1).Infof("compiling %s into %s", name, outputFlag)
	out, err := pciids.Compile(in, name, pciids.CompileOptions{Compress: !noCompressFlag})
	if err != nil {
		fail("%v", err)
	}

	if err := os.WriteFile(outputFlag, out, 0o644); err != nil {
		fail("%v", err)
	}
	glog.V(1).Infof("wrote %d bytes", len(out))
}
