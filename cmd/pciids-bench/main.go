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

// pciids-bench is a simple program to measure lookup throughput against a
// compiled pci.ids database.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/stnoonan/pciids"
)

var (
	dbFlag      string
	lookupsFlag int
)

func main() {
	flag.StringVar(&dbFlag, "db", "", "path to a compiled binary database (default: auto-discovered)")
	flag.IntVar(&lookupsFlag, "n", 1000000, "number of lookups to perform")
	flag.Parse()

	db, err := pciids.Open(dbFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pciids-bench: %v\n", err)
		os.Exit(2)
	}
	defer db.Close()

	rng := rand.New(rand.NewSource(1))
	t := time.Now()
	var hits int
	for i := 0; i < lookupsFlag; i++ {
		ven := uint16(rng.Intn(0x10000))
		dev := uint16(rng.Intn(0x10000))
		if db.VendorName(ven) != "" {
			hits++
		}
		if db.DeviceName(ven, dev) != "" {
			hits++
		}
	}
	elapsed := time.Since(t)
	fmt.Printf("pciids-bench: %d lookups in %v (%v/lookup), %d hits\n",
		2*lookupsFlag, elapsed, elapsed/time.Duration(2*lookupsFlag), hits)
}
