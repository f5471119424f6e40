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

import "github.com/golang/glog"

// warn logs a recoverable anomaly tied to a specific line of a text
// database, such as a malformed or skipped entry. Malformed lines are
// skipped, never fatal. Routes through glog rather than printing to stdout
// directly, since this is a library and must not assume it owns the
// process's console.
func warn(filename string, lineno int, format string, a ...interface{}) {
	glog.Warningf("%s:%d: "+format, append([]interface{}{filename, lineno}, a...)...)
}
