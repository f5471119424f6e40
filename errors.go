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

// Kind classifies the errors this package returns.
type Kind int

const (
	// KindNotFound means discovery exhausted every candidate source.
	KindNotFound Kind = iota
	// KindInvalidFormat means a file was opened but failed validation: bad
	// magic, a truncated header, a row count inconsistent with its
	// section's length, or a corrupt string block.
	KindInvalidFormat
	// KindIO means an underlying filesystem or mapping call failed.
	KindIO
	// KindParse means a text database was unusable (e.g. empty after
	// parsing).
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidFormat:
		return "invalid format"
	case KindIO:
		return "I/O error"
	case KindParse:
		return "parse error"
	default:
		return "unknown error"
	}
}

// DBError is the concrete error type returned by this package's exported
// functions. Callers that need to branch on error kind should use
// errors.As, not string matching.
type DBError struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *DBError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pciids: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("pciids: %s: %s", e.Kind, e.Msg)
}

func (e *DBError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) (etc.) work against the sentinel kind
// markers below without comparing messages.
func (e *DBError) Is(target error) bool {
	t, ok := target.(*DBError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string, cause error) *DBError {
	return &DBError{Kind: kind, Msg: msg, Err: cause}
}

// Sentinel markers for errors.Is comparisons, e.g.:
//
//	if errors.Is(err, pciids.ErrNotFound) { ... }
var (
	ErrNotFound      = &DBError{Kind: KindNotFound, Msg: "no candidate database source"}
	ErrInvalidFormat = &DBError{Kind: KindInvalidFormat, Msg: "malformed database"}
	ErrIO            = &DBError{Kind: KindIO, Msg: "I/O failure"}
	ErrParse         = &DBError{Kind: KindParse, Msg: "unusable text database"}
)
