// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stackdepot captures and deduplicates the call stacks attached to
// lock failure reports.
//
// A misuse assertion must point at the exact call site that broke the locking
// contract, and a defensive report fired from a hot TryLock loop must not
// flood the log. The depot serves both: every captured stack is stored once,
// keyed by a 64-bit hash, and Capture tells the caller whether the stack was
// seen before.
//
// Usage:
//
//	hash, first := stackdepot.Capture(1)
//	if first {
//		fmt.Print(stackdepot.Get(hash).Format())
//	}
package stackdepot

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"
	"sync"

	farm "github.com/dgryski/go-farm"
)

// MaxFrames is the maximum number of stack frames captured per report.
const MaxFrames = 16

// reporterPrefix marks frames that belong to the reporting machinery itself
// and are dropped when formatting.
const reporterPrefix = "github.com/kolkov/dualmutex/internal/assert."

// StackTrace is a captured stack trace with fixed size.
type StackTrace struct {
	PC [MaxFrames]uintptr
	n  int
}

// depot maps hash → *StackTrace.
var depot sync.Map

// Capture records the stack of its caller and returns its hash.
//
// skip is the number of additional frames to skip above the caller of
// Capture (0 starts at the caller). first is true the first time a given
// stack is stored.
//
// Performance: ~500ns (runtime.Callers + hashing + sync.Map).
//
// Thread Safety: Safe for concurrent calls.
func Capture(skip int) (hash uint64, first bool) {
	st := &StackTrace{}
	// Skip runtime.Callers and Capture.
	st.n = runtime.Callers(skip+2, st.PC[:])
	if st.n == 0 {
		return 0, false
	}

	hash = hashStack(st.PC[:st.n])
	_, loaded := depot.LoadOrStore(hash, st)
	return hash, !loaded
}

// Get retrieves a stack trace by hash, or nil if the hash is unknown.
func Get(hash uint64) *StackTrace {
	if hash == 0 {
		return nil
	}
	val, ok := depot.Load(hash)
	if !ok {
		return nil
	}
	return val.(*StackTrace)
}

func hashStack(pcs []uintptr) uint64 {
	buf := make([]byte, 0, len(pcs)*8)
	for _, pc := range pcs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(pc))
	}
	return farm.Hash64(buf)
}

// Format renders the trace in the style of a Go panic:
//
//	main.worker()
//	    /path/to/file.go:45
//
// Runtime frames and the assertion helpers are omitted so the first line
// names the code that misused the lock.
func (st *StackTrace) Format() string {
	if st == nil || st.n == 0 {
		return "  <unknown>\n"
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(st.PC[:st.n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") &&
			!strings.HasPrefix(frame.Function, reporterPrefix) {
			fmt.Fprintf(&buf, "  %s()\n", frame.Function)
			fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)
		}
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

// Frames returns the number of captured program counters.
func (st *StackTrace) Frames() int {
	if st == nil {
		return 0
	}
	return st.n
}

// Reset clears the depot. Tests only; not safe for concurrent use.
func Reset() {
	depot.Range(func(k, _ any) bool {
		depot.Delete(k)
		return true
	})
}

// Len returns the number of unique stacks stored.
func Len() int {
	n := 0
	depot.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
