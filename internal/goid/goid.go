// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goid

import "runtime"

// None is the owner value of a lock that no goroutine holds.
const None int64 = 0

// Get returns the ID of the calling goroutine.
//
// This is on the hot path of every recursive Lock and every tracked
// operation, so it delegates to the fastest implementation the build allows.
func Get() int64 {
	return get()
}

// Slow extracts the goroutine ID by parsing runtime.Stack output.
//
// Stack trace format: "goroutine 123 [running]:\n..."
//
// It works on every Go version and architecture. It is used directly by the
// dualmutex_stackgoid build and by tests to cross-check the fast path.
//
// Returns 0 if parsing fails.
func Slow() int64 {
	// Only the first line is needed.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the goroutine ID from stack trace bytes.
//
// Expected format: "goroutine 123 [running]:..."
// Returns the numeric ID (123 in this example) or 0 if the format is invalid.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "

	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var gid int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			// Usually the space before "[running]".
			break
		}
		gid = gid*10 + int64(c-'0')
	}
	return gid
}
