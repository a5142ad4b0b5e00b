// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build dualmutex_stackgoid

package goid

// get falls back to stack parsing. The name of the fast entry point is kept
// so callers do not care which build they run in.
func get() int64 {
	return Slow()
}
