// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package goid identifies the calling goroutine.
//
// Lock ownership (the recursive emulation layer, the portable backend's
// error-checking modes and the debug ownership tracker) is keyed by the ID
// returned from [Get]. IDs are positive and stable for the lifetime of a
// goroutine, so zero is free to mean "no owner".
//
// Two implementations exist, selected at build time:
//   - default: github.com/petermattis/goid, which reads the ID straight from
//     the runtime g struct (~1-2ns).
//   - dualmutex_stackgoid build tag: runtime.Stack parsing (~1µs). Slow, but
//     independent of runtime internals; useful when a new Go release breaks
//     the fast path.
package goid
