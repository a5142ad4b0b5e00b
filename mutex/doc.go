// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mutex provides a mutual exclusion lock whose backend is chosen once
// per process, with optional recursion and optional ownership tracking.
//
// # Quick Start
//
//	type cache struct {
//		mu    *mutex.Mutex
//		items map[string]string
//	}
//
//	func newCache() *cache {
//		return &cache{mu: mutex.NewMutex(), items: map[string]string{}}
//	}
//
//	func (c *cache) get(k string) string {
//		defer mutex.Scope(c.mu)()
//		return c.items[k]
//	}
//
// # Backends
//
// The first Mutex constructed in a process asks the capability selector
// whether the fast backend may be used. It may if the Go runtime is at least
// go1.18 and the "fast-lock" experiment is enabled (it is by default; see
// $DUALMUTEX_EXPERIMENTS). The answer is fixed for the rest of the process:
//
//	capability  recursive  backend
//	----------  ---------  ---------------------------------------------
//	yes         no         BackendFast: sync.Mutex
//	yes         yes        BackendRecursiveFast: sync.Mutex + owner/depth
//	no          no         BackendPortable: portable mutex, normal type
//	no          yes        BackendPortableRecursive: portable mutex, recursive type
//
// # Ownership Tracking
//
// Building with -tags lockdebug compiles in an ownership tracker. Every
// successful Lock records the owning goroutine and reentrancy count, Unlock
// verifies the caller is the owner, and Locked, AssertLocked and
// AssertUnlocked become active. Misuse (unlock without lock, foreign
// unlock, relocking a non-recursive mutex) is reported and the offending
// goroutine panics at the call site.
//
// Without the tag the tracker is a zero-size struct with empty methods: no
// fields, no branches, no Locked method.
//
// # Failures
//
// Errors from the portable backend that should be impossible are reported
// through the failure hook (see internal/assert). Lock and Unlock failures are
// fatal. A TryLock failure other than "busy" is reported and treated as a
// successful acquisition, since a false return would send retrying callers
// into an endless loop.
//
// Recursive mutexes are occasionally the right tool and more often a sign
// that a lock's scope is unclear. Prefer Mutex.
package mutex
