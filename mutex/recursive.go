// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/kolkov/dualmutex/internal/assert"
	"github.com/kolkov/dualmutex/internal/goid"
)

// recursiveFastLock gives a sync.Mutex recursive semantics without falling
// back to the portable backend.
//
// Layout:
//   - lock: the underlying non-recursive lock, held while count > 0
//   - owner: goroutine ID of the holder, goid.None when free
//   - count: reentrancy depth
//
// owner is read without holding lock on the "is it already mine" path, so it
// is atomic. A goroutine can only ever see its own ID there if it stored it
// itself, which makes the check exact. count is only touched by the holder;
// lock orders it between successive holders.
type recursiveFastLock struct {
	lock  sync.Mutex
	owner atomic.Int64
	count uint32
}

// Lock acquires the lock or, if the caller already holds it, deepens the
// reentrancy count without touching the underlying lock.
func (l *recursiveFastLock) Lock() {
	me := goid.Get()
	if l.owner.Load() == me {
		l.count++
		return
	}
	l.lock.Lock()
	l.owner.Store(me)
	l.count = 1
}

// TryLock is Lock without blocking.
func (l *recursiveFastLock) TryLock() bool {
	me := goid.Get()
	if l.owner.Load() == me {
		l.count++
		return true
	}
	if !l.lock.TryLock() {
		return false
	}
	l.owner.Store(me)
	l.count = 1
	return true
}

// Unlock releases one level; the underlying lock is released with the last.
//
// An unlock from a goroutine that does not hold the lock is reported and
// ignored rather than corrupting count.
func (l *recursiveFastLock) Unlock() {
	me := goid.Get()
	if owner := l.owner.Load(); owner != me {
		assert.Failf(assert.SeverityError,
			"unlock of recursive mutex held by goroutine %d from goroutine %d", owner, me)
		return
	}
	l.count--
	if l.count == 0 {
		l.owner.Store(goid.None)
		l.lock.Unlock()
	}
}
