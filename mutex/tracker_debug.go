// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build lockdebug

package mutex

import (
	"go.uber.org/atomic"

	"github.com/kolkov/dualmutex/internal/assert"
	"github.com/kolkov/dualmutex/internal/goid"
)

// TrackingEnabled reports whether the ownership tracker is compiled in.
const TrackingEnabled = true

// ownershipTracker records which goroutine holds a Mutex and how often.
//
// State machine:
//
//	Unowned      --lock-->               Owned(g, 1)
//	Owned(g, n)  --lock by g-->          Owned(g, n+1)   recursive only
//	Owned(g, n)  --unlock by g, n>1-->   Owned(g, n-1)
//	Owned(g, 1)  --unlock by g-->        Unowned
//
// Any other transition is a fatal assertion.
//
// The fields are only written while the backend lock is held, but Locked may
// read them from any goroutine, hence the atomics.
type ownershipTracker struct {
	owner atomic.Int64
	count atomic.Uint32
}

func (t *ownershipTracker) reset() {
	t.owner.Store(goid.None)
	t.count.Store(0)
}

// willLock catches a goroutine about to deadlock on a non-recursive mutex it
// already holds.
func (t *ownershipTracker) willLock(recursive bool) {
	if recursive {
		return
	}
	me := goid.Get()
	assert.True(t.owner.Load() != me,
		"goroutine %d relocks a non-recursive mutex it already holds", me)
}

func (t *ownershipTracker) didLock(recursive bool) {
	me := goid.Get()
	if owner := t.owner.Load(); owner != me {
		// New owner. Nobody else can hold the mutex now, so the previous
		// holder must have cleared both fields.
		assert.True(owner == goid.None,
			"goroutine %d acquired a mutex still owned by goroutine %d", me, owner)
		assert.True(t.count.Load() == 0,
			"goroutine %d acquired a free mutex with count %d", me, t.count.Load())
		t.owner.Store(me)
	} else {
		// Reentry by the holder.
		assert.True(t.count.Load() > 0,
			"goroutine %d reentered a mutex with count 0", me)
		assert.True(recursive,
			"goroutine %d reentered a non-recursive mutex", me)
	}
	t.count.Inc()
}

// willUnlock runs before the backend releases, so a misuse is caught before
// the backend sees it.
func (t *ownershipTracker) willUnlock() {
	me := goid.Get()
	owner := t.owner.Load()
	assert.True(owner == me,
		"goroutine %d unlocks a mutex owned by goroutine %d", me, owner)
	assert.True(t.count.Load() > 0,
		"goroutine %d unlocks a mutex with count 0", me)
	if t.count.Dec() == 0 {
		t.owner.Store(goid.None)
	}
}

func (t *ownershipTracker) locked() bool {
	return t.count.Load() > 0 && t.owner.Load() == goid.Get()
}

// Locked reports whether the calling goroutine holds m.
//
// Only available with the lockdebug build tag; production code must not
// depend on it.
func (m *Mutex) Locked() bool {
	return m.tracker.locked()
}

// Count returns the reentrancy count of m. Only meaningful to the holder.
func (m *Mutex) Count() uint32 {
	return m.tracker.count.Load()
}

// AssertLocked fails fatally unless the calling goroutine holds m.
func AssertLocked(m Owned) {
	assert.True(m.ownership().locked(), "lock must be held by goroutine %d", goid.Get())
}

// AssertUnlocked fails fatally if the calling goroutine holds m.
func AssertUnlocked(m Owned) {
	assert.True(!m.ownership().locked(), "lock must not be held by goroutine %d", goid.Get())
}
