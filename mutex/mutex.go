// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"sync"

	"github.com/pingcap/errors"

	"github.com/kolkov/dualmutex/internal/assert"
	"github.com/kolkov/dualmutex/internal/capability"
	"github.com/kolkov/dualmutex/internal/portable"
)

// Backend identifies the lock implementation bound to a Mutex.
type Backend uint8

const (
	// BackendUnbound marks a Mutex that was not constructed with NewMutex or
	// NewRecursiveMutex, or was destroyed.
	BackendUnbound Backend = iota
	// BackendFast is a bare sync.Mutex.
	BackendFast
	// BackendRecursiveFast is a sync.Mutex with recursion emulated on top.
	BackendRecursiveFast
	// BackendPortable is a portable mutex of the normal type.
	BackendPortable
	// BackendPortableRecursive is a portable mutex of the recursive type.
	BackendPortableRecursive
)

// String returns the name of the backend.
func (b Backend) String() string {
	switch b {
	case BackendUnbound:
		return "unbound"
	case BackendFast:
		return "fast"
	case BackendRecursiveFast:
		return "recursive-fast"
	case BackendPortable:
		return "portable"
	case BackendPortableRecursive:
		return "portable-recursive"
	default:
		return "unknown"
	}
}

// Recursive reports whether the backend allows the holder to relock.
func (b Backend) Recursive() bool {
	return b == BackendRecursiveFast || b == BackendPortableRecursive
}

// selectBackend maps the capability and recursion flag to a backend.
func selectBackend(fast, recursive bool) Backend {
	switch {
	case fast && recursive:
		return BackendRecursiveFast
	case fast:
		return BackendFast
	case recursive:
		return BackendPortableRecursive
	default:
		return BackendPortable
	}
}

// portableAttrs are built once and shared by every portable mutex of a type.
var portableAttrs = sync.OnceValue(func() [2]*portable.Attr {
	normal, recursive := portable.NewAttr(), portable.NewAttr()
	assert.NoErr(recursive.SetType(portable.TypeRecursive), "portable recursive attr init")
	return [2]*portable.Attr{normal, recursive}
})

// Mutex is a mutual exclusion lock.
//
// Construct it with NewMutex; the zero value is unbound and every operation
// on it fails fatally. A Mutex must not be copied.
//
// Exactly one backend handle is live per instance, selected by kind at
// construction and fixed until Destroy.
type Mutex struct {
	tracker ownershipTracker

	kind     Backend
	fast     sync.Mutex
	rfast    recursiveFastLock
	portable *portable.Mutex
}

// RecursiveMutex is a Mutex the holder may lock again. Each Lock (or
// successful TryLock) must be matched by one Unlock; other goroutines are
// excluded until the last one.
type RecursiveMutex struct {
	Mutex
}

// NewMutex returns a non-recursive Mutex bound to the process-wide backend.
func NewMutex() *Mutex {
	m := &Mutex{}
	m.bind(selectBackend(capability.FastLockAvailable(), false))
	return m
}

// NewRecursiveMutex returns a RecursiveMutex bound to the process-wide
// backend.
func NewRecursiveMutex() *RecursiveMutex {
	m := &RecursiveMutex{}
	m.bind(selectBackend(capability.FastLockAvailable(), true))
	return m
}

// bind fixes the backend. Failure to create a portable mutex is fatal: a
// half-initialized lock must never be handed out.
func (m *Mutex) bind(kind Backend) {
	switch kind {
	case BackendPortable, BackendPortableRecursive:
		attr := portableAttrs()[0]
		if kind.Recursive() {
			attr = portableAttrs()[1]
		}
		pm, err := portable.New(attr)
		assert.NoErr(err, "portable mutex init")
		m.portable = pm
	}
	m.kind = kind
	m.tracker.reset()
}

// Backend returns the backend bound at construction.
func (m *Mutex) Backend() Backend {
	return m.kind
}

// Recursive reports whether the holder may lock m again.
func (m *Mutex) Recursive() bool {
	return m.kind.Recursive()
}

// Lock blocks until the calling goroutine owns m.
//
// For a recursive mutex already held by the caller it returns immediately
// with the reentrancy count incremented.
func (m *Mutex) Lock() {
	m.tracker.willLock(m.kind.Recursive())
	switch m.kind {
	case BackendFast:
		m.fast.Lock()
	case BackendRecursiveFast:
		m.rfast.Lock()
	case BackendPortable, BackendPortableRecursive:
		assert.NoErr(m.portable.Lock(), "portable mutex lock")
	default:
		unbound()
	}
	m.tracker.didLock(m.kind.Recursive())
}

// TryLock acquires m if it is available without blocking and reports
// whether it did.
//
// A successful TryLock must be matched by Unlock like a Lock.
func (m *Mutex) TryLock() bool {
	var ok bool
	switch m.kind {
	case BackendFast:
		ok = m.fast.TryLock()
	case BackendRecursiveFast:
		ok = m.rfast.TryLock()
	case BackendPortable, BackendPortableRecursive:
		ok = m.portableTryLock()
	default:
		unbound()
	}
	if ok {
		m.tracker.didLock(m.kind.Recursive())
	}
	return ok
}

func (m *Mutex) portableTryLock() bool {
	err := m.portable.TryLock()
	switch errors.Cause(err) {
	case nil:
		return true
	case portable.ErrBusy:
		return false
	}
	// Treated as acquired: a false here would spin callers that retry.
	assert.Failf(assert.SeverityError, "locking error: %v", err)
	return true
}

// Unlock releases one level of ownership.
//
// Unlocking from a goroutine that does not hold m is undefined for the
// backend; with the lockdebug tag it is a fatal assertion.
func (m *Mutex) Unlock() {
	m.tracker.willUnlock()
	switch m.kind {
	case BackendFast:
		m.fast.Unlock()
	case BackendRecursiveFast:
		m.rfast.Unlock()
	case BackendPortable, BackendPortableRecursive:
		assert.NoErr(m.portable.Unlock(), "portable mutex unlock")
	default:
		unbound()
	}
}

// Destroy releases the resources of the backend. m must be unlocked and
// must not be used afterwards.
func (m *Mutex) Destroy() {
	if m.portable != nil {
		assert.NoErr(m.portable.Destroy(), "portable mutex destroy")
		m.portable = nil
	}
	m.kind = BackendUnbound
	m.tracker.reset()
}

func unbound() {
	assert.Failf(assert.SeverityFatal,
		"mutex used without construction or after Destroy; use NewMutex or NewRecursiveMutex")
}

// Owned is implemented by *Mutex and *RecursiveMutex. It is accepted by the
// ownership assertions.
type Owned interface {
	ownership() *ownershipTracker
}

func (m *Mutex) ownership() *ownershipTracker {
	return &m.tracker
}
