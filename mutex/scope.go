// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"runtime"
	"sync"
)

// Locker is the contract every scoped helper is written against.
type Locker interface {
	Lock()
	Unlock()
	TryLock() bool
}

var (
	_ Locker = (*Mutex)(nil)
	_ Locker = (*RecursiveMutex)(nil)
	_ Locker = (*sync.Mutex)(nil)
)

// Scope locks l and returns the function that unlocks it. It is the owning
// scoped acquisition: the returned function keeps l reachable until it runs,
// so an object whose finalizer destroys its lock cannot be collected while
// the scope is open.
//
//	defer mutex.Scope(obj.mu)()
//
// The returned function must be called exactly once.
func Scope(l Locker) (release func()) {
	l.Lock()
	return func() {
		l.Unlock()
		runtime.KeepAlive(l)
	}
}

// Guard is the non-owning scoped acquisition. It adds no lifetime guarantee:
// the caller ensures the lock outlives the scope. A Guard is a plain value
// and does not allocate.
//
//	g := mutex.Acquire(mu)
//	defer g.Release()
type Guard[L Locker] struct {
	l    L
	held bool
}

// Acquire locks l and returns a Guard holding it.
func Acquire[L Locker](l L) Guard[L] {
	l.Lock()
	return Guard[L]{l: l, held: true}
}

// TryAcquire attempts to lock l without blocking. The Guard is only held if
// ok is true; releasing an unheld Guard does nothing.
func TryAcquire[L Locker](l L) (g Guard[L], ok bool) {
	if !l.TryLock() {
		return Guard[L]{l: l}, false
	}
	return Guard[L]{l: l, held: true}, true
}

// Held reports whether g still holds its lock.
func (g *Guard[L]) Held() bool {
	return g.held
}

// Release unlocks the lock if g still holds it. It is safe to call more than
// once, which lets a function release early and keep the deferred call.
func (g *Guard[L]) Release() {
	if !g.held {
		return
	}
	g.held = false
	g.l.Unlock()
}

// With runs fn while holding l. l is released on every exit path, including
// a panic in fn.
func With(l Locker, fn func()) {
	defer Scope(l)()
	fn()
}

// WithValue runs fn while holding l and returns its result.
func WithValue[T any](l Locker, fn func() T) T {
	defer Scope(l)()
	return fn()
}

// TryWith runs fn while holding l if l can be acquired without blocking,
// and reports whether fn ran.
func TryWith(l Locker, fn func()) bool {
	g, ok := TryAcquire(l)
	if !ok {
		return false
	}
	defer g.Release()
	fn()
	return true
}

// Unlocked temporarily releases l, which the caller holds, runs fn, and
// reacquires l on every exit path from fn.
//
// For a recursive lock only one level is released.
func Unlocked(l Locker, fn func()) {
	l.Unlock()
	defer l.Lock()
	fn()
}

// CompareAndSet stores v into *dst while holding l, unless *dst already
// equals v. It reports whether *dst changed.
func CompareAndSet[T comparable](l Locker, dst *T, v T) bool {
	defer Scope(l)()
	if *dst == v {
		return false
	}
	*dst = v
	return true
}
