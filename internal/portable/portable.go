// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package portable implements the always-available lock backend.
//
// It mirrors the contract of a POSIX mutex: a type fixed at initialization
// (normal, error-checking or recursive), every operation reporting an error
// code instead of panicking, and an explicit Destroy. The dualmutex front end
// turns those codes into assertions; this package only reports them.
//
// Blocking and non-blocking acquisition are delegated to a weight-1
// golang.org/x/sync semaphore. Ownership (holder goroutine and recursion
// depth) is tracked here so the error-checking and recursive types can
// detect self-deadlock, foreign unlock and reentry.
package portable

import (
	"context"

	"github.com/pingcap/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/kolkov/dualmutex/internal/goid"
)

// Type is the behavior of a Mutex on reentry and foreign unlock.
type Type int

const (
	// TypeNormal does not detect misuse: relocking from the holder
	// deadlocks, and any goroutine may unlock.
	TypeNormal Type = iota
	// TypeErrorCheck reports relock from the holder (ErrDeadlock) and
	// unlock from a non-holder (ErrNotOwner).
	TypeErrorCheck
	// TypeRecursive lets the holder relock; each Lock needs a matching
	// Unlock. Unlock from a non-holder reports ErrNotOwner.
	TypeRecursive
)

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case TypeNormal:
		return "normal"
	case TypeErrorCheck:
		return "errorcheck"
	case TypeRecursive:
		return "recursive"
	default:
		return "invalid"
	}
}

func (t Type) valid() bool {
	return t >= TypeNormal && t <= TypeRecursive
}

// MaxRecursionDepth bounds how many times a recursive Mutex may be entered.
const MaxRecursionDepth = 1<<31 - 1

// Error codes.
var (
	ErrBusy           = errors.New("portable: mutex is busy")
	ErrDeadlock       = errors.New("portable: relock would deadlock")
	ErrNotOwner       = errors.New("portable: mutex not held by caller")
	ErrNotLocked      = errors.New("portable: mutex is not locked")
	ErrRecursionLimit = errors.New("portable: recursion depth exceeded")
	ErrInvalidAttr    = errors.New("portable: invalid mutex attribute")
	ErrNoResources    = errors.New("portable: insufficient resources to create mutex")
	ErrDestroyed      = errors.New("portable: mutex destroyed")
	ErrFault          = errors.New("portable: backend fault")
)

// Attr configures a Mutex at creation.
type Attr struct {
	typ Type
}

// NewAttr returns attributes for a TypeNormal mutex.
func NewAttr() *Attr {
	return &Attr{typ: TypeNormal}
}

// SetType selects the mutex type.
func (a *Attr) SetType(t Type) error {
	if !t.valid() {
		return errors.Annotatef(ErrInvalidAttr, "mutex type %d", t)
	}
	a.typ = t
	return nil
}

// Type returns the selected mutex type.
func (a *Attr) Type() Type {
	return a.typ
}

// Mutex is a portable mutual exclusion lock. Create it with New.
//
// Thread Safety: all methods are safe for concurrent use. depth is only
// touched by the holder, ordered by the semaphore.
type Mutex struct {
	sem   *semaphore.Weighted
	typ   Type
	owner atomic.Int64
	depth uint32

	destroyed atomic.Bool
}

// New creates a Mutex. A nil attr means TypeNormal.
func New(attr *Attr) (*Mutex, error) {
	typ := TypeNormal
	if attr != nil {
		typ = attr.typ
	}
	if !typ.valid() {
		return nil, errors.Annotatef(ErrInvalidAttr, "mutex type %d", typ)
	}
	if err := fault(FailNew); err != nil {
		return nil, errors.Annotate(ErrNoResources, err.Error())
	}
	return &Mutex{
		sem: semaphore.NewWeighted(1),
		typ: typ,
	}, nil
}

// Type returns the type fixed at creation.
func (m *Mutex) Type() Type {
	return m.typ
}

// Lock blocks until the mutex is acquired.
//
// Errors: ErrDeadlock (TypeErrorCheck relock), ErrRecursionLimit,
// ErrDestroyed.
func (m *Mutex) Lock() error {
	if err := fault(FailLock); err != nil {
		return err
	}
	if m.destroyed.Load() {
		return ErrDestroyed
	}

	me := goid.Get()
	if m.owner.Load() == me {
		switch m.typ {
		case TypeRecursive:
			return m.reenter()
		case TypeErrorCheck:
			return ErrDeadlock
		}
		// TypeNormal falls through and deadlocks, as specified.
	}

	if err := m.sem.Acquire(context.Background(), 1); err != nil {
		return errors.Trace(err)
	}
	m.acquired(me)
	return nil
}

// TryLock acquires the mutex without blocking.
//
// Errors: ErrBusy when another goroutine holds it (or the caller holds a
// non-recursive mutex), ErrRecursionLimit, ErrDestroyed.
func (m *Mutex) TryLock() error {
	if err := fault(FailTryLock); err != nil {
		return err
	}
	if m.destroyed.Load() {
		return ErrDestroyed
	}

	me := goid.Get()
	if m.typ == TypeRecursive && m.owner.Load() == me {
		return m.reenter()
	}
	if !m.sem.TryAcquire(1) {
		return ErrBusy
	}
	m.acquired(me)
	return nil
}

// Unlock releases one level of ownership.
//
// Errors: ErrNotLocked, ErrNotOwner (TypeErrorCheck and TypeRecursive),
// ErrDestroyed.
func (m *Mutex) Unlock() error {
	if err := fault(FailUnlock); err != nil {
		return err
	}
	if m.destroyed.Load() {
		return ErrDestroyed
	}

	owner := m.owner.Load()
	if owner == goid.None {
		return ErrNotLocked
	}
	if m.typ != TypeNormal && owner != goid.Get() {
		return ErrNotOwner
	}

	if m.depth > 1 {
		m.depth--
		return nil
	}
	m.depth = 0
	m.owner.Store(goid.None)
	m.sem.Release(1)
	return nil
}

// Destroy releases the mutex. A destroyed Mutex rejects every operation
// with ErrDestroyed.
//
// Errors: ErrBusy while the mutex is held, ErrDestroyed on a second call.
func (m *Mutex) Destroy() error {
	if m.owner.Load() != goid.None {
		return ErrBusy
	}
	if !m.destroyed.CompareAndSwap(false, true) {
		return ErrDestroyed
	}
	return nil
}

// Depth returns the current recursion depth, 0 when unlocked. Only
// meaningful to the holder.
func (m *Mutex) Depth() uint32 {
	if m.owner.Load() != goid.Get() {
		return 0
	}
	return m.depth
}

func (m *Mutex) reenter() error {
	if m.depth >= MaxRecursionDepth {
		return ErrRecursionLimit
	}
	m.depth++
	return nil
}

func (m *Mutex) acquired(me int64) {
	m.owner.Store(me)
	m.depth = 1
}
