// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"sync"
	"testing"
	"time"

	"github.com/pingcap/failpoint"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/kolkov/dualmutex/internal/assert"
	"github.com/kolkov/dualmutex/internal/capability"
	"github.com/kolkov/dualmutex/internal/config"
	"github.com/kolkov/dualmutex/internal/portable"
)

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		fast, recursive bool
		want            Backend
	}{
		{true, false, BackendFast},
		{true, true, BackendRecursiveFast},
		{false, false, BackendPortable},
		{false, true, BackendPortableRecursive},
	}
	for _, tt := range tests {
		got := selectBackend(tt.fast, tt.recursive)
		require.Equal(t, tt.want, got)
		require.Equal(t, tt.recursive, got.Recursive())
	}
}

func TestBackendString(t *testing.T) {
	require.Equal(t, "unbound", BackendUnbound.String())
	require.Equal(t, "fast", BackendFast.String())
	require.Equal(t, "recursive-fast", BackendRecursiveFast.String())
	require.Equal(t, "portable", BackendPortable.String())
	require.Equal(t, "portable-recursive", BackendPortableRecursive.String())
	require.Equal(t, "unknown", Backend(99).String())
}

// TestSelectionHappensOnce verifies that mutexes built before and after a
// change of the fast-lock experiment agree on the backend.
func TestSelectionHappensOnce(t *testing.T) {
	before := NewMutex()
	rbefore := NewRecursiveMutex()
	require.False(t, before.Recursive())
	require.True(t, rbefore.Recursive())

	fast := capability.FastLockAvailable()
	prev := config.Set(&config.Config{Experiments: map[config.Experiment]bool{
		config.ExperimentFastLock: !fast,
	}})
	defer config.Set(prev)

	after := NewMutex()
	rafter := NewRecursiveMutex()
	require.Equal(t, before.Backend(), after.Backend())
	require.Equal(t, rbefore.Backend(), rafter.Backend())
	require.Equal(t, selectBackend(fast, false), after.Backend())
	require.Equal(t, selectBackend(fast, true), rafter.Backend())

	info := GetInfo()
	require.Equal(t, Version, info.Version)
	require.Equal(t, fast, info.FastLock)
	require.Equal(t, after.Backend(), info.MutexBackend)
	require.Equal(t, rafter.Backend(), info.RecursiveBackend)
	require.Equal(t, TrackingEnabled, info.TrackingEnabled)
}

func TestMutualExclusion(t *testing.T) {
	const (
		goroutines = 8
		iterations = 1000
	)
	forBackends(t, allBackends, func(t *testing.T, m *Mutex) {
		var (
			wg         sync.WaitGroup
			inside     atomic.Int32
			violations atomic.Int32
			total      int
		)
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < iterations; i++ {
					m.Lock()
					if inside.Inc() != 1 {
						violations.Inc()
					}
					total++
					inside.Dec()
					m.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Zero(t, violations.Load())
		require.Equal(t, goroutines*iterations, total)
	})
}

func TestTryLockMutualExclusion(t *testing.T) {
	const goroutines = 8
	forBackends(t, allBackends, func(t *testing.T, m *Mutex) {
		var (
			wg         sync.WaitGroup
			inside     atomic.Int32
			violations atomic.Int32
			acquired   atomic.Int32
		)
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					if !m.TryLock() {
						continue
					}
					acquired.Inc()
					if inside.Inc() != 1 {
						violations.Inc()
					}
					inside.Dec()
					m.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Zero(t, violations.Load())
		require.Positive(t, acquired.Load())
	})
}

func TestTryLockOnUnlocked(t *testing.T) {
	forBackends(t, allBackends, func(t *testing.T, m *Mutex) {
		require.True(t, m.TryLock())
		require.False(t, tryLockElsewhere(m), "held until the matching Unlock")
		m.Unlock()
		require.True(t, tryLockElsewhere(m))
	})
}

// TestTryLockDoesNotBlock verifies TryLock on a mutex held elsewhere returns
// false promptly.
func TestTryLockDoesNotBlock(t *testing.T) {
	forBackends(t, nonRecursiveBackends, func(t *testing.T, m *Mutex) {
		holding := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			m.Lock()
			close(holding)
			<-release
			m.Unlock()
		}()
		<-holding

		result := make(chan bool, 1)
		go func() { result <- m.TryLock() }()
		select {
		case ok := <-result:
			require.False(t, ok)
		case <-time.After(5 * time.Second):
			t.Fatal("TryLock blocked")
		}

		close(release)
		<-done
	})
}

// TestHandOff: T1 locks, T2's TryLock fails; T1 unlocks, T2's TryLock
// succeeds.
func TestHandOff(t *testing.T) {
	forBackends(t, nonRecursiveBackends, func(t *testing.T, m *Mutex) {
		m.Lock()
		require.False(t, tryLockElsewhere(m))
		m.Unlock()
		require.True(t, tryLockElsewhere(m))
	})
}

// TestRecursiveHandOff: T1 locks twice, unlocks once and still excludes T2;
// after the second unlock T2 gets in.
func TestRecursiveHandOff(t *testing.T) {
	forBackends(t, recursiveBackends, func(t *testing.T, m *Mutex) {
		m.Lock()
		m.Lock()
		require.True(t, m.TryLock())

		m.Unlock()
		m.Unlock()
		require.False(t, tryLockElsewhere(m))

		m.Unlock()
		require.True(t, tryLockElsewhere(m))
	})
}

// TestRecursiveReleasesOnNthUnlock verifies a blocked Lock on another
// goroutine succeeds only after the holder's last Unlock.
func TestRecursiveReleasesOnNthUnlock(t *testing.T) {
	const depth = 5
	forBackends(t, recursiveBackends, func(t *testing.T, m *Mutex) {
		for i := 0; i < depth; i++ {
			m.Lock()
		}

		var unlocks atomic.Int32
		seen := make(chan int32, 1)
		go func() {
			m.Lock()
			seen <- unlocks.Load()
			m.Unlock()
		}()

		for i := 0; i < depth; i++ {
			select {
			case n := <-seen:
				t.Fatalf("other goroutine acquired after %d of %d unlocks", n, depth)
			case <-time.After(blockCheck):
			}
			unlocks.Inc()
			m.Unlock()
		}
		require.EqualValues(t, depth, <-seen)
	})
}

func TestNonRecursiveLockBlocks(t *testing.T) {
	forBackends(t, nonRecursiveBackends, func(t *testing.T, m *Mutex) {
		m.Lock()
		acquired := make(chan struct{})
		go func() {
			m.Lock()
			close(acquired)
			m.Unlock()
		}()
		select {
		case <-acquired:
			t.Fatal("Lock returned while the mutex was held")
		case <-time.After(blockCheck):
		}
		m.Unlock()
		<-acquired
	})
}

func TestRecursiveMutexType(t *testing.T) {
	r := NewRecursiveMutex()
	require.True(t, r.Recursive())
	r.Lock()
	r.Lock()
	r.Unlock()
	r.Unlock()
	require.True(t, tryLockElsewhere(r))
}

func TestUnboundIsFatal(t *testing.T) {
	rec := recordFailures(t)

	var m Mutex
	require.Equal(t, BackendUnbound, m.Backend())
	requireFatal(t, m.Lock)
	requireFatal(t, func() { m.TryLock() })
	require.Equal(t, 2, rec.Len())
}

func TestDestroy(t *testing.T) {
	forBackends(t, allBackends, func(t *testing.T, m *Mutex) {
		rec := recordFailures(t)
		m.Lock()
		m.Unlock()
		m.Destroy()
		require.Equal(t, BackendUnbound, m.Backend())
		require.Nil(t, m.portable)

		requireFatal(t, m.Lock)
		require.Equal(t, 1, rec.Len())
	})
}

func TestDestroyWhileLockedIsFatal(t *testing.T) {
	rec := recordFailures(t)
	m := newBound(t, BackendPortable)
	m.Lock()

	f := requireFatal(t, m.Destroy)
	require.Contains(t, f.Message, "portable mutex destroy")
	require.Equal(t, 1, rec.Len())

	// Destroy failed, the lock is intact.
	m.Unlock()
	m.Destroy()
}

func TestPortableInitFailureIsFatal(t *testing.T) {
	rec := recordFailures(t)
	defer portable.ArmFaults()()
	require.NoError(t, failpoint.Enable(portable.FailNew, "return(true)"))
	defer func() { require.NoError(t, failpoint.Disable(portable.FailNew)) }()

	m := &Mutex{}
	f := requireFatal(t, func() { m.bind(BackendPortable) })
	require.Contains(t, f.Message, "portable mutex init")
	require.Equal(t, BackendUnbound, m.Backend())
	require.Equal(t, 1, rec.Len())
}

func TestPortableLockFailureIsFatal(t *testing.T) {
	rec := recordFailures(t)
	m := newBound(t, BackendPortable)

	defer portable.ArmFaults()()
	require.NoError(t, failpoint.Enable(portable.FailLock, "return(true)"))
	defer func() { require.NoError(t, failpoint.Disable(portable.FailLock)) }()

	f := requireFatal(t, m.Lock)
	require.Contains(t, f.Message, "portable mutex lock")
	require.Equal(t, 1, rec.Len())
}

// TestPortableTryLockFailsOpen verifies an unexpected TryLock error is
// reported and treated as an acquisition.
func TestPortableTryLockFailsOpen(t *testing.T) {
	rec := recordFailures(t)
	m := newBound(t, BackendPortable)

	defer portable.ArmFaults()()
	require.NoError(t, failpoint.Enable(portable.FailTryLock, `return("EINVAL")`))
	defer func() { require.NoError(t, failpoint.Disable(portable.FailTryLock)) }()

	require.True(t, m.TryLock())
	failures := rec.Failures()
	require.Len(t, failures, 1)
	require.Equal(t, assert.SeverityError, failures[0].Severity)
	require.Contains(t, failures[0].Message, "locking error")
	require.Contains(t, failures[0].Message, "EINVAL")
}

func TestPortableBusyIsNotReported(t *testing.T) {
	rec := recordFailures(t)
	m := newBound(t, BackendPortable)
	m.Lock()
	require.False(t, tryLockElsewhere(m))
	m.Unlock()
	require.Zero(t, rec.Len())
}
