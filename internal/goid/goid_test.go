// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseGID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"running", "goroutine 123 [running]:\nmain.main()", 123},
		{"single digit", "goroutine 1 [running]:", 1},
		{"no status", "goroutine 42", 42},
		{"wrong prefix", "thread 7 [running]:", 0},
		{"too short", "gorout", 0},
		{"empty", "", 0},
		{"no digits", "goroutine [running]:", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, parseGID([]byte(tt.in)))
		})
	}
}

func TestGetMatchesStack(t *testing.T) {
	require.Positive(t, Get())
	require.Equal(t, Slow(), Get())
}

// TestGetDistinctPerGoroutine verifies that concurrently running goroutines
// never observe the same ID.
func TestGetDistinctPerGoroutine(t *testing.T) {
	const n = 32

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		seen    = make(map[int64]struct{}, n)
		release = make(chan struct{})
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := Get()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
			// Keep every goroutine alive until all IDs are collected.
			<-release
		}()
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == n
	}, testTimeout, testTick)
	close(release)
	wg.Wait()

	_, hasNone := seen[None]
	require.False(t, hasNone)
}

func BenchmarkGet(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Get()
	}
}

func BenchmarkSlow(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Slow()
	}
}
