// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"sync"
	"testing"
)

func BenchmarkLockUnlock(b *testing.B) {
	b.Run("sync.Mutex", func(b *testing.B) {
		var mu sync.Mutex
		for i := 0; i < b.N; i++ {
			mu.Lock()
			mu.Unlock()
		}
	})
	for _, kind := range allBackends {
		b.Run(kind.String(), func(b *testing.B) {
			m := newBound(b, kind)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m.Lock()
				m.Unlock()
			}
		})
	}
}

func BenchmarkRecursiveReenter(b *testing.B) {
	for _, kind := range recursiveBackends {
		b.Run(kind.String(), func(b *testing.B) {
			m := newBound(b, kind)
			m.Lock()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				m.Lock()
				m.Unlock()
			}
			b.StopTimer()
			m.Unlock()
		})
	}
}

func BenchmarkContended(b *testing.B) {
	for _, kind := range allBackends {
		b.Run(kind.String(), func(b *testing.B) {
			m := newBound(b, kind)
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					m.Lock()
					m.Unlock()
				}
			})
		})
	}
}
