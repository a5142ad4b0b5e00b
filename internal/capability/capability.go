// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package capability decides, once per process, which backend every mutex
// uses.
//
// The fast backend is eligible only if the platform supports it AND the
// fast-lock experiment is enabled. The decision is taken on first use and
// never revisited, so no two mutexes in a process can disagree about it, even
// if the configuration changes afterwards.
package capability

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kolkov/dualmutex/internal/config"
	"github.com/kolkov/dualmutex/internal/logutil"
	"github.com/kolkov/dualmutex/internal/platform"
)

// Selector evaluates the fast-lock capability exactly once.
//
// Thread Safety: FastLockAvailable may be called concurrently; concurrent
// first callers block until the single evaluation finishes and all observe
// its result.
type Selector struct {
	once sync.Once
	fast atomic.Bool

	platformOK   func() bool
	experimentOn func(config.Experiment) bool
}

// NewSelector returns a Selector consulting the given capability queries.
// Neither query runs before the first FastLockAvailable call.
func NewSelector(platformOK func() bool, experimentOn func(config.Experiment) bool) *Selector {
	return &Selector{
		platformOK:   platformOK,
		experimentOn: experimentOn,
	}
}

// FastLockAvailable reports whether the fast backend was selected.
//
// Performance: one atomic load after the first call.
func (s *Selector) FastLockAvailable() bool {
	s.once.Do(s.resolve)
	return s.fast.Load()
}

func (s *Selector) resolve() {
	platformOK := s.platformOK()
	// The experiment is only consulted on capable platforms so its
	// activation is recorded only where it actually gates behavior.
	experimentOn := platformOK && s.experimentOn(config.ExperimentFastLock)
	s.fast.Store(platformOK && experimentOn)

	logutil.ComponentLogger("capability").Debug("mutex backend selected",
		zap.Bool("platform-supported", platformOK),
		zap.Bool("experiment-enabled", experimentOn),
		zap.Bool("fast-lock", s.fast.Load()))
}

var defaultSelector = NewSelector(platform.FastLockSupported, config.Activate)

// Default returns the process-wide selector.
func Default() *Selector {
	return defaultSelector
}

// FastLockAvailable reports the process-wide decision.
func FastLockAvailable() bool {
	return defaultSelector.FastLockAvailable()
}
