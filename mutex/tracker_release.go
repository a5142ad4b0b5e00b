// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !lockdebug

package mutex

// TrackingEnabled reports whether the ownership tracker is compiled in.
const TrackingEnabled = false

// ownershipTracker is empty without the lockdebug tag. Its methods inline
// to nothing.
type ownershipTracker struct{}

func (*ownershipTracker) reset()        {}
func (*ownershipTracker) willLock(bool) {}
func (*ownershipTracker) didLock(bool)  {}
func (*ownershipTracker) willUnlock()   {}

// AssertLocked is a no-op without the lockdebug tag.
func AssertLocked(Owned) {}

// AssertUnlocked is a no-op without the lockdebug tag.
func AssertUnlocked(Owned) {}
