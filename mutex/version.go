// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import "github.com/kolkov/dualmutex/internal/capability"

// Version information.
const (
	// Version is the current version of the module.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info describes the lock configuration of the running process.
type Info struct {
	// Version is the module version string.
	Version string

	// FastLock is the process-wide capability decision.
	FastLock bool

	// MutexBackend is the backend every NewMutex binds.
	MutexBackend Backend

	// RecursiveBackend is the backend every NewRecursiveMutex binds.
	RecursiveBackend Backend

	// TrackingEnabled reports whether the ownership tracker is compiled in.
	TrackingEnabled bool
}

// GetInfo returns the lock configuration of the process. Calling it makes
// the capability decision if no mutex has been constructed yet.
//
// Example:
//
//	info := mutex.GetInfo()
//	fmt.Printf("dualmutex %s: %s / %s\n", info.Version, info.MutexBackend, info.RecursiveBackend)
func GetInfo() Info {
	fast := capability.FastLockAvailable()
	return Info{
		Version:          Version,
		FastLock:         fast,
		MutexBackend:     selectBackend(fast, false),
		RecursiveBackend: selectBackend(fast, true),
		TrackingEnabled:  TrackingEnabled,
	}
}
