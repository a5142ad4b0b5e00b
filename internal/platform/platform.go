// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform answers whether the running platform can host the fast
// lock backend.
//
// The fast backend relies on sync.Mutex.TryLock, which first shipped in
// go1.18. A binary built with an older toolchain would not link, but the
// version is still checked at run time: the capability selector treats the
// platform like any other external capability and the check keeps the
// decision explicit in the logs.
package platform

import (
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// MinimumGoVersion is the oldest Go runtime the fast backend supports.
const MinimumGoVersion = "go1.18"

// FastLockSupported reports whether the running Go runtime meets
// MinimumGoVersion.
func FastLockSupported() bool {
	return VersionAtLeast(runtime.Version(), MinimumGoVersion)
}

// VersionAtLeast reports whether the Go version string running is at least
// minimum. Both take the form returned by runtime.Version ("go1.22.3").
//
// Development builds ("devel go1.23-abcdef ...") are assumed to be recent.
// Unparseable versions are assumed not to qualify.
func VersionAtLeast(running, minimum string) bool {
	if strings.HasPrefix(running, "devel") {
		return true
	}
	r, m := toSemver(running), toSemver(minimum)
	if r == "" || m == "" {
		return false
	}
	return semver.Compare(r, m) >= 0
}

// toSemver converts a Go release name to semantic version syntax:
//
//	go1.21        -> v1.21.0
//	go1.21.3      -> v1.21.3
//	go1.22rc1     -> v1.22.0-rc1
//	go1.20beta2   -> v1.20.0-beta2
//	go1.22.3 X:nocoverageredesign -> v1.22.3
//
// It returns "" when the input is not a Go release name.
func toSemver(v string) string {
	if i := strings.IndexByte(v, ' '); i >= 0 {
		v = v[:i]
	}
	v, ok := strings.CutPrefix(v, "go")
	if !ok {
		return ""
	}

	var pre string
	for _, tag := range []string{"rc", "beta", "alpha"} {
		if i := strings.Index(v, tag); i >= 0 {
			v, pre = v[:i], "-"+v[i:]
			break
		}
	}

	switch strings.Count(v, ".") {
	case 0:
		v += ".0.0"
	case 1:
		v += ".0"
	}

	sv := "v" + v + pre
	if !semver.IsValid(sv) {
		return ""
	}
	return sv
}

// Info describes the running platform.
type Info struct {
	GoVersion     string
	GOOS          string
	GOARCH        string
	KernelRelease string
	NumCPU        int
}

// Describe returns information about the running platform.
func Describe() Info {
	return Info{
		GoVersion:     runtime.Version(),
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
		KernelRelease: kernelRelease(),
		NumCPU:        runtime.NumCPU(),
	}
}
