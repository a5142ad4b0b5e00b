// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stackdepot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:noinline
func captureHere() (uint64, bool) {
	return Capture(0)
}

func TestCaptureDeduplicates(t *testing.T) {
	Reset()

	var hashes [2]uint64
	var firsts [2]bool
	for i := range hashes {
		// Same call site both iterations.
		hashes[i], firsts[i] = captureHere()
	}

	require.NotZero(t, hashes[0])
	require.Equal(t, hashes[0], hashes[1])
	require.True(t, firsts[0])
	require.False(t, firsts[1])
	require.Equal(t, 1, Len())
}

func TestCaptureDistinctSites(t *testing.T) {
	Reset()

	h1, _ := captureHere()
	h2, _ := Capture(0)
	require.NotEqual(t, h1, h2)
	require.Equal(t, 2, Len())
}

func TestFormat(t *testing.T) {
	Reset()

	hash, _ := captureHere()
	st := Get(hash)
	require.NotNil(t, st)
	require.Positive(t, st.Frames())

	out := st.Format()
	require.Contains(t, out, "stackdepot.captureHere()")
	require.Contains(t, out, "stackdepot_test.go:")
	require.False(t, strings.Contains(out, "runtime.Callers"))
}

func TestGetUnknown(t *testing.T) {
	require.Nil(t, Get(0))
	require.Nil(t, Get(0xdeadbeef))

	var st *StackTrace
	require.Equal(t, "  <unknown>\n", st.Format())
	require.Zero(t, st.Frames())
}
