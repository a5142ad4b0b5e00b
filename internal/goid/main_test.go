// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package goid

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

const (
	testTimeout = 5 * time.Second
	testTick    = time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
