// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package portable

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"go.uber.org/atomic"
)

// Failpoints simulating backend faults. Enable them with failpoint.Enable
// after ArmFaults, e.g.
//
//	defer portable.ArmFaults()()
//	failpoint.Enable(portable.FailTryLock, `return("EINVAL")`)
const (
	failpointPrefix = "github.com/kolkov/dualmutex/internal/portable/"

	FailNew     = failpointPrefix + "newError"
	FailLock    = failpointPrefix + "lockError"
	FailTryLock = failpointPrefix + "tryLockError"
	FailUnlock  = failpointPrefix + "unlockError"
)

// armed keeps the failpoint registry off the lock hot path unless a test
// asked for faults.
var armed atomic.Bool

// ArmFaults makes the backend consult its failpoints and returns the
// function that disarms them.
func ArmFaults() (disarm func()) {
	armed.Store(true)
	return func() { armed.Store(false) }
}

func fault(name string) error {
	if !armed.Load() {
		return nil
	}
	if val, err := failpoint.Eval(name); err == nil {
		return errors.Annotatef(ErrFault, "injected %v", val)
	}
	return nil
}
