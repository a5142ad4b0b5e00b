// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !dualmutex_stackgoid

package goid

import "github.com/petermattis/goid"

func get() int64 {
	return goid.Get()
}
