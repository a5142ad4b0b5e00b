// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package assert

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kolkov/dualmutex/internal/logutil"
)

// logReporter is the default reporter. It writes to the structured logger.
//
// Error-severity failures repeat at the same call site (a TryLock loop hitting
// the same backend error) so only the first occurrence per stack is logged.
type logReporter struct{}

func newLogReporter() Reporter {
	return logReporter{}
}

func (logReporter) Report(f *Failure) {
	lg := logutil.ComponentLogger("assert")
	fields := []zap.Field{
		zap.String("severity", f.Severity.String()),
		zap.Int64("goroutine", f.GoroutineID),
	}

	switch f.Severity {
	case SeverityWarning:
		lg.Warn(f.Message, fields...)
	case SeverityError:
		if !f.FirstAtSite {
			return
		}
		lg.Error(f.Message, append(fields, zap.String("stack", f.Stack()))...)
	default:
		lg.Error(f.Message, append(fields, zap.String("stack", f.Stack()))...)
	}
}

// Recorder collects failures in memory. Install it with SetReporter in tests
// that provoke failures on purpose.
type Recorder struct {
	mu       sync.Mutex
	failures []*Failure
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report implements Reporter.
func (r *Recorder) Report(f *Failure) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

// Failures returns a copy of everything recorded so far.
func (r *Recorder) Failures() []*Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Failure(nil), r.failures...)
}

// Len returns the number of recorded failures.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

// Reset drops all recorded failures.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.failures = nil
	r.mu.Unlock()
}
