// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package assert is the failure-reporting hook shared by every lock in the
// module.
//
// Failures come in three severities:
//
//   - SeverityWarning: informational, execution continues.
//   - SeverityError: a defensive check fired (an operation that should only
//     ever succeed returned something else). The report is emitted and the
//     caller continues conservatively.
//   - SeverityFatal: a configuration error or a locking-contract violation.
//     The report is emitted and then the calling goroutine panics with the
//     *Failure, so the stack trace identifies the exact misuse.
//
// The checks in this package are never compiled out. Only the callers decide
// (through build tags) whether a check exists at all.
package assert

import (
	"fmt"
	"strings"

	"go.uber.org/atomic"

	"github.com/kolkov/dualmutex/internal/goid"
	"github.com/kolkov/dualmutex/internal/stackdepot"
)

// Severity classifies a failure.
type Severity int

const (
	// SeverityWarning is informational.
	SeverityWarning Severity = iota
	// SeverityError marks a defensive check that should be unreachable.
	SeverityError
	// SeverityFatal marks a failure after which the caller must not continue.
	SeverityFatal
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Failure is a single reported failure.
type Failure struct {
	Severity Severity
	Message  string

	// GoroutineID is the goroutine that detected the failure.
	GoroutineID int64

	// StackHash references the call stack in the stack depot.
	StackHash uint64

	// FirstAtSite is true the first time a failure is reported from this
	// exact call stack.
	FirstAtSite bool
}

// Error implements error so a Failure can be recovered and inspected.
func (f *Failure) Error() string {
	return f.Message
}

// Stack returns the formatted call stack of the failure.
func (f *Failure) Stack() string {
	return stackdepot.Get(f.StackHash).Format()
}

// String renders the full report:
//
//	==================
//	WARNING: LOCK ASSERTION FAILED (fatal)
//	unlock of a mutex not held by goroutine 7
//	Goroutine 7:
//	  main.worker()
//	      /path/to/main.go:45
//	==================
func (f *Failure) String() string {
	var b strings.Builder
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "WARNING: LOCK ASSERTION FAILED (%s)\n", f.Severity)
	b.WriteString(f.Message)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Goroutine %d:\n", f.GoroutineID)
	b.WriteString(f.Stack())
	b.WriteString("==================\n")
	return b.String()
}

// Reporter receives failures.
//
// Report is called on the goroutine that detected the failure, before any
// panic for SeverityFatal. Implementations must be safe for concurrent use
// and must not lock any dualmutex lock.
type Reporter interface {
	Report(f *Failure)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(f *Failure)

// Report calls fn(f).
func (fn ReporterFunc) Report(f *Failure) {
	fn(f)
}

type reporterHolder struct {
	r Reporter
}

var (
	current atomic.Pointer[reporterHolder]
	counts  [SeverityFatal + 1]atomic.Uint64
)

func init() {
	current.Store(&reporterHolder{r: newLogReporter()})
}

// SetReporter installs r as the process-wide reporter and returns a function
// that restores the previous one.
func SetReporter(r Reporter) (restore func()) {
	prev := current.Swap(&reporterHolder{r: r})
	return func() {
		current.Store(prev)
	}
}

// Count returns how many failures of the given severity were reported since
// process start.
func Count(sev Severity) uint64 {
	if sev < SeverityWarning || sev > SeverityFatal {
		return 0
	}
	return counts[sev].Load()
}

// Failf reports a failure. For SeverityFatal it panics with the *Failure
// after the reporter returns.
func Failf(sev Severity, format string, args ...any) {
	report(sev, fmt.Sprintf(format, args...))
}

// True reports a SeverityFatal failure when cond is false. The message is
// only formatted on failure.
func True(cond bool, format string, args ...any) {
	if cond {
		return
	}
	report(SeverityFatal, fmt.Sprintf(format, args...))
}

// NoErr reports a SeverityFatal failure when err is non-nil. op names the
// operation that was expected to succeed.
//
// The operation itself is always evaluated by the caller; only the check
// lives here.
func NoErr(err error, op string) {
	if err == nil {
		return
	}
	report(SeverityFatal, fmt.Sprintf("expected %s to succeed, got: %v", op, err))
}

func report(sev Severity, msg string) {
	hash, first := stackdepot.Capture(1)
	f := &Failure{
		Severity:    sev,
		Message:     msg,
		GoroutineID: goid.Get(),
		StackHash:   hash,
		FirstAtSite: first,
	}
	if sev >= SeverityWarning && sev <= SeverityFatal {
		counts[sev].Inc()
	}

	current.Load().r.Report(f)

	if sev == SeverityFatal {
		panic(f)
	}
}
