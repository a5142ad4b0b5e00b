// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stress drives a contention workload against the mutex package and
// verifies mutual exclusion while it runs.
//
// Every worker repeatedly acquires a shared mutex, enters a critical section
// that counts how many goroutines are inside it, bumps a plain shared
// counter and leaves. A critical section ever seeing more than one occupant,
// or a final counter short of Goroutines*Iterations, is a violation.
package stress

import (
	"context"
	"io"
	"runtime"
	"time"

	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/dualmutex/internal/logutil"
	"github.com/kolkov/dualmutex/mutex"
)

// Options configures a workload.
type Options struct {
	// Goroutines is the number of concurrent workers.
	Goroutines int
	// Iterations is the number of critical sections each worker enters.
	Iterations int
	// Recursive uses a RecursiveMutex.
	Recursive bool
	// Depth is how many times a worker locks per critical section. Values
	// above 1 need Recursive.
	Depth int
	// UseTryLock acquires with a TryLock spin instead of Lock.
	UseTryLock bool
}

// DefaultOptions returns a small workload.
func DefaultOptions() Options {
	return Options{
		Goroutines: runtime.GOMAXPROCS(0) * 2,
		Iterations: 10000,
		Depth:      1,
	}
}

// Validate checks that o describes a runnable workload.
func (o *Options) Validate() error {
	switch {
	case o.Goroutines < 1:
		return errors.Errorf("goroutines must be positive, got %d", o.Goroutines)
	case o.Iterations < 1:
		return errors.Errorf("iterations must be positive, got %d", o.Iterations)
	case o.Depth < 1:
		return errors.Errorf("depth must be positive, got %d", o.Depth)
	case o.Depth > 1 && !o.Recursive:
		return errors.Errorf("depth %d needs a recursive mutex", o.Depth)
	}
	return nil
}

// Result summarizes a finished workload.
type Result struct {
	Backend       mutex.Backend
	Acquisitions  uint64
	TryLockMisses uint64
	// Violations counts critical sections entered while another goroutine
	// was inside, plus lost counter updates.
	Violations uint64
	Elapsed    time.Duration
}

// OK reports whether mutual exclusion held for the whole run.
func (r *Result) OK() bool {
	return r.Violations == 0
}

type metrics struct {
	wait         prometheus.Histogram
	acquisitions prometheus.Counter
	misses       prometheus.Counter
	violations   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, backend mutex.Backend) *metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"backend": backend.String()}
	return &metrics{
		wait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "dualmutex",
			Subsystem:   "stress",
			Name:        "lock_wait_seconds",
			Help:        "Bucketed histogram of the time spent acquiring the mutex.",
			Buckets:     prometheus.ExponentialBuckets(0.000001, 2, 24),
			ConstLabels: labels,
		}),
		acquisitions: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "dualmutex",
			Subsystem:   "stress",
			Name:        "acquisitions_total",
			Help:        "Counter of critical sections entered.",
			ConstLabels: labels,
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "dualmutex",
			Subsystem:   "stress",
			Name:        "trylock_misses_total",
			Help:        "Counter of TryLock calls that found the mutex held.",
			ConstLabels: labels,
		}),
		violations: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "dualmutex",
			Subsystem:   "stress",
			Name:        "exclusion_violations_total",
			Help:        "Counter of mutual exclusion violations.",
			ConstLabels: labels,
		}),
	}
}

// Run executes the workload described by opts. Metrics are registered with
// reg, which may be nil.
//
// Run returns an error for invalid options or when ctx ends before the
// workload does. A violation is not an error; check Result.OK.
func Run(ctx context.Context, opts Options, reg prometheus.Registerer) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var mu *mutex.Mutex
	if opts.Recursive {
		mu = &mutex.NewRecursiveMutex().Mutex
	} else {
		mu = mutex.NewMutex()
	}
	defer mu.Destroy()

	w := &workload{
		opts: opts,
		mu:   mu,
		m:    newMetrics(reg, mu.Backend()),
	}
	start := time.Now()
	eg, ectx := errgroup.WithContext(ctx)
	for g := 0; g < opts.Goroutines; g++ {
		eg.Go(func() error {
			return w.worker(ectx)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Trace(err)
	}

	res := &Result{
		Backend:       mu.Backend(),
		Acquisitions:  w.acquisitions.Load(),
		TryLockMisses: w.misses.Load(),
		Violations:    w.violations.Load(),
		Elapsed:       time.Since(start),
	}
	if lost := opts.Goroutines*opts.Iterations - w.shared; lost > 0 {
		res.Violations += uint64(lost)
		w.m.violations.Add(float64(lost))
	}

	logger := logutil.ComponentLogger("stress")
	fields := []zap.Field{
		zap.Stringer("backend", res.Backend),
		zap.Int("goroutines", opts.Goroutines),
		zap.Int("iterations", opts.Iterations),
		zap.Int("depth", opts.Depth),
		zap.Uint64("acquisitions", res.Acquisitions),
		zap.Uint64("trylock-misses", res.TryLockMisses),
		zap.Duration("elapsed", res.Elapsed),
	}
	if res.OK() {
		logger.Info("stress run finished", fields...)
	} else {
		logger.Error("mutual exclusion violated", append(fields, zap.Uint64("violations", res.Violations))...)
	}
	return res, nil
}

type workload struct {
	opts Options
	mu   *mutex.Mutex
	m    *metrics

	inside       atomic.Int32
	acquisitions atomic.Uint64
	misses       atomic.Uint64
	violations   atomic.Uint64

	// shared is only touched inside the critical section.
	shared int
}

func (w *workload) worker(ctx context.Context) error {
	for i := 0; i < w.opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.acquire(ctx); err != nil {
			return err
		}
		for d := 1; d < w.opts.Depth; d++ {
			w.mu.Lock()
		}

		if w.inside.Inc() != 1 {
			w.violations.Inc()
			w.m.violations.Inc()
		}
		w.shared++
		w.inside.Dec()

		for d := 0; d < w.opts.Depth; d++ {
			w.mu.Unlock()
		}
		w.acquisitions.Inc()
		w.m.acquisitions.Inc()
	}
	return nil
}

func (w *workload) acquire(ctx context.Context) error {
	start := time.Now()
	if !w.opts.UseTryLock {
		w.mu.Lock()
		w.m.wait.Observe(time.Since(start).Seconds())
		return nil
	}
	for !w.mu.TryLock() {
		w.misses.Inc()
		w.m.misses.Inc()
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	w.m.wait.Observe(time.Since(start).Seconds())
	return nil
}

// WriteMetrics writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Trace(err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
