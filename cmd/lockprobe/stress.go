// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kolkov/dualmutex/internal/stress"
)

const (
	flagGoroutines = "goroutines"
	flagIterations = "iterations"
	flagRecursive  = "recursive"
	flagDepth      = "depth"
	flagTryLock    = "trylock"
	flagMetrics    = "metrics"
)

func newStressCommand() *cobra.Command {
	def := stress.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a contention workload and verify mutual exclusion",
		Args:  cobra.NoArgs,
		RunE:  runStress,
	}
	cmd.Flags().IntP(flagGoroutines, "g", def.Goroutines, "number of concurrent workers")
	cmd.Flags().IntP(flagIterations, "n", def.Iterations, "critical sections per worker")
	cmd.Flags().Bool(flagRecursive, false, "use a recursive mutex")
	cmd.Flags().Int(flagDepth, def.Depth, "locks taken per critical section (needs --recursive above 1)")
	cmd.Flags().Bool(flagTryLock, false, "acquire by spinning on TryLock")
	cmd.Flags().Bool(flagMetrics, false, "print the collected metrics in Prometheus text format")
	return cmd
}

func stressOptions(cmd *cobra.Command) (opts stress.Options, err error) {
	flags := cmd.Flags()
	if opts.Goroutines, err = flags.GetInt(flagGoroutines); err != nil {
		return opts, errors.Trace(err)
	}
	if opts.Iterations, err = flags.GetInt(flagIterations); err != nil {
		return opts, errors.Trace(err)
	}
	if opts.Recursive, err = flags.GetBool(flagRecursive); err != nil {
		return opts, errors.Trace(err)
	}
	if opts.Depth, err = flags.GetInt(flagDepth); err != nil {
		return opts, errors.Trace(err)
	}
	if opts.UseTryLock, err = flags.GetBool(flagTryLock); err != nil {
		return opts, errors.Trace(err)
	}
	return opts, opts.Validate()
}

func runStress(cmd *cobra.Command, _ []string) error {
	opts, err := stressOptions(cmd)
	if err != nil {
		return err
	}
	withMetrics, _ := cmd.Flags().GetBool(flagMetrics)

	reg := prometheus.NewRegistry()
	res, err := stress.Run(cmd.Context(), opts, reg)
	if err != nil {
		return err
	}

	cmd.Printf("backend=%s goroutines=%d iterations=%d depth=%d trylock=%t\n",
		res.Backend, opts.Goroutines, opts.Iterations, opts.Depth, opts.UseTryLock)
	cmd.Printf("acquisitions=%d trylock-misses=%d violations=%d elapsed=%s\n",
		res.Acquisitions, res.TryLockMisses, res.Violations, res.Elapsed)
	if withMetrics {
		if err := stress.WriteMetrics(cmd.OutOrStdout(), reg); err != nil {
			return err
		}
	}
	if !res.OK() {
		return errors.Errorf("mutual exclusion violated %d times on the %s backend", res.Violations, res.Backend)
	}
	cmd.Println("ok")
	return nil
}
