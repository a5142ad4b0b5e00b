// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lockprobe reports which mutex backend dualmutex selects on this
// machine and stress-tests it.
//
// Usage:
//
//	lockprobe probe                      # platform, experiments and backends
//	lockprobe probe --config dm.toml     # same, with a configuration file
//	lockprobe stress --goroutines 64     # contention workload
//	lockprobe stress --recursive --depth 3 --metrics
//	lockprobe version
//
// Experiments can also be switched from the environment:
//
//	DUALMUTEX_EXPERIMENTS=fast-lock=false lockprobe probe
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/log"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	// Outputs cmd.Print to stdout.
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("lockprobe failed", zap.Error(err))
		stop()
		os.Exit(1) // nolint:gocritic
	}
}
