// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"github.com/kolkov/dualmutex/internal/config"
	"github.com/kolkov/dualmutex/internal/platform"
	"github.com/kolkov/dualmutex/mutex"
)

func newProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Report the platform, the experiments and the selected backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printProbe(cmd)
		},
	}
}

func printProbe(cmd *cobra.Command) {
	p := platform.Describe()
	cfg := config.Global()
	info := mutex.GetInfo()

	cmd.Printf("Go version:        %s (minimum for fast lock: %s, supported: %t)\n",
		p.GoVersion, platform.MinimumGoVersion, platform.FastLockSupported())
	cmd.Printf("Platform:          %s/%s, %d CPUs\n", p.GOOS, p.GOARCH, p.NumCPU)
	if p.KernelRelease != "" {
		cmd.Printf("Kernel:            %s\n", p.KernelRelease)
	}
	for _, e := range config.KnownExperiments {
		cmd.Printf("Experiment:        %s=%s\n", e, onOff(cfg.Enabled(e)))
	}
	cmd.Printf("Fast lock:         %s\n", onOff(info.FastLock))
	cmd.Printf("Mutex:             %s\n", info.MutexBackend)
	cmd.Printf("RecursiveMutex:    %s\n", info.RecursiveBackend)
	cmd.Printf("Ownership tracker: %s\n", onOff(info.TrackingEnabled))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
