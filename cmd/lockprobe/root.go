// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/pingcap/errors"
	"github.com/spf13/cobra"

	"github.com/kolkov/dualmutex/internal/config"
	"github.com/kolkov/dualmutex/internal/logutil"
	"github.com/kolkov/dualmutex/mutex"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "lockprobe",
		Short:             "lockprobe inspects and exercises the dualmutex backends.",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	cmd.PersistentFlags().StringP(flagConfig, "C", "",
		"TOML configuration file (default $"+config.EnvConfigFile+")")
	cmd.PersistentFlags().StringP(flagLogLevel, "L", "",
		"log level: debug, info, warn, error (overrides the configuration)")
	cmd.PersistentFlags().String(flagLogFormat, "",
		"log format: text or json (overrides the configuration)")

	cmd.AddCommand(
		newProbeCommand(),
		newStressCommand(),
		newVersionCommand(),
	)
	return cmd
}

// setup installs the configuration and the logger. It runs before any mutex
// is constructed, so the experiments it loads decide the backend.
func setup(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return errors.Trace(err)
	}
	var cfg *config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString(flagLogLevel); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString(flagLogFormat); format != "" {
		cfg.Log.Format = format
	}
	if err := logutil.InitLogger(&cfg.Log); err != nil {
		return errors.Annotate(err, "init logger")
	}
	config.Set(cfg)
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("lockprobe version %s\n", mutex.Version)
		},
	}
}
