// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logutil owns the structured logger used across dualmutex.
//
// The library itself never configures logging: it writes through the global
// pingcap/log logger, which defaults to a text logger on stderr. Programs that
// embed dualmutex (and the lockprobe CLI) call InitLogger to change level or format.
package logutil

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultLogLevel is the level used when none is configured.
	DefaultLogLevel = "info"
	// DefaultLogFormat is the default format of the log.
	DefaultLogFormat = "text"

	// LogFieldComponent is the field name for the emitting component.
	LogFieldComponent = "component"
)

// LogConfig serializes log related config in toml.
type LogConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
	// DisableTimestamp drops the time field, useful for golden output.
	DisableTimestamp bool `toml:"disable-timestamp"`
}

// NewLogConfig creates a LogConfig with defaults filled in.
func NewLogConfig(level, format string) *LogConfig {
	if level == "" {
		level = DefaultLogLevel
	}
	if format == "" {
		format = DefaultLogFormat
	}
	return &LogConfig{Level: level, Format: format}
}

// InitLogger initializes the global logger with cfg.
func InitLogger(cfg *LogConfig, opts ...zap.Option) error {
	opts = append(opts, zap.AddStacktrace(zapcore.FatalLevel))
	gl, props, err := log.InitLogger(&log.Config{
		Level:            cfg.Level,
		Format:           cfg.Format,
		DisableTimestamp: cfg.DisableTimestamp,
	}, opts...)
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(gl, props)
	return nil
}

// BgLogger returns the logger for work not tied to a caller-supplied context.
func BgLogger() *zap.Logger {
	return log.L()
}

// ComponentLogger returns BgLogger tagged with the given component name.
func ComponentLogger(component string) *zap.Logger {
	return log.L().With(zap.String(LogFieldComponent, component))
}
