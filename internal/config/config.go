// Copyright 2025 The dualmutex Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the process configuration of dualmutex: experiment
// switches and logging.
//
// Configuration is resolved from, in order of increasing precedence:
//
//  1. built-in defaults (every known experiment on),
//  2. a TOML file named by $DUALMUTEX_CONFIG,
//  3. $DUALMUTEX_EXPERIMENTS, a comma separated list of "name" or
//     "name=bool" entries.
//
// Example file:
//
//	[experiments]
//	fast-lock = false
//
//	[log]
//	level = "debug"
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"go.uber.org/zap"

	"github.com/kolkov/dualmutex/internal/logutil"
)

// Experiment names a runtime experiment switch.
type Experiment string

// ExperimentFastLock allows mutexes to use the fast backend.
const ExperimentFastLock Experiment = "fast-lock"

// KnownExperiments lists every experiment this module consults.
var KnownExperiments = []Experiment{ExperimentFastLock}

const (
	// EnvConfigFile names the TOML configuration file.
	EnvConfigFile = "DUALMUTEX_CONFIG"
	// EnvExperiments overrides individual experiments.
	EnvExperiments = "DUALMUTEX_EXPERIMENTS"
)

// Config is the process configuration.
type Config struct {
	Experiments map[Experiment]bool `toml:"experiments"`
	Log         logutil.LogConfig   `toml:"log"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	c := &Config{
		Experiments: make(map[Experiment]bool, len(KnownExperiments)),
		Log:         *logutil.NewLogConfig("", ""),
	}
	for _, e := range KnownExperiments {
		c.Experiments[e] = true
	}
	return c
}

// Enabled reports whether experiment e is switched on.
func (c *Config) Enabled(e Experiment) bool {
	return c.Experiments[e]
}

// Load decodes the TOML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	c := NewConfig()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, errors.Annotatef(err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		logutil.BgLogger().Warn("unknown config keys ignored",
			zap.String("file", path), zap.Stringers("keys", undecoded))
	}
	return c, nil
}

// FromEnv resolves the configuration from the environment.
func FromEnv() (*Config, error) {
	c := NewConfig()
	if path := os.Getenv(EnvConfigFile); path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}
	if spec := os.Getenv(EnvExperiments); spec != "" {
		if err := c.applyExperiments(spec); err != nil {
			return nil, errors.Annotatef(err, "parse $%s", EnvExperiments)
		}
	}
	return c, nil
}

// applyExperiments parses "a,b=false,c=1" and overrides the named switches.
func (c *Config) applyExperiments(spec string) error {
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, val, hasVal := strings.Cut(item, "=")
		on := true
		if hasVal {
			var err error
			if on, err = strconv.ParseBool(strings.TrimSpace(val)); err != nil {
				return errors.Errorf("experiment %q: invalid value %q", name, val)
			}
		}
		c.Experiments[Experiment(strings.TrimSpace(name))] = on
	}
	return nil
}

var (
	mu        sync.Mutex
	global    *Config
	activated sync.Map // Experiment → struct{}
)

// Global returns the process configuration, resolving it from the
// environment on first use. An invalid environment falls back to the
// defaults after logging the error; lock construction cannot fail on it.
func Global() *Config {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		c, err := FromEnv()
		if err != nil {
			logutil.BgLogger().Error("invalid dualmutex configuration, using defaults", zap.Error(err))
			c = NewConfig()
		}
		global = c
	}
	return global
}

// Set installs c as the process configuration and returns the previous one.
// Set(nil) makes the next Global call resolve from the environment again.
func Set(c *Config) (prev *Config) {
	mu.Lock()
	defer mu.Unlock()
	prev, global = global, c
	return prev
}

// Activate reports whether experiment e is enabled in the process
// configuration. The first activation of each experiment is logged so a
// deployment can tell which experiments actually gated behavior.
func Activate(e Experiment) bool {
	if !Global().Enabled(e) {
		return false
	}
	if _, loaded := activated.LoadOrStore(e, struct{}{}); !loaded {
		logutil.BgLogger().Info("experiment activated", zap.String("experiment", string(e)))
	}
	return true
}
