// config.go - hybrid.toml configuration

package main

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
)

const CONFIG_FILE_NAME = "hybrid.toml"

// Config is the contents of hybrid.toml. Command-line flags override it.
type Config struct {
	Logic  LogicConfig `toml:"logic"`
	Bridge BridgeToml  `toml:"bridge"`
	Run    RunConfig   `toml:"run"`
	Log    LogConfig   `toml:"log"`
	State  StateConfig `toml:"state"`
}

// LogicConfig selects the native logic routine. Script wins over Routine.
type LogicConfig struct {
	Routine string `toml:"routine"`
	Script  string `toml:"script"`
}

// BridgeToml holds the bridge tuning as written in the file.
type BridgeToml struct {
	HandoffTimeout string `toml:"handoff-timeout"`
	Trace          bool   `toml:"trace"`
}

type RunConfig struct {
	Frames      uint64 `toml:"frames"`
	StatusEvery string `toml:"status-every"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type StateConfig struct {
	Save string `toml:"save"`
	Load string `toml:"load"`
}

// DefaultConfig is used when no file is given.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, xerrors.Errorf("parse error in %s: %w", path, err)
	}
	c.applyDefaults()

	if _, err := c.BridgeConfig(); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if _, err := c.StatusInterval(); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Logic.Routine == "" {
		c.Logic.Routine = "rainbow"
	}
	if c.Bridge.HandoffTimeout == "" {
		c.Bridge.HandoffTimeout = DEFAULT_HANDOFF_TIMEOUT.String()
	}
	if c.Run.StatusEvery == "" {
		c.Run.StatusEvery = "1s"
	}
}

// BridgeConfig converts the [bridge] table. "0" disables the hand-off
// timeout.
func (c *Config) BridgeConfig() (BridgeConfig, error) {
	d, err := time.ParseDuration(c.Bridge.HandoffTimeout)
	if err != nil {
		return BridgeConfig{}, xerrors.Errorf("bridge.handoff-timeout: %w", err)
	}
	if d < 0 {
		return BridgeConfig{}, xerrors.Errorf("bridge.handoff-timeout: negative duration %v", d)
	}
	return BridgeConfig{HandoffTimeout: d, Trace: c.Bridge.Trace}, nil
}

// StatusInterval converts run.status-every.
func (c *Config) StatusInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Run.StatusEvery)
	if err != nil {
		return 0, xerrors.Errorf("run.status-every: %w", err)
	}
	return d, nil
}

// LogicFunc resolves the configured routine.
func (c *Config) LogicFunc() (LogicFunc, error) {
	if c.Logic.Script != "" {
		return LoadLuaLogic(c.Logic.Script)
	}
	return BuiltinLogic(c.Logic.Routine)
}
