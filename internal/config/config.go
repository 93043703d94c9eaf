// Package config loads the session manager's policy defaults and timing
// thresholds from a YAML file via viper, the way the rest of the retrieval
// pack's daemons (go-i2p's lib/config, blim's pkg/config) load their
// settings.
package config

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// PriorityBands mirrors spec.md §4.8's default priority bands.
type PriorityBands struct {
	Aliro           int `yaml:"aliro"`
	Ccc             int `yaml:"ccc"`
	SystemApp       int `yaml:"system_app"`
	Foreground      int `yaml:"foreground"`
	DefaultSentinel int `yaml:"default_sentinel"`
	Background      int `yaml:"background"`
}

// Deadlines mirrors spec.md §5's per-operation timeout budget.
type Deadlines struct {
	SessionOpen             time.Duration `yaml:"session_open"`
	SessionStart            time.Duration `yaml:"session_start"`
	SessionClose            time.Duration `yaml:"session_close"`
	RangingRoundsUpdate     time.Duration `yaml:"ranging_rounds_update"`
	DataTransferPhaseConfig time.Duration `yaml:"data_transfer_phase_config"`
}

// Config is the root policy/timing configuration for a SessionManager.
type Config struct {
	Priority                  PriorityBands `yaml:"priority"`
	Deadlines                 Deadlines     `yaml:"deadlines"`
	RangingErrorStreakTimeout time.Duration  `yaml:"ranging_error_streak_timeout"`
	BackgroundAppGraceWindow  time.Duration  `yaml:"background_app_grace_window"`
	MaxSessionsPerChip        map[string]int `yaml:"max_sessions_per_chip"`
}

// Default returns the built-in defaults used when no config file is
// supplied, matching the bands and deadlines spec.md names explicitly.
func Default() *Config {
	return &Config{
		Priority: PriorityBands{
			Aliro:           80,
			Ccc:             80,
			SystemApp:       70,
			Foreground:      60,
			DefaultSentinel: 50,
			Background:      40,
		},
		Deadlines: Deadlines{
			SessionOpen:             3 * time.Second,
			SessionStart:            3 * time.Second,
			SessionClose:            3 * time.Second,
			RangingRoundsUpdate:     3 * time.Second,
			DataTransferPhaseConfig: 3 * time.Second,
		},
		RangingErrorStreakTimeout: 5 * time.Second,
		BackgroundAppGraceWindow:  30 * time.Second,
		MaxSessionsPerChip: map[string]int{
			"fira":  5,
			"ccc":   1,
			"aliro": 1,
			"radar": 1,
		},
	}
}

// Load reads a YAML config file at path, falling back to Default for any
// field the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}
