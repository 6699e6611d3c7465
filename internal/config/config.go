// Package config defines the process-start tunables. Config is loaded with
// defaults set in code, optionally overridden by a YAML file and MBOF_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every process-start tunable.
type Config struct {
	DepthLevels          int           `mapstructure:"depth_levels"`
	RollingWindow        int           `mapstructure:"rolling_window"`
	MidHistory           int           `mapstructure:"mid_history"`
	WindowSize           int           `mapstructure:"window_size"`
	SnapshotIntervalNs   uint64        `mapstructure:"snapshot_interval_ns"`
	MidSampleIntervalNs  uint64        `mapstructure:"mid_sample_interval_ns"`
	SessionStart         string        `mapstructure:"session_start"` // "HH:MM" UTC
	SessionEnd           string        `mapstructure:"session_end"`   // "HH:MM" UTC
	FrontMonthID         int64         `mapstructure:"front_month_id"`
	PrefetchOffsetNs     uint64        `mapstructure:"prefetch_offset_ns"`
}

// Defaults returns the built-in default tunables.
func Defaults() Config {
	return Config{
		DepthLevels:         10,
		RollingWindow:       2000,
		MidHistory:          1800,
		WindowSize:          30000,
		SnapshotIntervalNs:  500_000_000,
		MidSampleIntervalNs: 50_000_000,
		SessionStart:        "13:30",
		SessionEnd:          "20:00",
		FrontMonthID:        4916,
		PrefetchOffsetNs:    100_000_000_000,
	}
}

// Load starts from Defaults, optionally merges an on-disk YAML file, then
// applies MBOF_* environment overrides (SetEnvPrefix + AutomaticEnv), the
// same three-tier precedence 0xtitan6-polymarket-mm's Load uses.
func Load(path string) (*Config, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("depth_levels", d.DepthLevels)
	v.SetDefault("rolling_window", d.RollingWindow)
	v.SetDefault("mid_history", d.MidHistory)
	v.SetDefault("window_size", d.WindowSize)
	v.SetDefault("snapshot_interval_ns", d.SnapshotIntervalNs)
	v.SetDefault("mid_sample_interval_ns", d.MidSampleIntervalNs)
	v.SetDefault("session_start", d.SessionStart)
	v.SetDefault("session_end", d.SessionEnd)
	v.SetDefault("front_month_id", d.FrontMonthID)
	v.SetDefault("prefetch_offset_ns", d.PrefetchOffsetNs)

	v.SetEnvPrefix("MBOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate checks the tunables' range invariants.
func (c *Config) Validate() error {
	if c.DepthLevels <= 0 {
		return fmt.Errorf("config: depth_levels must be > 0")
	}
	if c.RollingWindow <= 0 {
		return fmt.Errorf("config: rolling_window must be > 0")
	}
	if c.MidHistory <= 0 {
		return fmt.Errorf("config: mid_history must be > 0")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("config: window_size must be > 0")
	}
	if c.SnapshotIntervalNs == 0 {
		return fmt.Errorf("config: snapshot_interval_ns must be > 0")
	}
	if c.MidSampleIntervalNs == 0 {
		return fmt.Errorf("config: mid_sample_interval_ns must be > 0")
	}
	if c.PrefetchOffsetNs == 0 {
		return fmt.Errorf("config: prefetch_offset_ns must be > 0")
	}
	if c.SnapshotIntervalNs%c.MidSampleIntervalNs != 0 {
		return fmt.Errorf("config: snapshot_interval_ns must be a multiple of mid_sample_interval_ns")
	}
	start, err := parseClock(c.SessionStart)
	if err != nil {
		return fmt.Errorf("config: session_start: %w", err)
	}
	end, err := parseClock(c.SessionEnd)
	if err != nil {
		return fmt.Errorf("config: session_end: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("config: session_end must be after session_start")
	}
	return nil
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}

// SessionBounds computes the UTC session_start_ns/session_end_ns for a
// YYYYMMDD date string from the configured session_start/session_end clock
// values. Date arithmetic is an external-collaborator concern; this is the
// reference implementation the CLI harness uses.
func (c *Config) SessionBounds(dateYYYYMMDD string) (startNs, endNs uint64, err error) {
	date, err := time.Parse("20060102", dateYYYYMMDD)
	if err != nil {
		return 0, 0, fmt.Errorf("config: bad date %q: %w", dateYYYYMMDD, err)
	}
	startClock, err := parseClock(c.SessionStart)
	if err != nil {
		return 0, 0, err
	}
	endClock, err := parseClock(c.SessionEnd)
	if err != nil {
		return 0, 0, err
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), startClock.Hour(), startClock.Minute(), 0, 0, time.UTC)
	end := time.Date(date.Year(), date.Month(), date.Day(), endClock.Hour(), endClock.Minute(), 0, 0, time.UTC)
	return uint64(start.UnixNano()), uint64(end.UnixNano()), nil
}
