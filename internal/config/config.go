package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type RemoteConfig struct {
	GatewayURL         string        `yaml:"gateway_url"`
	PumpMode           int           `yaml:"pump_mode"`
	FallbackPumpMode   int           `yaml:"fallback_pump_mode"`
	Timeout            time.Duration `yaml:"timeout"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
}

const (
	_pumpModeDefault         = 2
	_fallbackPumpModeDefault = 1
	_remoteTimeoutDefault    = 120 * time.Second
	_rateLimitDefault        = 600
)

func (c *RemoteConfig) Setup() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("gateway url is required")
	}
	if _, err := url.ParseRequestURI(c.GatewayURL); err != nil {
		return fmt.Errorf("%w: invalid gateway url", err)
	}

	if c.PumpMode <= 0 {
		c.PumpMode = _pumpModeDefault
	}
	if c.FallbackPumpMode <= 0 {
		c.FallbackPumpMode = _fallbackPumpModeDefault
	}
	if c.Timeout <= 0 {
		c.Timeout = _remoteTimeoutDefault
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = _rateLimitDefault
	}

	return nil
}

type SyncConfig struct {
	Workers           int           `yaml:"workers"`
	ClosedWindow      time.Duration `yaml:"closed_window"`
	DealChunk         time.Duration `yaml:"deal_chunk"`
	OpenSchedule      string        `yaml:"open_schedule"`
	ClosedSchedule    string        `yaml:"closed_schedule"`
	DirectorySchedule string        `yaml:"directory_schedule"`
}

const (
	_workersDefault           = 8
	_closedWindowDefault      = 30 * 24 * time.Hour
	_dealChunkDefault         = 7 * 24 * time.Hour
	_openScheduleDefault      = "@every 10s"
	_closedScheduleDefault    = "@every 1m"
	_directoryScheduleDefault = "@every 5m"
)

func (c *SyncConfig) Setup() error {
	if c.Workers <= 0 {
		c.Workers = _workersDefault
	}
	if c.ClosedWindow <= 0 {
		c.ClosedWindow = _closedWindowDefault
	}
	if c.DealChunk <= 0 {
		c.DealChunk = _dealChunkDefault
	}
	if c.OpenSchedule == "" {
		c.OpenSchedule = _openScheduleDefault
	}
	if c.ClosedSchedule == "" {
		c.ClosedSchedule = _closedScheduleDefault
	}
	if c.DirectorySchedule == "" {
		c.DirectorySchedule = _directoryScheduleDefault
	}

	for _, spec := range []string{c.OpenSchedule, c.ClosedSchedule, c.DirectorySchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%w: invalid schedule %q", err, spec)
		}
	}

	return nil
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const (
	_serverPortDefault      = "8000"
	_shutdownTimeoutDefault = 15 * time.Second
)

func (c *ServerConfig) Setup() error {
	if c.Port == "" {
		c.Port = _serverPortDefault
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: invalid server port", err)
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = _shutdownTimeoutDefault
	}
	return nil
}

type Config struct {
	Remote   RemoteConfig `yaml:"remote"`
	Sync     SyncConfig   `yaml:"sync"`
	Server   ServerConfig `yaml:"server"`
	LogLevel string       `yaml:"log_level"`
}

func (c *Config) ValidateAndSetup() error {
	if v := os.Getenv("MT5_GATEWAY_URL"); v != "" {
		c.Remote.GatewayURL = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		c.Server.Port = v
	}

	if err := c.Remote.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup remote", err)
	}
	if err := c.Sync.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup sync", err)
	}
	if err := c.Server.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup server", err)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return nil
}

func LoadConfig(filename string) (Config, error) {
	var cfg Config
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
