package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.gigwire/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	API            API    `toml:"api"`
	Net            Net    `toml:"net"`
	Queue          Queue  `toml:"queue"`
}

// API configures the marketplace HTTP client.
type API struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// Net configures the connectivity monitor.
type Net struct {
	ProbeURL           string `toml:"probe_url"`
	ProbeIntervalSecs  int    `toml:"probe_interval_secs"`
	ProbeTimeoutMillis int    `toml:"probe_timeout_millis"`
}

// Queue configures the drain scheduler.
type Queue struct {
	DrainIntervalSecs int `toml:"drain_interval_secs"`
}

// Defaults applied when the config file omits a value.
const (
	DefaultBaseURL            = "https://api.gigwire.app"
	DefaultProbeIntervalSecs  = 5
	DefaultProbeTimeoutMillis = 3000
	DefaultDrainIntervalSecs  = 30
)

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads config from path, falling back to defaults when the
// file does not exist.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
		cfg.applyDefaults()
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.Net.ProbeURL == "" {
		c.Net.ProbeURL = c.API.BaseURL + "/health"
	}
	if c.Net.ProbeIntervalSecs <= 0 {
		c.Net.ProbeIntervalSecs = DefaultProbeIntervalSecs
	}
	if c.Net.ProbeTimeoutMillis <= 0 {
		c.Net.ProbeTimeoutMillis = DefaultProbeTimeoutMillis
	}
	if c.Queue.DrainIntervalSecs <= 0 {
		c.Queue.DrainIntervalSecs = DefaultDrainIntervalSecs
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
