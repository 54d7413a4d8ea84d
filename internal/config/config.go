// Package config loads screenshooter settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. SCREENSHOOTER_ADB_PATH.
const EnvPrefix = "SCREENSHOOTER_"

// DefaultPath is used when no --config flag is given and the file exists.
const DefaultPath = "~/.screenshooter/config.yaml"

// Config is the root configuration.
type Config struct {
	ADB     ADBConfig     `yaml:"adb"`
	Job     JobConfig     `yaml:"job"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Logging LoggingConfig `yaml:"logging"`
}

// ADBConfig locates and drives the adb client.
type ADBConfig struct {
	// Path to the adb binary. Empty searches ANDROID_HOME then PATH.
	Path           string        `yaml:"path"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// StartServer starts the adb server when no adb process is running.
	StartServer bool `yaml:"start_server"`
}

// JobConfig holds screenshot job defaults.
type JobConfig struct {
	Directory   string        `yaml:"directory"`
	Prefix      string        `yaml:"prefix"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	// Exclude lists modes as "WxH@DPI".
	Exclude []string `yaml:"exclude"`
	// Presets names exclusion presets applied on top of Exclude.
	Presets    []string `yaml:"presets"`
	ResetAfter bool     `yaml:"reset_after"`
}

// LedgerConfig controls the encrypted capture history.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// MQTTConfig controls job event publishing.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      int    `yaml:"qos"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	File   string `yaml:"file"`   // empty logs to stderr
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when given. With an empty path it loads
// DefaultPath if that file exists, else uses defaults plus env overrides.
func LoadOrDefault(path, home string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	fallback := filepath.Join(home, strings.TrimPrefix(DefaultPath, "~/"))
	if _, err := os.Stat(fallback); err == nil {
		return Load(fallback)
	}

	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		ADB: ADBConfig{
			CommandTimeout: 30 * time.Second,
			StartServer:    true,
		},
		Job: JobConfig{
			Directory:   "screenshots",
			Prefix:      "output_",
			SettleDelay: 1000 * time.Millisecond,
			ResetAfter:  true,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Dir:     "~/.screenshooter",
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			Topic:    "screenshooter/jobs",
			ClientID: "screenshooter",
			QoS:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Unparseable values are ignored and caught by Validate where it matters.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "ADB_PATH"); v != "" {
		cfg.ADB.Path = v
	}
	if v := os.Getenv("ANDROID_ADB"); v != "" && cfg.ADB.Path == "" {
		cfg.ADB.Path = v
	}
	if v := os.Getenv(EnvPrefix + "JOB_DIRECTORY"); v != "" {
		cfg.Job.Directory = v
	}
	if v := os.Getenv(EnvPrefix + "JOB_PREFIX"); v != "" {
		cfg.Job.Prefix = v
	}
	if v := os.Getenv(EnvPrefix + "JOB_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Job.SettleDelay = d
		}
	}
	if v := os.Getenv(EnvPrefix + "LEDGER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ledger.Enabled = b
		}
	}
	if v := os.Getenv(EnvPrefix + "MQTT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MQTT.Enabled = b
		}
	}
	if v := os.Getenv(EnvPrefix + "MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.ADB.CommandTimeout <= 0 {
		errs = append(errs, "adb.command_timeout must be positive")
	}
	if c.Job.Directory == "" {
		errs = append(errs, "job.directory is required")
	}
	if c.Job.SettleDelay < 0 {
		errs = append(errs, "job.settle_delay must not be negative")
	}
	if strings.ContainsAny(c.Job.Prefix, `/\`) {
		errs = append(errs, "job.prefix must not contain path separators")
	}
	for _, s := range c.Job.Exclude {
		if _, err := domain.ParseMode(s); err != nil {
			errs = append(errs, fmt.Sprintf("job.exclude: %v", err))
		}
	}
	if c.Ledger.Enabled && c.Ledger.Dir == "" {
		errs = append(errs, "ledger.dir is required when the ledger is enabled")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errs = append(errs, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required when mqtt is enabled")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1 or 2")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ExcludedModes parses Job.Exclude. Call after Validate.
func (c *Config) ExcludedModes() []domain.Mode {
	modes := make([]domain.Mode, 0, len(c.Job.Exclude))
	for _, s := range c.Job.Exclude {
		if m, err := domain.ParseMode(s); err == nil {
			modes = append(modes, m)
		}
	}
	return modes
}
