package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Feed         string   `toml:"feed"`
	Format       string   `toml:"format"`
	ItemElement  string   `toml:"item_element"`
	Sink         string   `toml:"sink"`
	SinkURL      string   `toml:"sink_url"`
	AuthKey      string   `toml:"api_key"`
	HTTPTimeout  string   `toml:"http_timeout"`
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`

	MaxBatchSize *int `toml:"max_batch_size"`
	SafetyMargin *int `toml:"safety_margin"`
	MaxRetries   *int `toml:"max_retries"`
	// RetryDelay is a duration string or an integer number of milliseconds.
	RetryDelay    any    `toml:"retry_delay"`
	RetryMaxDelay string `toml:"retry_max_delay"`
	SendInterval  string `toml:"send_interval"`

	ContinueOnFailure *bool  `toml:"continue_on_failure"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
	WatchConfig       *bool  `toml:"watch_config"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.feedship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".feedship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("feed", fc.Feed, &cfg.Feed)
	s.setString("format", fc.Format, &cfg.Format)
	s.setString("item-element", fc.ItemElement, &cfg.ItemElement)
	s.setString("sink", fc.Sink, &cfg.Sink)
	s.setString("sink-url", fc.SinkURL, &cfg.SinkURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setStrings("kafka-brokers", fc.KafkaBrokers, &cfg.KafkaBrokers)
	s.setString("kafka-topic", fc.KafkaTopic, &cfg.KafkaTopic)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setInt("max-batch-size", fc.MaxBatchSize, &cfg.MaxBatchSize)
	s.setInt("safety-margin", fc.SafetyMargin, &cfg.SafetyMargin)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)

	retryDelay, err := millisString(fc.RetryDelay)
	if err != nil {
		return fmt.Errorf("parse retry-delay: %w", err)
	}
	if err := s.setMillis("retry-delay", retryDelay, &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("send-interval", fc.SendInterval, &cfg.SendInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setBool("continue-on-failure", fc.ContinueOnFailure, &cfg.ContinueOnFailure)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// millisString normalizes a TOML integer or string value to the form setMillis accepts.
func millisString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatInt(int64(t), 10), nil
	default:
		return "", fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

// LoadSendInterval reads only send_interval from the config file at path.
// The boolean is false when the file does not set it.
func LoadSendInterval(path string) (time.Duration, bool, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return 0, false, err
	}
	if fc.SendInterval == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(fc.SendInterval)
	if err != nil {
		return 0, false, fmt.Errorf("parse send-interval: %w", err)
	}
	if d < 0 {
		return 0, false, fmt.Errorf("parse send-interval: negative interval %s", d)
	}
	return d, true, nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
