package cliconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bft-labs/feedship/internal/domain"
)

// Config holds CLI configuration for feedship.
type Config struct {
	Feed        string `flag:"feed" validate:"required"`
	Format      string `flag:"format" validate:"oneof=xml jsonl"`
	ItemElement string `flag:"item-element" validate:"required"`

	Sink         string        `flag:"sink" validate:"oneof=http kafka stdout"`
	SinkURL      string        `flag:"sink-url" validate:"required_if=Sink http"`
	AuthKey      string        `flag:"auth-key"`
	HTTPTimeout  time.Duration `flag:"timeout" validate:"gt=0"`
	KafkaBrokers []string      `flag:"kafka-brokers" validate:"required_if=Sink kafka,dive,hostname_port"`
	KafkaTopic   string        `flag:"kafka-topic" validate:"required_if=Sink kafka"`

	MaxBatchSize  int           `flag:"max-batch-size" validate:"gt=0"`
	SafetyMargin  int           `flag:"safety-margin" validate:"gt=0,ltfield=MaxBatchSize"`
	MaxRetries    int           `flag:"max-retries" validate:"gte=1"`
	RetryDelay    time.Duration `flag:"retry-delay" validate:"gte=0"`
	RetryMaxDelay time.Duration `flag:"retry-max-delay" validate:"gte=0"`
	SendInterval  time.Duration `flag:"send-interval" validate:"gte=0"`

	ContinueOnFailure bool          `flag:"continue-on-failure"`
	ShutdownTimeout   time.Duration `flag:"shutdown-timeout" validate:"gt=0"`
	WatchConfig       bool          `flag:"watch-config"`

	LogLevel  string `flag:"log-level" validate:"oneof=trace debug info warn error"`
	LogFormat string `flag:"log-format" validate:"oneof=console json"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Format:          "xml",
		ItemElement:     "item",
		Sink:            "http",
		HTTPTimeout:     30 * time.Second,
		MaxBatchSize:    5 << 20, // 5MiB
		SafetyMargin:    1024,
		MaxRetries:      3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report errors by flag name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks the configuration for errors and normalizes derived values.
// Errors wrap domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Sink = strings.ToLower(strings.TrimSpace(c.Sink))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, describe(err))
	}

	if c.Sink == "http" {
		if err := validate.Var(c.SinkURL, "http_url"); err != nil {
			return fmt.Errorf("%w: sink-url: %q is not an http(s) URL", domain.ErrInvalidConfig, c.SinkURL)
		}
	}
	if c.RetryMaxDelay > 0 && c.RetryMaxDelay < c.RetryDelay {
		return fmt.Errorf("%w: retry-max-delay must not be below retry-delay", domain.ErrInvalidConfig)
	}

	return nil
}

// describe renders validator errors as "flag: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), rule))
	}
	return strings.Join(msgs, "; ")
}

// Masked returns a copy safe for logging.
func (c Config) Masked() Config {
	if c.AuthKey != "" {
		c.AuthKey = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value from a pointer if not nil and flag not changed.
// Range checks are left to Validate.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setMillis sets a duration given either as a duration string ("1.5s") or as
// a bare number of milliseconds ("1500").
func (s *configSetter) setMillis(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms < 0 {
			return fmt.Errorf("parse %s: negative delay %d", flag, ms)
		}
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	return s.setDuration(flag, value, dst)
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
