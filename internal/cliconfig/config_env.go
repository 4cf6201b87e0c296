package cliconfig

import "os"

// EnvPrefix prefixes every environment variable feedship reads.
const EnvPrefix = "FEEDSHIP_"

// ApplyEnvConfig applies FEEDSHIP_* environment variables to cfg.
// Values override file config but never explicitly set flags (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("feed", env("FEED"), &cfg.Feed)
	s.setString("format", env("FORMAT"), &cfg.Format)
	s.setString("item-element", env("ITEM_ELEMENT"), &cfg.ItemElement)
	s.setString("sink", env("SINK"), &cfg.Sink)
	s.setString("sink-url", env("SINK_URL"), &cfg.SinkURL)
	s.setString("auth-key", env("AUTH_KEY"), &cfg.AuthKey)
	s.setStrings("kafka-brokers", splitList(env("KAFKA_BROKERS")), &cfg.KafkaBrokers)
	s.setString("kafka-topic", env("KAFKA_TOPIC"), &cfg.KafkaTopic)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setIntFromString("max-batch-size", env("MAX_BATCH_SIZE"), &cfg.MaxBatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("safety-margin", env("SAFETY_MARGIN"), &cfg.SafetyMargin); err != nil {
		return err
	}
	if err := s.setIntFromString("max-retries", env("MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}

	if err := s.setMillis("retry-delay", env("RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", env("RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("send-interval", env("SEND_INTERVAL"), &cfg.SendInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setBoolFromString("continue-on-failure", env("CONTINUE_ON_FAILURE"), &cfg.ContinueOnFailure)
	s.setBoolFromString("watch-config", env("WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
