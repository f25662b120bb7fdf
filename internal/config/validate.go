package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var backends = map[string]bool{"auto": true, "mp4": true, "mpegts": true, "ffprobe": true}

func (c *Config) Validate() error {
	if !backends[c.Backend] {
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (o *OutputConfig) Validate() error {
	if o.Format != "json" && o.Format != "yaml" {
		return fmt.Errorf("invalid output format: %s", o.Format)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("invalid log format: %s", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("log output is required")
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		if l.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for file output")
		}
	}

	return nil
}
