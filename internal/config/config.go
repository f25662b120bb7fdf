package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "VIDEOTS"

type Config struct {
	Backend     string        `mapstructure:"backend"`      // auto, mp4, mpegts or ffprobe
	FFprobePath string        `mapstructure:"ffprobe_path"` // empty means ffprobe from PATH
	Workers     int           `mapstructure:"workers"`
	Timeout     time.Duration `mapstructure:"timeout"` // per file, 0 disables
	Output      OutputConfig  `mapstructure:"output"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"` // json or yaml
	Indent *bool  `mapstructure:"indent"` // nil follows the terminal
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// Load reads the optional YAML file at configPath, applies VIDEOTS_*
// environment overrides on top of it and validates the result. An empty
// configPath loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "auto")
	v.SetDefault("ffprobe_path", "")
	v.SetDefault("workers", 4)
	v.SetDefault("timeout", "5m")

	v.SetDefault("output.format", "json")
	// no default so that an explicit false is told apart from unset
	_ = v.BindEnv("output.indent")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
}
