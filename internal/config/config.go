// Package config loads runtime settings from an optional YAML file, .env and DIGEST_* variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/khobor-digest/internal/domain"
	"github.com/Adda-Baaj/khobor-digest/internal/logger"
)

const envPrefix = "DIGEST"

// Config is the full runtime configuration, passed explicitly to every component.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Target     TargetConfig     `mapstructure:"target"`
	Harvest    HarvestConfig    `mapstructure:"harvest"`
	Publishers PublishersConfig `mapstructure:"publishers"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Log        logger.Config    `mapstructure:"log"`
}

// StoreConfig locates the canonical store, the published copy and the run history.
type StoreConfig struct {
	PrimaryPath   string        `mapstructure:"primary_path"`
	PublishedPath string        `mapstructure:"published_path"`
	HistoryPath   string        `mapstructure:"history_path"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
}

// TargetConfig decides which calendar date a run is scoped to.
type TargetConfig struct {
	Date       string `mapstructure:"date"`
	OffsetDays int    `mapstructure:"offset_days"`
}

// HarvestConfig controls acquisition.
type HarvestConfig struct {
	SourcesFile    string        `mapstructure:"sources_file"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PublishersConfig points at the optional change-notification publishers file.
type PublishersConfig struct {
	File string `mapstructure:"file"`
}

// AWSConfig is shared by the S3 sink.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every key so environment overrides resolve on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.primary_path", "data/news_data.json")
	v.SetDefault("store.published_path", "dist/news_data.json")
	v.SetDefault("store.history_path", "data/history.db")
	v.SetDefault("store.lock_timeout", 5*time.Second)

	v.SetDefault("target.date", "")
	v.SetDefault("target.offset_days", 1)

	v.SetDefault("harvest.sources_file", "config/sources.yaml")
	v.SetDefault("harvest.max_concurrency", 4)
	v.SetDefault("harvest.request_timeout", 15*time.Second)
	v.SetDefault("harvest.user_agent", "")

	v.SetDefault("publishers.file", "")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stderr"})
}

// Load reads .env (if present), then the config file at path (optional when
// empty), and unmarshals the merged result.
func Load(v *viper.Viper, path string) (Config, error) {
	_ = godotenv.Load()

	if v == nil {
		v = New()
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("digest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) sanitize() {
	c.Store.PrimaryPath = strings.TrimSpace(c.Store.PrimaryPath)
	c.Store.PublishedPath = strings.TrimSpace(c.Store.PublishedPath)
	c.Store.HistoryPath = strings.TrimSpace(c.Store.HistoryPath)
	c.Target.Date = strings.TrimSpace(c.Target.Date)
	c.Harvest.SourcesFile = strings.TrimSpace(c.Harvest.SourcesFile)
	c.Publishers.File = strings.TrimSpace(c.Publishers.File)
	if c.Harvest.MaxConcurrency <= 0 {
		c.Harvest.MaxConcurrency = 1
	}
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.Store.PrimaryPath == "" {
		return errors.New("store.primary_path is required")
	}
	if strings.Contains(c.Store.PrimaryPath, "://") {
		return fmt.Errorf("store.primary_path must be a local path, got %q", c.Store.PrimaryPath)
	}
	if c.Store.PublishedPath == "" {
		return errors.New("store.published_path is required")
	}
	if c.Target.Date != "" {
		if _, err := time.Parse(domain.DateLayout, c.Target.Date); err != nil {
			return fmt.Errorf("target.date must be YYYY-MM-DD: %w", err)
		}
	}
	if c.Target.OffsetDays < 0 {
		return fmt.Errorf("target.offset_days must not be negative, got %d", c.Target.OffsetDays)
	}
	if c.Harvest.RequestTimeout <= 0 {
		return errors.New("harvest.request_timeout must be positive")
	}
	return nil
}

// TargetDate resolves the run's target date: the explicit date if set, else
// now minus offset_days, as a UTC calendar date.
func (c Config) TargetDate(now time.Time) string {
	if c.Target.Date != "" {
		return c.Target.Date
	}
	return now.UTC().AddDate(0, 0, -c.Target.OffsetDays).Format(domain.DateLayout)
}
