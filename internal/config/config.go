// Package config handles configuration loading for fincanon.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Providers    ProvidersConfig    `mapstructure:"providers"    yaml:"providers"`
	Fiscal       FiscalConfig       `mapstructure:"fiscal"       yaml:"fiscal"`
	Batch        BatchConfig        `mapstructure:"batch"        yaml:"batch"`
	Store        StoreConfig        `mapstructure:"store"        yaml:"store"`
	API          APIConfig          `mapstructure:"api"          yaml:"api"`
	Underwriting UnderwritingConfig `mapstructure:"underwriting" yaml:"underwriting"`
	Logging      LoggingConfig      `mapstructure:"logging"      yaml:"logging"`
}

// ProvidersConfig holds upstream provider settings and priority order.
type ProvidersConfig struct {
	// Order lists provider ids in consultation priority, primary first.
	Order []string    `mapstructure:"order" yaml:"order"`
	Yahoo YahooConfig `mapstructure:"yahoo" yaml:"yahoo"`
	MOPS  MOPSConfig  `mapstructure:"mops"  yaml:"mops"`
}

// YahooConfig holds the primary (JSON API) provider settings.
type YahooConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// MOPSConfig holds the secondary (HTML disclosure site) provider settings.
type MOPSConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	FeedURL string `mapstructure:"feed_url" yaml:"feed_url"` // disclosure RSS feed for batch refresh
}

// FiscalConfig holds period normalization settings.
type FiscalConfig struct {
	// Epoch is subtracted from the calendar year to form the fiscal year
	// of a canonical period. 1911 yields ROC-era years; 0 keeps Gregorian.
	Epoch int `mapstructure:"epoch" yaml:"epoch"`
	// SinceYears bounds how far back statements are requested.
	SinceYears int `mapstructure:"since_years" yaml:"since_years"`
}

// BatchConfig holds batch driver settings.
type BatchConfig struct {
	// PaceMillis is the minimum spacing between successive company
	// pipelines, enforced via the injectable pacer.
	PaceMillis int    `mapstructure:"pace_millis" yaml:"pace_millis"`
	RosterPath string `mapstructure:"roster_path" yaml:"roster_path"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Path is the sqlite database path; empty disables persistence.
	Path string `mapstructure:"path" yaml:"path"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// UnderwritingConfig holds the downstream decision thresholds.
type UnderwritingConfig struct {
	// RevenueFloorThousands is the latest-quarter revenue (in thousands
	// of native currency) at or above which a case qualifies for Group A.
	RevenueFloorThousands float64 `mapstructure:"revenue_floor_thousands" yaml:"revenue_floor_thousands"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.fincanon/config.yaml (home directory)
//  3. /etc/fincanon/config.yaml (system)
//
// Environment variables override config file values.
// Format: FINCANON_<SECTION>_<KEY>, e.g., FINCANON_STORE_PATH
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".fincanon"))
	v.AddConfigPath("/etc/fincanon")

	v.SetEnvPrefix("FINCANON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FINCANON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("providers.order", []string{"yahoo", "mops"})
	v.SetDefault("providers.yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("providers.mops.base_url", "https://mops.twse.com.tw")
	v.SetDefault("providers.mops.feed_url", "https://mops.twse.com.tw/rss/disclosures.xml")

	v.SetDefault("fiscal.epoch", 1911) // ROC calendar
	v.SetDefault("fiscal.since_years", 2)

	v.SetDefault("batch.pace_millis", 1500)
	v.SetDefault("batch.roster_path", "config/roster.csv")

	v.SetDefault("store.path", "fincanon.db")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// 15 billion TWD expressed in thousands, the Group A floor.
	v.SetDefault("underwriting.revenue_floor_thousands", 15000000.0)

	v.SetDefault("logging.level", "info")
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must list at least one provider")
	}
	for _, name := range c.Providers.Order {
		switch name {
		case "yahoo", "mops":
		default:
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
	}
	if c.Fiscal.Epoch < 0 {
		return fmt.Errorf("fiscal.epoch must be >= 0")
	}
	if c.Batch.PaceMillis < 0 {
		return fmt.Errorf("batch.pace_millis must be >= 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
