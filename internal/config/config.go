// Package config loads trialwatch configuration: application settings via
// viper (config.yaml plus TRIALWATCH_* environment overrides) and the
// topic definitions from a separate YAML data file.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	CTGov    CTGovConfig    `yaml:"ctgov" mapstructure:"ctgov"`
	PubMed   PubMedConfig   `yaml:"pubmed" mapstructure:"pubmed"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Topics   TopicsConfig   `yaml:"topics" mapstructure:"topics"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CTGovConfig configures the trial-registry client.
type CTGovConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	PageDelayMS int    `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PubMedConfig configures the bibliographic client and the linking pass.
type PubMedConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	Tool            string `yaml:"tool" mapstructure:"tool"`
	Email           string `yaml:"email" mapstructure:"email"`
	DelayMS         int    `yaml:"delay_ms" mapstructure:"delay_ms"`
	ActionableOnly  bool   `yaml:"actionable_only" mapstructure:"actionable_only"`
	MaxTrialsPerRun int    `yaml:"max_trials_per_run" mapstructure:"max_trials_per_run"`
	RetMax          int    `yaml:"retmax" mapstructure:"retmax"`
}

// PipelineConfig configures sync and digest behavior.
type PipelineConfig struct {
	ReadoutWindowDays     int  `yaml:"readout_window_days" mapstructure:"readout_window_days"`
	RecentlyCompletedDays int  `yaml:"recently_completed_days" mapstructure:"recently_completed_days"`
	MaxPagesPerTopic      int  `yaml:"max_pages_per_topic" mapstructure:"max_pages_per_topic"`
	PageSize              int  `yaml:"page_size" mapstructure:"page_size"`
	StoreRaw              bool `yaml:"store_raw" mapstructure:"store_raw"`
	ExportCSV             bool `yaml:"export_csv" mapstructure:"export_csv"`
	ExportExcel           bool `yaml:"export_excel" mapstructure:"export_excel"`
}

// TopicsConfig points at the topic definitions file.
type TopicsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRIALWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trialwatch.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("ctgov.base_url", "https://clinicaltrials.gov/api/v2")
	v.SetDefault("ctgov.user_agent", "trialwatch/1.0 (+https://sellsadvisors.com)")
	v.SetDefault("ctgov.page_delay_ms", 250)
	v.SetDefault("ctgov.timeout_secs", 30)
	v.SetDefault("pubmed.enabled", true)
	v.SetDefault("pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("pubmed.tool", "trialwatch")
	v.SetDefault("pubmed.delay_ms", 400)
	v.SetDefault("pubmed.actionable_only", true)
	v.SetDefault("pubmed.max_trials_per_run", 200)
	v.SetDefault("pubmed.retmax", 200)
	v.SetDefault("pipeline.readout_window_days", 180)
	v.SetDefault("pipeline.recently_completed_days", 120)
	v.SetDefault("pipeline.max_pages_per_topic", 10)
	v.SetDefault("pipeline.page_size", 200)
	v.SetDefault("pipeline.export_csv", true)
	v.SetDefault("pipeline.export_excel", true)
	v.SetDefault("topics.path", "topics.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings that must be right before any network or
// database work begins.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unsupported store driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	if c.Pipeline.ReadoutWindowDays <= 0 || c.Pipeline.RecentlyCompletedDays <= 0 {
		return eris.New("config: readout_window_days and recently_completed_days must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
