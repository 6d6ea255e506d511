package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite", DatabaseURL: "trialwatch.db"},
		Pipeline: PipelineConfig{
			ReadoutWindowDays:     180,
			RecentlyCompletedDays: 120,
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	c := validConfig()
	c.Store.Driver = "mysql"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")

	c = validConfig()
	c.Store.DatabaseURL = ""
	require.Error(t, c.Validate())

	c = validConfig()
	c.Pipeline.ReadoutWindowDays = 0
	require.Error(t, c.Validate())

	c = validConfig()
	c.Store.Driver = "postgres"
	c.Store.DatabaseURL = "postgres://localhost/trialwatch"
	require.NoError(t, c.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "https://clinicaltrials.gov/api/v2", cfg.CTGov.BaseURL)
	assert.Equal(t, 250, cfg.CTGov.PageDelayMS)
	assert.True(t, cfg.PubMed.Enabled)
	assert.True(t, cfg.PubMed.ActionableOnly)
	assert.Equal(t, 200, cfg.PubMed.MaxTrialsPerRun)
	assert.Equal(t, 180, cfg.Pipeline.ReadoutWindowDays)
	assert.Equal(t, 120, cfg.Pipeline.RecentlyCompletedDays)
	assert.Equal(t, "topics.yaml", cfg.Topics.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}
