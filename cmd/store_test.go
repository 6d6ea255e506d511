package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trialwatch/internal/config"
)

func withTestConfig(t *testing.T, c *config.Config) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestInitStore_SQLite(t *testing.T) {
	withTestConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "trialwatch.db"),
	}})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestInitStore_PostgresBadConnString(t *testing.T) {
	withTestConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:      "postgres",
		DatabaseURL: "://not-a-conn-string",
		MaxConns:    4,
		MinConns:    1,
	}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestInitStore_UnknownDriver(t *testing.T) {
	withTestConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
