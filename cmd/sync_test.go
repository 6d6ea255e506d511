package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trialwatch/internal/config"
)

func TestSyncCmd_TopicFailureBeforeStoreWork(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "trialwatch.db")
	withTestConfig(t, &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: dbPath},
		Topics: config.TopicsConfig{Path: filepath.Join(dir, "missing.yaml")},
	})

	err := syncCmd.RunE(syncCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read topics")

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "topic problems abort before the store is touched")
}
