package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8390", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Jobs.MaxAttempts)
	assert.Equal(t, Duration(2*time.Second), cfg.Jobs.RetryBaseDelay)
	assert.Equal(t, Duration(30*time.Second), cfg.Jobs.RetryMaxDelay)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matflow.yaml")
	content := `
server:
  addr: ":9000"
storage:
  db_path: /var/lib/matflow/db
  documents_root: /srv/catalogs
  images_root: /srv/images
pipeline:
  min_chunk_length: 80
  inner_concurrency: 3
jobs:
  workers: 4
  max_attempts: 5
  retry_base_delay: 500ms
  retry_max_delay: 10s
  auto_resume: true
ai:
  chat_host: http://models.internal:8000
  cheap_model: gpt-4o-mini
  deep_model: gpt-4o
  pricing:
    gpt-4o-mini:
      prompt_usd_per_1k: 0.00015
      completion_usd_per_1k: 0.0006
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/matflow/db", cfg.Storage.DBPath)
	assert.Equal(t, 80, cfg.Pipeline.MinChunkLength)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	assert.Equal(t, 5, cfg.Jobs.MaxAttempts)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Jobs.RetryBaseDelay)
	assert.True(t, cfg.Jobs.AutoResume)

	gw := cfg.AIGatewayConfig()
	gw.Normalize()
	assert.Equal(t, "http://models.internal:8000/v1", gw.ChatHost)
	assert.Equal(t, "gpt-4o-mini", gw.CheapModel)
	assert.Equal(t, "gpt-4o", gw.DeepModel)
	assert.InDelta(t, 0.00015, gw.PriceFor("gpt-4o-mini").PromptUSDPer1K, 1e-9)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MATFLOW_ADDR", ":7777")
	t.Setenv("MATFLOW_DB_PATH", "/tmp/override.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.DBPath)
}

func TestLoad_InvalidFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: [not a map]"), 0o644))
	_, err = Load(path)
	require.Error(t, err)

	path = filepath.Join(t.TempDir(), "zero-attempts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  max_attempts: -1\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
