package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "INK", cfg.Token.Symbol)
	assert.Equal(t, "1000000000000000", cfg.Token.InitialSupply)
	assert.Equal(t, "100000000", cfg.Rewards.WelcomeAmount)
	assert.Equal(t, "500000000", cfg.Assistant.StakeThreshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9999
  request_timeout: 5s
storage:
  backend: sqlite
  path: /tmp/test.db
token:
  symbol: TST
  transfer_fee: "42"
operators:
  - admin
`))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	// Unset fields still default.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, "TST", cfg.Token.Symbol)
	assert.Equal(t, "42", cfg.Token.TransferFee)
	assert.Equal(t, []string{"admin"}, cfg.Operators)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: redis\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestIsOperator(t *testing.T) {
	cfg := &Config{Operators: []string{"admin", "ops"}}
	assert.True(t, cfg.IsOperator("admin"))
	assert.True(t, cfg.IsOperator("ops"))
	assert.False(t, cfg.IsOperator("alice"))
}
