package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("NOTIFICATION_RETENTION_DAYS", "not-a-number")

	cfg := LoadServer()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30, cfg.NotificationRetentionDays)
	assert.Equal(t, "0 3 * * *", cfg.RetentionCron)
}

func TestLoadAgentYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: http://chat.internal
user_id: u1
token: abc
message_interval: 2s
store:
  backend: memory
`), 0o600))
	t.Setenv("TEAMCHAT_USER_NAME", "Alice")

	cfg, err := LoadAgent(path)
	require.NoError(t, err)
	assert.Equal(t, "http://chat.internal", cfg.BaseURL)
	assert.Equal(t, "Alice", cfg.UserName)
	assert.Equal(t, 2*time.Second, cfg.MessageInterval)
	assert.Equal(t, 10*time.Second, cfg.DirectoryInterval)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestAgentValidate(t *testing.T) {
	cfg := defaultAgent()
	assert.Error(t, cfg.Validate())

	cfg.UserID = "u1"
	cfg.Token = "t"
	assert.NoError(t, cfg.Validate())

	cfg.Store.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg.Store.Backend = "floppy"
	assert.Error(t, cfg.Validate())
}
