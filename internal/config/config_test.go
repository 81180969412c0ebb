package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(dir, "dosetrack.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, filepath.Join(dir, "badger"), cfg.Storage.BadgerPath)
	assert.True(t, cfg.Reminders.Enabled)
	assert.Equal(t, 48, cfg.Reminders.DedupTTLHours)
	assert.Equal(t, 7, cfg.Billing.TrialDays)
	assert.NotEmpty(t, cfg.Security.JWTSecret)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dosetrack.yaml")

	content := []byte(`
server:
  port: 9090
security:
  admin_password: hunter2
billing:
  trial_days: 14
`)
	require.NoError(t, os.WriteFile(path, content, 0600))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.Security.AdminPassword)
	assert.Equal(t, 14, cfg.Billing.TrialDays)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DOSETRACK_SERVER_PORT", "9999")
	t.Setenv("DOSETRACK_SECURITY_JWT_SECRET", "env-secret")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Security.JWTSecret)
}

func TestValidateRejectsBadPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dosetrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: -1\n"), 0600))

	_, err := Load(path, dir)
	assert.Error(t, err)
}

func TestValidateRequiresChannelTokens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dosetrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("channels:\n  telegram:\n    enabled: true\n"), 0600))

	_, err := Load(path, dir)
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dosetrack.yaml")

	require.NoError(t, WriteDefault(path))

	// Refuses to clobber an existing file.
	assert.Error(t, WriteDefault(path))

	cfg, err := Load(path, dir)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
