package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.DataSource.Kind)
	assert.Equal(t, DefaultLocalPath, cfg.DataSource.Local.Path)
	assert.Equal(t, DefaultModel, cfg.Provider.Model)
	assert.Empty(t, cfg.Provider.BaseURL)
	assert.Equal(t, 2*time.Hour, cfg.DataSource.Validity.Duration)
}

func TestLoadFromDecodesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[datasource]
kind = "remote"
validity = "45m"

[datasource.remote]
driver = "postgres"
host = "db.internal"
user = "reader"
database = "shop"

[provider]
model = "llama-3.1-8b-instant"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "remote", cfg.DataSource.Kind)
	assert.Equal(t, "postgres", cfg.DataSource.Remote.Driver)
	assert.Equal(t, "db.internal", cfg.DataSource.Remote.Host)
	assert.Equal(t, 45*time.Minute, cfg.DataSource.Validity.Duration)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Provider.Model)
	assert.Equal(t, DefaultProvider, cfg.Provider.Name)
}

func TestApplyEnvPrefersFirstNonEmptyKey(t *testing.T) {
	cfg := Defaults()
	env := map[string]string{
		"MYSQL_HOST":          "mysql.local",
		"SQLCHAT_DB_HOST":     "",
		"SQLCHAT_DB_PASSWORD": "s3cret",
		"SQLCHAT_MODEL":       "  llama3-70b-8192 ",
	}
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "mysql.local", cfg.DataSource.Remote.Host)
	assert.Equal(t, "s3cret", cfg.DataSource.Remote.Password)
	assert.Equal(t, "llama3-70b-8192", cfg.Provider.Model)
}

func TestSaveNeverPersistsRemotePassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Defaults()
	cfg.DataSource.Remote.Password = "hunter2"

	require.NoError(t, cfg.SaveTo(path))
	assert.Equal(t, "hunter2", cfg.DataSource.Remote.Password)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "hunter2"))
	assert.True(t, strings.Contains(string(raw), `validity = "2h0m0s"`))
}

func TestFormModelMasksPassword(t *testing.T) {
	cfg := Defaults()
	cfg.DataSource.Kind = "remote"
	cfg.DataSource.Remote.Password = "hunter2"

	view := NewFormModel(cfg, "/tmp/config.toml").View()
	assert.NotContains(t, view, "hunter2")
	assert.Contains(t, view, "********")
}
