package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "https://pm.example.com/")
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://pm.example.com", cfg.UpstreamURL, "trailing slash trimmed")
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.False(t, cfg.ForwardSessionCookie)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.PushEnabled())
}

func TestLoad_MissingUpstream(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "")
	t.Setenv("SESSION_SECRET", "test-secret")
	os.Unsetenv("UPSTREAM_URL")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseUserAPIKeys(t *testing.T) {
	cfg := &Config{UserAPIKeys: "Anna@Example.com:key-1, bob@example.com:lt_a:b:c"}

	keys, err := cfg.ParseUserAPIKeys()
	require.NoError(t, err)
	assert.Equal(t, "key-1", keys["anna@example.com"], "email lowercased")
	assert.Equal(t, "lt_a:b:c", keys["bob@example.com"], "key may contain colons")
}

func TestParseUserAPIKeys_Invalid(t *testing.T) {
	cfg := &Config{UserAPIKeys: "no-colon-here"}
	_, err := cfg.ParseUserAPIKeys()
	assert.Error(t, err)

	cfg = &Config{UserAPIKeys: "a@b.com:"}
	_, err = cfg.ParseUserAPIKeys()
	assert.Error(t, err)
}

func TestParseUserAPIKeys_Empty(t *testing.T) {
	cfg := &Config{}
	keys, err := cfg.ParseUserAPIKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDefaultProbe(t *testing.T) {
	p := DefaultProbe()
	assert.Contains(t, p.AuthenticatedPaths, "/dashboard")
	assert.Contains(t, p.FailureMarkers, `name="password"`)
	assert.Equal(t, "Nowe", p.StatusI18n["status.new"])
	assert.NotEmpty(t, p.UserAgent)
}

func TestLoadProbe_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probe.yaml")
	content := []byte("login_path_fragment: /signin/\nstatus_i18n:\n  status.new: Neu\n  status.custom: Własny\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	p, err := LoadProbe(path)
	require.NoError(t, err)
	assert.Equal(t, "/signin/", p.LoginPathFragment)
	assert.Equal(t, "Neu", p.StatusI18n["status.new"], "file overrides default")
	assert.Equal(t, "Własny", p.StatusI18n["status.custom"], "file adds new keys")
	assert.Equal(t, "Zrobione", p.StatusI18n["status.done"], "untouched defaults survive")
	assert.Contains(t, p.AuthenticatedPaths, "/dashboard", "absent fields keep defaults")
}

func TestLoadProbe_MissingFile(t *testing.T) {
	_, err := LoadProbe("/nonexistent/probe.yaml")
	assert.Error(t, err)
}
