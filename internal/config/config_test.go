package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, 5, cfg.Reconcile.WindowMinutes)
	require.False(t, cfg.Reconcile.FuzzyMerchants)
	require.Equal(t, "Asia/Kolkata", cfg.Timezone)
	require.Equal(t, 5, cfg.Auth.OTPTTLMinutes)
	require.Equal(t, "http", cfg.Classifier.Provider)
	require.NotEmpty(t, cfg.AA.BaseURL)
	require.NotEmpty(t, cfg.Database.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FINLINK_HTTP_ADDR", ":9090")
	t.Setenv("FINLINK_RECONCILE_WINDOWMINUTES", "10")
	t.Setenv("FINLINK_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, 10, cfg.Reconcile.WindowMinutes)
	require.Equal(t, "UTC", cfg.Timezone)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
timezone = "UTC"

[http]
addr = ":7070"

[reconcile]
windowminutes = 3
fuzzymerchants = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("FINLINK_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTP.Addr)
	require.Equal(t, 3, cfg.Reconcile.WindowMinutes)
	require.True(t, cfg.Reconcile.FuzzyMerchants)
	require.Equal(t, "UTC", cfg.Timezone)
}
