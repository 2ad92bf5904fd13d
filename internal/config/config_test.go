package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aiacademy/academy-client/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.New()

	require.Equal(t, "AI Academy", cfg.GetAppName())
	require.Equal(t, "./data", cfg.GetDataFolder())
	require.Equal(t, "http://localhost:8000", cfg.GetAPIBaseURL())
	require.Equal(t, config.StorageFile, cfg.GetStorageBackend())
	require.Equal(t, config.ProviderStatic, cfg.GetAuthProvider())
	require.Equal(t, 14*24*time.Hour, cfg.GetTokenValidity())
	require.Equal(t, 30*time.Minute, cfg.GetIdleTimeout())
	require.Equal(t, 30*time.Minute, cfg.GetRefreshThreshold())
	require.True(t, cfg.GetAutoRefresh())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_NAME", "Academy Test")
	t.Setenv("SESSION_STORAGE", config.StorageSQLite)
	t.Setenv("IDLE_TIMEOUT", "5m")
	t.Setenv("AUTO_REFRESH", "false")
	t.Setenv("AUTH_PROVIDER", config.ProviderOidc)

	cfg := config.New()

	require.Equal(t, "Academy Test", cfg.GetAppName())
	require.Equal(t, config.StorageSQLite, cfg.GetStorageBackend())
	require.Equal(t, 5*time.Minute, cfg.GetIdleTimeout())
	require.False(t, cfg.GetAutoRefresh())
	require.Equal(t, config.ProviderOidc, cfg.GetAuthProvider())
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("IDLE_TIMEOUT", "soon")

	cfg := config.New()

	require.Equal(t, 30*time.Minute, cfg.GetIdleTimeout())
}

func TestFileOverlay(t *testing.T) {
	t.Setenv("APP_NAME", "From Env")
	path := filepath.Join(t.TempDir(), "academy.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name = "From File"
idle_timeout = "10m"
auto_refresh = false
oidc_issuer_url = "https://accounts.example.com"
`), 0o600))

	cfg, err := config.NewFromFile(path)
	require.NoError(t, err)

	// File values win; unset values fall back to the environment.
	require.Equal(t, "From File", cfg.GetAppName())
	require.Equal(t, 10*time.Minute, cfg.GetIdleTimeout())
	require.False(t, cfg.GetAutoRefresh())
	require.Equal(t, "https://accounts.example.com", cfg.GetOidcIssuerURL())
	require.Equal(t, "./data", cfg.GetDataFolder())
}

func TestFileOverlayMissingFile(t *testing.T) {
	_, err := config.NewFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
