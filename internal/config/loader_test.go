package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.Equal(t, Default().Addr, cfg.Addr)
	require.Equal(t, 50, cfg.HistoryLimit)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config should be written")
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "addr: \":9000\"\nmedia_url: /files\nping_interval: 15s\nallowed_origins:\n  - example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CHAT_ADDR", ":9100")
	t.Setenv("CHAT_SEND_BUFFER", "64")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Addr)
	require.Equal(t, "/files", cfg.MediaURL)
	require.Equal(t, 15*time.Second, cfg.PingInterval)
	require.Equal(t, 64, cfg.SendBuffer)
	require.Equal(t, []string{"example.com"}, cfg.AllowedOrigins)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: short\n"), 0o600))

	_, _, err := Load(nil, path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWTSecret")
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", DatabasePath: "other.db"})

	require.Equal(t, ":1", cfg.Addr)
	require.Equal(t, "other.db", cfg.DatabasePath)
	require.Equal(t, Default().MediaRoot, cfg.MediaRoot)
}

func TestValidateHistoryLimitCap(t *testing.T) {
	cfg := Default()
	cfg.HistoryLimit = 500
	require.Error(t, cfg.Validate())
}
