package manager_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/djeday123/gomanaged/core"
	"github.com/djeday123/gomanaged/manager"
)

func TestDefaultConfig(t *testing.T) {
	cfg := manager.DefaultConfig()
	require.Equal(t, "cpu", cfg.DefaultSpace)
	require.Equal(t, "disabled", cfg.LogLevel)

	m, err := manager.New(cfg)
	require.NoError(t, err)
	require.Equal(t, core.CPU, m.DefaultSpace())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "managed.toml")
	content := "default_space = \"gpu\"\nlog_level = \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := manager.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "gpu", cfg.DefaultSpace)
	require.Equal(t, "debug", cfg.LogLevel)

	m, err := manager.New(cfg)
	require.NoError(t, err)
	require.Equal(t, core.GPU, m.DefaultSpace())
}

func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "managed.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o644))

	cfg, err := manager.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "cpu", cfg.DefaultSpace, "unset keys keep their defaults")
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := manager.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := manager.New(manager.Config{DefaultSpace: "tpu", LogLevel: "disabled"})
	require.Error(t, err)

	_, err = manager.New(manager.Config{DefaultSpace: "cpu", LogLevel: "loudest"})
	require.Error(t, err)
}
