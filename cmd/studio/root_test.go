package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("log-level", "", "")
	return cmd
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_studio: Shading\nlog_level: warn\n"), 0o644))

	cmd := newTestCmd()
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Shading", cfg.DefaultStudio)

	logger, err := newLogger(cmd, cfg)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewLogger_FlagOverridesConfig(t *testing.T) {
	cmd := newTestCmd()
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	logger, err := newLogger(cmd, cfg)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	require.NoError(t, cmd.Flags().Set("log-level", "loud"))
	_, err = newLogger(cmd, cfg)
	assert.ErrorContains(t, err, "unknown log level")
}
