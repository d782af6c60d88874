package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/studio/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
default_studio: Animation
frame_rate: 30
transport:
  kind: redis
  addr: localhost:6379
  channel: studio:test
snapshots:
  kind: file
  path: ./journals
  session: shot010
studios:
  - name: Layout
    activities: [Outliner, Properties]
  - name: Animation
    activities: [Properties, Timeline]
    exclusive: true
    keep_activities: true
workflows:
  open_stage:
    base: 200
    poll_interval: 50ms
    command: usdchecker
    args: [--strict]
  shots:
    base: 300
providers:
  textures:
    kind: texture_cache
    capacity: "128"
    ttl: 5m
    format: rgba8
  assets:
    kind: asset_root
    root: /mnt/assets
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Animation", cfg.DefaultStudio)
	assert.Equal(t, "info", cfg.LogLevel, "unset fields keep defaults")
	assert.Equal(t, time.Second/30, cfg.FrameInterval())
	assert.Equal(t, "redis", cfg.Transport.Kind)
	assert.Equal(t, 50*time.Millisecond, cfg.Workflows.OpenStage.PollInterval)
	assert.Equal(t, "usdchecker", cfg.Workflows.OpenStage.Command)
	assert.Equal(t, []string{"--strict"}, cfg.Workflows.OpenStage.Args)
	assert.Equal(t, []string{"Outliner", "Properties", "Timeline"}, cfg.ActivityNames())

	require.Len(t, cfg.Studios, 2)
	s := cfg.Studios[1].BasicStudio()
	assert.Equal(t, "Animation", s.Name())
	assert.Equal(t, []string{"Properties", "Timeline"}, s.Activities())
	assert.True(t, s.Exclusive())
	assert.False(t, s.MustDeactivateUnrelatedActivitiesOnActivation())
}

func TestProviderConfigs(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	providers, err := cfg.ProviderConfigs()
	require.NoError(t, err)
	require.Len(t, providers, 2)

	assert.Equal(t, "assets", providers[0].Name)
	assert.Equal(t, "/mnt/assets", providers[0].Root)

	tex := providers[1]
	assert.Equal(t, "textures", tex.Name)
	assert.Equal(t, "texture_cache", tex.Kind)
	assert.Equal(t, 128, tex.Capacity)
	assert.Equal(t, 5*time.Minute, tex.TTL)
	assert.Equal(t, "rgba8", tex.Extra["format"])
}

func TestProviderConfigs_RequiresKind(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = map[string]map[string]any{"cache": {"capacity": 3}}
	_, err := cfg.ProviderConfigs()
	assert.ErrorContains(t, err, "kind is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		err    string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"reserved studio", func(c *config.Config) { c.Studios = append(c.Studios, config.Studio{Name: "Empty"}) }, "reserved"},
		{"duplicate studio", func(c *config.Config) { c.Studios = append(c.Studios, c.Studios[0]) }, "duplicate"},
		{"unnamed studio", func(c *config.Config) { c.Studios = append(c.Studios, config.Studio{}) }, "without a name"},
		{"unknown default", func(c *config.Config) { c.DefaultStudio = "Nope" }, "not defined"},
		{"redis without addr", func(c *config.Config) { c.Transport.Kind = "redis" }, "requires an addr"},
		{"unknown transport", func(c *config.Config) { c.Transport.Kind = "nats" }, "unknown transport"},
		{"unknown snapshots", func(c *config.Config) { c.Snapshots.Kind = "s3" }, "unknown snapshot"},
		{"snapshots without session", func(c *config.Config) { c.Snapshots.Kind = "file"; c.Snapshots.Session = "" }, "require a session"},
		{"bad redact pattern", func(c *config.Config) { c.Snapshots.Redact = []string{"("} }, "redact pattern"},
		{"fallback keys without key", func(c *config.Config) { c.Snapshots.FallbackKeyEnvs = []string{"OLD"} }, "require key_env"},
		{"overlapping workflows", func(c *config.Config) { c.Workflows.Shots.Base = 203 }, "overlap"},
		{"zero base", func(c *config.Config) { c.Workflows.Shots.Base = 0 }, "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "studio.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sample), 0o644))
	cfg, err := config.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Animation", cfg.DefaultStudio)

	jsonPath := filepath.Join(dir, "studio.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"frame_rate": 24}`), 0o644))
	cfg, err = config.Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.FrameRate)
	assert.Len(t, cfg.Studios, 3)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("studios: [oops"), 0o644))
	_, err = config.Load(bad)
	assert.Error(t, err)
}
