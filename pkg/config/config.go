// Package config loads studio presets and runtime settings from YAML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/studio/pkg/orchestrator"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the root of a studio configuration file.
type Config struct {
	DefaultStudio string                    `yaml:"default_studio" json:"default_studio"`
	LogLevel      string                    `yaml:"log_level" json:"log_level"`
	FrameRate     int                       `yaml:"frame_rate" json:"frame_rate"`
	Transport     Transport                 `yaml:"transport" json:"transport"`
	HTTP          HTTP                      `yaml:"http" json:"http"`
	Snapshots     Snapshots                 `yaml:"snapshots" json:"snapshots"`
	Studios       []Studio                  `yaml:"studios" json:"studios"`
	Workflows     Workflows                 `yaml:"workflows" json:"workflows"`
	Providers     map[string]map[string]any `yaml:"providers" json:"providers"`
}

// Transport selects the csp message bus.
type Transport struct {
	Kind     string `yaml:"kind" json:"kind"` // memory or redis
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Channel  string `yaml:"channel" json:"channel"`
}

// HTTP configures the inspector endpoint. An empty Addr disables it.
type HTTP struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Snapshots selects where journal history is persisted. An empty Kind disables it.
type Snapshots struct {
	Kind    string        `yaml:"kind" json:"kind"` // file, redis or memory
	Path    string        `yaml:"path" json:"path"`
	Session string        `yaml:"session" json:"session"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`

	// Redact lists regular expressions masked in persisted journal messages.
	Redact []string `yaml:"redact" json:"redact"`

	// KeyEnv names the environment variable holding a base64 AES-256 key.
	// When set, snapshots are encrypted at rest.
	KeyEnv string `yaml:"key_env" json:"key_env"`
	// FallbackKeyEnvs name variables holding retired keys still accepted on load.
	FallbackKeyEnvs []string `yaml:"fallback_key_envs" json:"fallback_key_envs"`
}

// Studio is a workspace preset.
type Studio struct {
	Name           string   `yaml:"name" json:"name"`
	Activities     []string `yaml:"activities" json:"activities"`
	Exclusive      bool     `yaml:"exclusive" json:"exclusive"`
	KeepActivities bool     `yaml:"keep_activities" json:"keep_activities"`
}

// Workflows configures the csp workflows started by the runtime.
type Workflows struct {
	OpenStage OpenFileWorkflow `yaml:"open_stage" json:"open_stage"`
	Shots     ShotWorkflow     `yaml:"shots" json:"shots"`
}

// OpenFileWorkflow configures a file-open state machine.
type OpenFileWorkflow struct {
	Base         int           `yaml:"base" json:"base"`
	Title        string        `yaml:"title" json:"title"`
	Extensions   []string      `yaml:"extensions" json:"extensions"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// Command, when set, runs for every chosen file before it is opened.
	// The file is passed in the STUDIO_FILE environment variable.
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`
}

// ShotWorkflow configures the shot-creation state machine.
type ShotWorkflow struct {
	Base int `yaml:"base" json:"base"`
}

// Provider is the typed form of one entry of the providers section.
// Keys it does not name are kept in Extra.
type Provider struct {
	Name     string         `mapstructure:"-"`
	Kind     string         `mapstructure:"kind"`
	Root     string         `mapstructure:"root"`
	Capacity int            `mapstructure:"capacity"`
	TTL      time.Duration  `mapstructure:"ttl"`
	Extra    map[string]any `mapstructure:",remain"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DefaultStudio: "Layout",
		LogLevel:      "info",
		FrameRate:     60,
		Transport:     Transport{Kind: "memory", Channel: "studio:events"},
		Snapshots:     Snapshots{Path: ".studio/journals", Session: "default"},
		Studios: []Studio{
			{Name: "Layout", Activities: []string{"Outliner", "Properties", "Viewport"}},
			{Name: "Animation", Activities: []string{"Outliner", "Timeline", "Viewport"}, Exclusive: true},
			{Name: "Shading", Activities: []string{"Properties", "TextureInspector", "Viewport"}, Exclusive: true},
		},
		Workflows: Workflows{
			OpenStage: OpenFileWorkflow{Base: 200, Title: "Load Stage", Extensions: []string{"usd", "usda", "usdc", "usdz"}},
			Shots:     ShotWorkflow{Base: 300},
		},
	}
}

// Load reads a configuration file. JSON is used for .json files, YAML otherwise.
// Fields absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		cfg := Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return cfg, cfg.Validate()
	}
	return Parse(data)
}

// Parse decodes a YAML document over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Studios))
	for _, s := range c.Studios {
		if s.Name == "" {
			return fmt.Errorf("studio without a name")
		}
		if s.Name == orchestrator.EmptyStudioName {
			return fmt.Errorf("studio name %q is reserved", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate studio %q", s.Name)
		}
		seen[s.Name] = true
	}
	if c.DefaultStudio != "" && !seen[c.DefaultStudio] {
		return fmt.Errorf("default studio %q is not defined", c.DefaultStudio)
	}

	switch c.Transport.Kind {
	case "", "memory":
	case "redis":
		if c.Transport.Addr == "" {
			return fmt.Errorf("redis transport requires an addr")
		}
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}

	switch c.Snapshots.Kind {
	case "", "memory", "file":
	case "redis":
		if c.Transport.Addr == "" {
			return fmt.Errorf("redis snapshots require transport.addr")
		}
	default:
		return fmt.Errorf("unknown snapshot kind %q", c.Snapshots.Kind)
	}
	if c.Snapshots.Kind != "" && c.Snapshots.Session == "" {
		return fmt.Errorf("snapshots require a session")
	}
	for _, p := range c.Snapshots.Redact {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("snapshots redact pattern %q: %w", p, err)
		}
	}
	if len(c.Snapshots.FallbackKeyEnvs) > 0 && c.Snapshots.KeyEnv == "" {
		return fmt.Errorf("snapshots fallback keys require key_env")
	}

	ids := map[int]string{}
	for name, base := range map[string]struct{ lo, n int }{
		"open_stage": {c.Workflows.OpenStage.Base, 5},
		"shots":      {c.Workflows.Shots.Base, 3},
	} {
		if base.lo <= 0 {
			return fmt.Errorf("workflow %s: base id must be positive", name)
		}
		for id := base.lo; id < base.lo+base.n; id++ {
			if other, ok := ids[id]; ok {
				return fmt.Errorf("workflows %s and %s overlap at id %d", other, name, id)
			}
			ids[id] = name
		}
	}
	return nil
}

// FrameInterval is the duration of one orchestrator service tick.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FrameRate)
}

// ActivityNames returns every activity referenced by a studio, sorted.
func (c *Config) ActivityNames() []string {
	set := map[string]bool{}
	for _, s := range c.Studios {
		for _, a := range s.Activities {
			set[a] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BasicStudio converts the preset into an orchestrator studio.
func (s Studio) BasicStudio() *orchestrator.BasicStudio {
	return &orchestrator.BasicStudio{
		StudioName:     s.Name,
		ActivityNames:  append([]string(nil), s.Activities...),
		IsExclusive:    s.Exclusive,
		KeepActivities: s.KeepActivities,
	}
}

// ProviderConfigs decodes the providers section into typed entries, sorted by name.
func (c *Config) ProviderConfigs() ([]Provider, error) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Provider, 0, len(names))
	for _, name := range names {
		var p Provider
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &p,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(c.Providers[name]); err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		if p.Kind == "" {
			return nil, fmt.Errorf("provider %q: kind is required", name)
		}
		p.Name = name
		out = append(out, p)
	}
	return out, nil
}
