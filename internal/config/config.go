// Package config provides configuration management for agentsync.
// It supports YAML configuration files, environment variables, and sensible
// defaults. All paths live here: components receive an explicit Config at
// construction and never consult process-wide defaults themselves.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/agentsync/agentsync/internal/model"
)

// envNamespace prefixes every environment override (AGENTSYNC_SOURCE_ROOT, ...).
const envNamespace = "AGENTSYNC"

// Config represents the complete agentsync configuration.
type Config struct {
	// Source configures the canonical tree being projected.
	Source SourceConfig `yaml:"source"`

	// Targets configures the output root per target platform.
	Targets TargetsConfig `yaml:"targets"`

	// Sync configures synchronization behavior.
	Sync SyncConfig `yaml:"sync"`

	// Backup configures backup behavior.
	Backup BackupConfig `yaml:"backup"`
}

// SourceConfig locates the canonical source tree and its sidecar documents.
type SourceConfig struct {
	// Root is the canonical tree root (agents/, skills/, commands/,
	// hooks.yaml, plugins/, mcp.json).
	Root string `yaml:"root"`
	// Exclusions is the exclusion-rules document path.
	Exclusions string `yaml:"exclusions"`
}

// TargetsConfig holds the per-target output roots.
type TargetsConfig struct {
	Gemini      string `yaml:"gemini"`
	Antigravity string `yaml:"antigravity"`
	Codex       string `yaml:"codex"`
}

// SyncConfig holds synchronization settings.
type SyncConfig struct {
	// StateDir holds the per-target sync-state documents.
	StateDir string `yaml:"state_dir"`
	// Timeout bounds a run; zero means no deadline. In-flight entries
	// complete after expiry, no new entries start.
	Timeout time.Duration `yaml:"timeout"`
	// Parallel enables processing independent targets concurrently.
	Parallel bool `yaml:"parallel"`
}

// UnmarshalYAML implements yaml.Unmarshaler so the timeout can be written
// as a duration string ("90s", "2m") in the config file.
func (s *SyncConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		StateDir *string `yaml:"state_dir"`
		Timeout  *string `yaml:"timeout"`
		Parallel *bool   `yaml:"parallel"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.StateDir != nil {
		s.StateDir = *raw.StateDir
	}
	if raw.Timeout != nil {
		d, err := time.ParseDuration(*raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid sync timeout %q: %w", *raw.Timeout, err)
		}
		s.Timeout = d
	}
	if raw.Parallel != nil {
		s.Parallel = *raw.Parallel
	}
	return nil
}

// MarshalYAML renders the timeout back as a duration string.
func (s SyncConfig) MarshalYAML() (any, error) {
	out := map[string]any{
		"state_dir": s.StateDir,
		"parallel":  s.Parallel,
	}
	if s.Timeout > 0 {
		out["timeout"] = s.Timeout.String()
	}
	return out, nil
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Dir is the backup root; each run creates a unique subdirectory.
	Dir string `yaml:"dir"`
	// Keep is the number of run backups retained per target.
	Keep int `yaml:"keep"`
}

// Default returns the default configuration rooted in the user's home.
func Default() *Config {
	home, _ := os.UserHomeDir()
	claude := filepath.Join(home, ".claude")
	return &Config{
		Source: SourceConfig{
			Root:       claude,
			Exclusions: filepath.Join(claude, "sync-exclusions.yaml"),
		},
		Targets: TargetsConfig{
			Gemini:      filepath.Join(home, ".gemini"),
			Antigravity: filepath.Join(home, ".gemini", "antigravity"),
			Codex:       filepath.Join(home, ".codex"),
		},
		Sync: SyncConfig{
			StateDir: filepath.Join(claude, "sync-state"),
			Parallel: true,
		},
		Backup: BackupConfig{
			Dir:  filepath.Join(claude, "sync-backups"),
			Keep: 5,
		},
	}
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the default path to the config file.
func FilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "agentsync", configFileName)
}

// Load loads the configuration from the default file, merging with defaults
// and applying environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFromPath(FilePath())
}

// LoadFromPath loads configuration from a specific path over defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is the user's own config file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.applyEnvironment(); err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Save writes the configuration to the default config file.
func (c *Config) Save() error {
	path := FilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by the user
	return os.WriteFile(path, data, 0o644)
}

// env mirrors the override surface as AGENTSYNC_* variables.
type env struct {
	SourceRoot  string `envconfig:"SOURCE_ROOT"`
	Exclusions  string `envconfig:"EXCLUSIONS"`
	GeminiRoot  string `envconfig:"GEMINI_ROOT"`
	AntigravRt  string `envconfig:"ANTIGRAVITY_ROOT"`
	CodexRoot   string `envconfig:"CODEX_ROOT"`
	StateDir    string `envconfig:"STATE_DIR"`
	BackupDir   string `envconfig:"BACKUP_DIR"`
	SyncTimeout string `envconfig:"SYNC_TIMEOUT"`
	Parallel    string `envconfig:"SYNC_PARALLEL"`
}

// applyEnvironment applies AGENTSYNC_* environment variable overrides.
func (c *Config) applyEnvironment() error {
	var e env
	if err := envconfig.Process(envNamespace, &e); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}

	if e.SourceRoot != "" {
		c.Source.Root = e.SourceRoot
	}
	if e.Exclusions != "" {
		c.Source.Exclusions = e.Exclusions
	}
	if e.GeminiRoot != "" {
		c.Targets.Gemini = e.GeminiRoot
	}
	if e.AntigravRt != "" {
		c.Targets.Antigravity = e.AntigravRt
	}
	if e.CodexRoot != "" {
		c.Targets.Codex = e.CodexRoot
	}
	if e.StateDir != "" {
		c.Sync.StateDir = e.StateDir
	}
	if e.BackupDir != "" {
		c.Backup.Dir = e.BackupDir
	}
	if e.SyncTimeout != "" {
		d, err := time.ParseDuration(e.SyncTimeout)
		if err != nil {
			return fmt.Errorf("invalid %s_SYNC_TIMEOUT: %w", envNamespace, err)
		}
		c.Sync.Timeout = d
	}
	if e.Parallel != "" {
		c.Sync.Parallel = parseBool(e.Parallel)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Source,
		validation.Field(&c.Source.Root, validation.Required),
		validation.Field(&c.Source.Exclusions, validation.Required),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Sync,
		validation.Field(&c.Sync.StateDir, validation.Required),
		validation.Field(&c.Sync.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&c.Backup,
		validation.Field(&c.Backup.Dir, validation.Required),
		validation.Field(&c.Backup.Keep, validation.Min(0)),
	)
}

// TargetRoot returns the output root for the given target platform.
func (c *Config) TargetRoot(t model.Target) (string, error) {
	switch t {
	case model.Gemini:
		return c.Targets.Gemini, nil
	case model.Antigravity:
		return c.Targets.Antigravity, nil
	case model.Codex:
		return c.Targets.Codex, nil
	default:
		return "", fmt.Errorf("no output root configured for target %q", t)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
