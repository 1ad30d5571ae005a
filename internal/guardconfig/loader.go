// Package guardconfig loads the per-user security configuration: the active
// security level and the six override lists. The core treats the loaded
// values as read-only inputs to each check; it never persists them.
package guardconfig

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

// Error definitions
var (
	// ErrInvalidConfigPath is returned when the config file path is empty.
	ErrInvalidConfigPath = errors.New("invalid config file path")
)

// Config is the on-disk configuration shape.
type Config struct {
	// SecurityLevel is clamped to [1,5] on load.
	SecurityLevel int `toml:"security_level"`

	// Shell, Dir, and Domain hold the user override lists. Overrides
	// extend the defaults; always-blocked rules cannot be weakened.
	Shell  OverrideList `toml:"shell"`
	Dir    OverrideList `toml:"dir"`
	Domain OverrideList `toml:"domain"`

	// Sandbox tunes execution limits.
	Sandbox SandboxConfig `toml:"sandbox"`

	// AuditDB is the path of the sqlite audit store; empty disables it.
	AuditDB string `toml:"audit_db"`
}

// OverrideList is one allow/block list pair.
type OverrideList struct {
	Allow []string `toml:"allow"`
	Block []string `toml:"block"`
}

// SandboxConfig holds execution limits.
type SandboxConfig struct {
	TimeoutSeconds int   `toml:"timeout_seconds"`
	MaxOutputBytes int64 `toml:"max_output_bytes"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		SecurityLevel: guardtypes.DefaultSecurityLevel,
	}
}

// Load reads and decodes a TOML config file, clamping the security level.
// Unknown keys are ignored.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrInvalidConfigPath
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(content)
}

// Parse decodes TOML config content.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.SecurityLevel = clampLevel(cfg.SecurityLevel)
	return cfg, nil
}

// CheckOptions converts the config into the options value the permission
// engine consumes.
func (c *Config) CheckOptions() guardtypes.CheckOptions {
	return guardtypes.CheckOptions{
		SecurityLevel: c.SecurityLevel,
		ShellAllow:    c.Shell.Allow,
		ShellBlock:    c.Shell.Block,
		DirAllow:      c.Dir.Allow,
		DirBlock:      c.Dir.Block,
		DomainAllow:   c.Domain.Allow,
		DomainBlock:   c.Domain.Block,
	}.Normalize()
}

// Timeout returns the configured sandbox timeout, or zero when unset so
// the sandbox default applies.
func (c *Config) Timeout() time.Duration {
	if c.Sandbox.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Sandbox.TimeoutSeconds) * time.Second
}

func clampLevel(level int) int {
	switch {
	case level == 0:
		return guardtypes.DefaultSecurityLevel
	case level < guardtypes.MinSecurityLevel:
		return guardtypes.MinSecurityLevel
	case level > guardtypes.MaxSecurityLevel:
		return guardtypes.MaxSecurityLevel
	}
	return level
}
