package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/papernet/pkg/paper"
)

// DefaultPath is the config file the CLI looks for in the working directory.
const DefaultPath = "papernet.yml"

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

const (
	// MaxInstanceNameLength is the maximum length for an instance name (DNS-compatible)
	MaxInstanceNameLength = 63
)

var (
	// InstanceNamePattern must be DNS-compatible: lowercase alphanumeric,
	// hyphens allowed but not at start or end
	InstanceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
)

// PapernetConfig represents the top-level papernet.yml configuration
type PapernetConfig struct {
	Version   string       `yaml:"version"`
	Principal string       `yaml:"principal,omitempty"` // Identity the CLI acts as when evaluating policy rules
	Ledger    LedgerConfig `yaml:"ledger"`
	Policy    paper.Policy `yaml:"policy,omitempty"`
}

// LedgerConfig selects and configures the storage backend
type LedgerConfig struct {
	Backend string        `yaml:"backend"` // "sqlite" or "redis"
	SQLite  *SQLiteConfig `yaml:"sqlite,omitempty"`
	Redis   *RedisConfig  `yaml:"redis,omitempty"`
}

// SQLiteConfig specifies the database file
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig specifies the Redis server and the namespace used on it
type RedisConfig struct {
	URL      string `yaml:"url"`
	Instance string `yaml:"instance"`
}

// Default returns the configuration written by `papernet init`.
func Default() *PapernetConfig {
	return &PapernetConfig{
		Version: "1.0",
		Ledger: LedgerConfig{
			Backend: BackendSQLite,
			SQLite:  &SQLiteConfig{Path: "papernet.db"},
		},
		Policy: paper.DefaultPolicy(),
	}
}

// Validate performs strict validation on the configuration
func (c *PapernetConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Ledger.Validate(); err != nil {
		return err
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate checks the backend selection and its settings
func (l *LedgerConfig) Validate() error {
	switch l.Backend {
	case BackendSQLite:
		if l.SQLite == nil || l.SQLite.Path == "" {
			return fmt.Errorf("ledger.sqlite.path is required for the sqlite backend")
		}
	case BackendRedis:
		if l.Redis == nil || l.Redis.URL == "" {
			return fmt.Errorf("ledger.redis.url is required for the redis backend")
		}
		if l.Redis.Instance == "" {
			l.Redis.Instance = "default"
		}
		if err := ValidateInstanceName(l.Redis.Instance); err != nil {
			return fmt.Errorf("ledger.redis.instance: %w", err)
		}
	case "":
		return fmt.Errorf("ledger.backend is required")
	default:
		return fmt.Errorf("invalid ledger backend: %s (must be 'sqlite' or 'redis')", l.Backend)
	}
	return nil
}

// ValidateInstanceName checks if an instance name is valid according to DNS naming rules.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxInstanceNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxInstanceNameLength)
	}

	if !InstanceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// Load reads and validates papernet.yml from the specified path.
// A relative sqlite path is resolved against the config file's directory.
func Load(path string) (*PapernetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config PapernetConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Ledger.SQLite != nil && config.Ledger.SQLite.Path != "" && !filepath.IsAbs(config.Ledger.SQLite.Path) {
		config.Ledger.SQLite.Path = filepath.Join(filepath.Dir(path), config.Ledger.SQLite.Path)
	}

	return &config, nil
}

// Write validates c and saves it to path. It refuses to overwrite an
// existing file unless force is set.
func Write(path string, c *PapernetConfig, force bool) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadPolicy reads a standalone policy file (the policy: section on its own).
func LoadPolicy(path string) (paper.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	var policy paper.Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if policy == nil {
		policy = paper.DefaultPolicy()
	}
	return policy, nil
}
