// Package config loads the application configuration from a YAML file,
// falling back to defaults when the file is absent. Only a malformed file is
// a hard error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDirName is the application directory under the user home.
const DefaultDirName = ".projectkey"

// FileName is the configuration file name inside the application directory.
const FileName = "config.yaml"

// Config is the full application configuration.
type Config struct {
	// VaultPath is the default vault file opened when none is given.
	VaultPath string `yaml:"vault_path"`

	Logging   Logging   `yaml:"logging"`
	Backups   Backups   `yaml:"backups"`
	Audit     Audit     `yaml:"audit"`
	Emergency Emergency `yaml:"emergency"`
	Groups    Groups    `yaml:"groups"`
}

// Logging configures the process logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Backups configures the pre-save backup rotation.
type Backups struct {
	Dir      string `yaml:"dir"`
	MaxCount int    `yaml:"max_count"`
}

// Audit configures the background security loops.
type Audit struct {
	DuplicateInterval time.Duration `yaml:"duplicate_interval"`
	StrengthInterval  time.Duration `yaml:"strength_interval"`
	PwnedInterval     time.Duration `yaml:"pwned_interval"`
	PwnedEnabled      bool          `yaml:"pwned_enabled"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	RecycleRetention  time.Duration `yaml:"recycle_retention"`
}

// Emergency configures the inactivity heartbeat.
type Emergency struct {
	Enabled       bool          `yaml:"enabled"`
	StatusFile    string        `yaml:"status_file"`
	Passphrase    string        `yaml:"passphrase"`
	ThresholdDays int           `yaml:"threshold_days"`
	CheckInterval time.Duration `yaml:"check_interval"`
	RecoveryFile  string        `yaml:"recovery_file"`
}

// Groups names the reserved groups.
type Groups struct {
	Default    string `yaml:"default"`
	RecycleBin string `yaml:"recycle_bin"`
}

// Dir returns the application directory, creating is left to callers.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

// Default returns the stock configuration rooted at dir.
func Default(dir string) Config {
	return Config{
		VaultPath: filepath.Join(dir, "vault.pkv"),
		Logging:   Logging{Level: "info"},
		Backups: Backups{
			Dir:      filepath.Join(dir, "backups"),
			MaxCount: 5,
		},
		Audit: Audit{
			DuplicateInterval: 30 * time.Second,
			StrengthInterval:  30 * time.Second,
			PwnedInterval:     30 * time.Second,
			PwnedEnabled:      true,
			SweepInterval:     time.Hour,
			RecycleRetention:  30 * 24 * time.Hour,
		},
		Emergency: Emergency{
			Enabled:       false,
			StatusFile:    filepath.Join(dir, "heartbeat.json"),
			ThresholdDays: 30,
			CheckInterval: time.Hour,
			RecoveryFile:  filepath.Join(dir, "recovery-kit.json"),
		},
		Groups: Groups{Default: "Personal", RecycleBin: "Recycle Bin"},
	}
}

// Load reads dir/config.yaml over the defaults. A missing file returns the
// defaults; a malformed file returns an error the caller should treat as
// fatal.
func Load(dir string) (Config, error) {
	cfg := Default(dir)

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read configuration: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: malformed configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HistoryFile returns the recent-vaults file under dir.
func HistoryFile(dir string) string {
	return filepath.Join(dir, "history.json")
}

// JournalDir returns the per-vault activity journal directory under dir.
func JournalDir(dir string) string {
	return filepath.Join(dir, "journal")
}

func (c Config) validate() error {
	if c.Backups.MaxCount < 1 {
		return fmt.Errorf("config: backups.max_count must be at least 1")
	}
	if c.Emergency.Enabled {
		if c.Emergency.Passphrase == "" {
			return fmt.Errorf("config: emergency.passphrase is required when the heartbeat is enabled")
		}
		if c.Emergency.ThresholdDays < 1 {
			return fmt.Errorf("config: emergency.threshold_days must be at least 1")
		}
	}
	if c.Groups.Default == "" || c.Groups.RecycleBin == "" {
		return fmt.Errorf("config: reserved group names must not be empty")
	}
	if c.Groups.Default == c.Groups.RecycleBin {
		return fmt.Errorf("config: reserved group names must differ")
	}
	return nil
}
