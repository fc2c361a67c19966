// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the operator settings for a crowdsale ledger.
type Config struct {
	DataDir      string // directory holding ledger.db
	SchedulePath string // YAML schedule; empty selects the built-in DDAO schedule
	Owner        string // administrative owner address; empty disables lock/unlock
	LogLevel     string // "debug", "info", "warn", "error"
	LogFile      string // empty logs to stderr
}

// DefaultDataDir returns ~/.crowdsale, or .crowdsale if the home directory
// cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crowdsale"
	}
	return filepath.Join(home, ".crowdsale")
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
	}
}

// ConfigPath returns the path of the config file inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// LedgerPath returns the path of the bbolt ledger inside the data directory.
func (c Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// LoadConfig reads a key = value config file. Fields missing from the file
// keep their DefaultConfig values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		switch key {
		case "datadir":
			cfg.DataDir = value
		case "schedule":
			cfg.SchedulePath = value
		case "owner":
			cfg.Owner = value
		case "loglevel":
			cfg.LogLevel = value
		case "logfile":
			cfg.LogFile = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits "key = value" on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Crowdsale Vesting Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "schedule = %s\n", cfg.SchedulePath)
	fmt.Fprintf(&b, "owner = %s\n", cfg.Owner)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
