// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const testOwner = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"SchedulePath", cfg.SchedulePath, ""},
		{"Owner", cfg.Owner, ""},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
}

func TestDefaultDataDir(t *testing.T) {
	dir := DefaultDataDir()
	if !strings.HasSuffix(dir, ".crowdsale") {
		t.Errorf("DefaultDataDir() = %q, want suffix %q", dir, ".crowdsale")
	}
}

func TestConfigPaths(t *testing.T) {
	if got, want := ConfigPath("/srv/crowdsale/"), filepath.Join("/srv/crowdsale", "config"); got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
	cfg := Config{DataDir: "/srv/crowdsale"}
	if got, want := cfg.LedgerPath(), filepath.Join("/srv/crowdsale", "ledger.db"); got != want {
		t.Errorf("LedgerPath = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config")

	original := Config{
		DataDir:      "/tmp/test-crowdsale",
		SchedulePath: "/etc/crowdsale/schedule.yaml",
		Owner:        testOwner,
		LogLevel:     "debug",
		LogFile:      "/tmp/crowdsale.log",
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded != original {
		t.Errorf("round trip: got %+v, want %+v", loaded, original)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Crowdsale Vesting Configuration") {
		t.Error("saved config should start with the header comment")
	}
	for _, key := range []string{"datadir", "schedule", "owner", "loglevel", "logfile"} {
		if !strings.Contains(string(data), key+" = ") {
			t.Errorf("saved config should contain key %q", key)
		}
	}
}

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigParsing(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg Config)
		wantErr error
	}{
		{
			name:    "not_key_value",
			content: "this-is-not-key-value\n",
			wantErr: ErrInvalidConfigLine,
		},
		{
			name:    "empty_key",
			content: " = value\n",
			wantErr: ErrInvalidConfigLine,
		},
		{
			name:    "comments_and_blanks",
			content: "# comment\nowner = " + testOwner + "\n\n# another\nloglevel = debug\n",
			check: func(t *testing.T, cfg Config) {
				if cfg.Owner != testOwner {
					t.Errorf("Owner = %q", cfg.Owner)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
				}
				if cfg.DataDir != DefaultDataDir() {
					t.Errorf("DataDir = %q, want default", cfg.DataDir)
				}
			},
		},
		{
			name:    "unknown_keys_ignored",
			content: "network = mainnet\nschedule = ddao.yaml\n",
			check: func(t *testing.T, cfg Config) {
				if cfg.SchedulePath != "ddao.yaml" {
					t.Errorf("SchedulePath = %q", cfg.SchedulePath)
				}
			},
		},
		{
			name:    "multiple_equals",
			content: "logfile=/tmp/a=b.log\n",
			check: func(t *testing.T, cfg Config) {
				if cfg.LogFile != "/tmp/a=b.log" {
					t.Errorf("LogFile = %q, want %q", cfg.LogFile, "/tmp/a=b.log")
				}
			},
		},
		{
			name:    "whitespace_and_key_case",
			content: "  LogLevel = warn  \n",
			check: func(t *testing.T, cfg Config) {
				if cfg.LogLevel != "warn" {
					t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
				}
			},
		},
		{
			name:    "empty_value",
			content: "logfile=\n",
			check: func(t *testing.T, cfg Config) {
				if cfg.LogFile != "" {
					t.Errorf("LogFile = %q, want empty", cfg.LogFile)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config")
			if err := os.WriteFile(path, []byte(tc.content), 0600); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadConfig(path)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("LoadConfig: got %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}

func TestLoadConfig_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("cannot test permission denial as root")
	}

	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("loglevel=debug\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(path, 0600) })

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig on unreadable file: expected error, got nil")
	}
	if errors.Is(err, ErrConfigNotFound) {
		t.Error("LoadConfig on unreadable file should not return ErrConfigNotFound")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"empty_datadir", func(c *Config) { c.DataDir = "" }, ErrEmptyDataDir},
		{"bad_loglevel", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
		{"owner_not_hex", func(c *Config) { c.Owner = "owner" }, ErrInvalidOwner},
		{"owner_bad_checksum", func(c *Config) { c.Owner = "0x70997970c51812DC3A010C7d01b50e0d17dc79C8" }, ErrInvalidOwner},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if err := ValidateConfig(cfg); !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfig_LogLevelCaseInsensitive(t *testing.T) {
	for _, level := range []string{"INFO", "Debug", "WARN", "Error", "dEbUg"} {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = level
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with LogLevel %q: %v", level, err)
			}
		})
	}
}

func TestOwnerAddress(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok, err := cfg.OwnerAddress(); ok || err != nil {
		t.Errorf("OwnerAddress without owner: ok=%v err=%v", ok, err)
	}

	cfg.Owner = testOwner
	owner, ok, err := cfg.OwnerAddress()
	if err != nil || !ok {
		t.Fatalf("OwnerAddress: ok=%v err=%v", ok, err)
	}
	if owner.Hex() != testOwner {
		t.Errorf("OwnerAddress = %s, want %s", owner.Hex(), testOwner)
	}

	cfg.Owner = strings.ToLower(testOwner) + "00"
	if _, _, err := cfg.OwnerAddress(); !errors.Is(err, ErrInvalidOwner) {
		t.Errorf("OwnerAddress bad: got %v, want ErrInvalidOwner", err)
	}
}

// ---------------------------------------------------------------------------
// NewLogger tests
// ---------------------------------------------------------------------------

func TestNewLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "crowdsale.log")
	cfg := DefaultConfig()
	cfg.LogLevel = "WARN"
	cfg.LogFile = logFile

	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "dropped") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("warn entry missing from log file")
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose"
	if _, err := NewLogger(cfg); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("NewLogger: got %v, want ErrInvalidLogLevel", err)
	}
}
