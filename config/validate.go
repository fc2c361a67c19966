// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Owner != "" {
		if _, err := address.ParseStrict(cfg.Owner); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOwner, err)
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// OwnerAddress returns the parsed owner address. ok is false when no owner
// is configured.
func (c Config) OwnerAddress() (owner address.Address, ok bool, err error) {
	if c.Owner == "" {
		return address.Zero, false, nil
	}
	owner, err = address.ParseStrict(c.Owner)
	if err != nil {
		return address.Zero, false, fmt.Errorf("%w: %w", ErrInvalidOwner, err)
	}
	return owner, true, nil
}
