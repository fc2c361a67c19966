// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bitfsorg/crowdsale-vesting-go/address"
	"github.com/bitfsorg/crowdsale-vesting-go/vesting"
)

//go:embed ddao.yaml
var referenceSchedule []byte

// roundEntry is one element of the schedule file's rounds list.
type roundEntry struct {
	Index            uint32        `yaml:"index"`
	Name             string        `yaml:"name"`
	Start            int64         `yaml:"start"`
	Cliff            time.Duration `yaml:"cliff"`
	Duration         time.Duration `yaml:"duration"`
	InitialUnlockBps uint16        `yaml:"initial_unlock_bps"`
}

// scheduleFile is the on-disk YAML layout. Allocations are keyed by round
// index, then by checksummed wallet address; amounts are base-10 strings in
// the token's smallest unit.
type scheduleFile struct {
	Rounds      []roundEntry                 `yaml:"rounds"`
	Allocations map[uint32]map[string]string `yaml:"allocations"`
}

// LoadSchedule reads and parses a YAML schedule file.
func LoadSchedule(path string) (*vesting.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("config: read schedule %s: %w", path, err)
	}
	return ParseSchedule(data)
}

// ParseSchedule decodes a YAML schedule. A file without a rounds list uses
// vesting.ReferenceRounds.
func ParseSchedule(data []byte) (*vesting.Schedule, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	rounds := vesting.ReferenceRounds()
	if len(file.Rounds) > 0 {
		rounds = make([]vesting.Round, 0, len(file.Rounds))
		for _, e := range file.Rounds {
			rounds = append(rounds, vesting.Round{
				Index:            vesting.RoundIndex(e.Index),
				Name:             e.Name,
				Start:            time.Unix(e.Start, 0).UTC(),
				Cliff:            e.Cliff,
				Duration:         e.Duration,
				InitialUnlockBps: e.InitialUnlockBps,
			})
		}
	}

	table := vesting.NewAllocationTable()
	for idx, byWallet := range file.Allocations {
		for w, amount := range byWallet {
			wallet, err := address.ParseStrict(w)
			if err != nil {
				return nil, fmt.Errorf("%w: round %d: %w", ErrInvalidSchedule, idx, err)
			}
			if err := table.SetString(vesting.RoundIndex(idx), wallet, amount); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
			}
		}
	}

	s, err := vesting.NewSchedule(rounds, table)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	return s, nil
}

// ReferenceSchedule returns the built-in DDAO crowdsale schedule: the three
// reference rounds and every investor allocation of the original sale.
func ReferenceSchedule() (*vesting.Schedule, error) {
	return ParseSchedule(referenceSchedule)
}

// LoadConfiguredSchedule returns the schedule selected by cfg.
func LoadConfiguredSchedule(cfg Config) (*vesting.Schedule, error) {
	if cfg.SchedulePath == "" {
		return ReferenceSchedule()
	}
	return LoadSchedule(cfg.SchedulePath)
}
