/*
Copyright (C) 2026  nostrbase contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config holds the recognized configuration surface (spec §6)
// for a run of the ingest pipeline or a merge-only recovery.
package config

import (
	"fmt"
	"runtime"

	units "github.com/docker/go-units"
)

// IndexMode selects the dedup index's durability/performance tradeoff
// (spec §4.5, C5 "Modes").
type IndexMode string

const (
	IndexSteady    IndexMode = "steady"
	IndexBulkBuild IndexMode = "bulk_build"
)

// Settings is the full recognized configuration surface. Unlike the
// teacher's SettingsT (storage/settings.go), this struct is constructed
// once per run rather than mutated live by a running server, but it
// follows the same shape: one flat struct with an explicit
// default-constructor and a documented field per recognized option.
type Settings struct {
	InputPath  string
	OutputDir  string
	Workers    int
	BatchSize  int

	CompressionLevel int // 0..9

	ValidateID   bool
	ValidateSig  bool
	Prefilter    bool

	IndexMode     IndexMode
	CleanupShards bool

	MaxLineBytes int64

	// RecentSeenCap bounds the worker-local dedup cache (spec §4.6,
	// "Local dedup shortcut").
	RecentSeenCap int
}

// Default returns the documented defaults from spec §6.
func Default() Settings {
	return Settings{
		Workers:          runtime.GOMAXPROCS(0),
		BatchSize:        1000,
		CompressionLevel: 6,
		ValidateID:       true,
		ValidateSig:      true,
		Prefilter:        true,
		IndexMode:        IndexSteady,
		CleanupShards:    false,
		MaxLineBytes:     16 * 1024 * 1024,
		RecentSeenCap:    1 << 16,
	}
}

// DefaultRebuild is Default with the index mode set for a from-scratch
// rebuild (spec §6: "default ... bulk_build for rebuild").
func DefaultRebuild() Settings {
	s := Default()
	s.IndexMode = IndexBulkBuild
	return s
}

// SetMaxLineSize parses a human-readable size ("16MiB", "16777216") the
// way a deployment config file would, rather than requiring callers to
// pre-compute bytes.
func (s *Settings) SetMaxLineSize(human string) error {
	n, err := units.FromHumanSize(human)
	if err != nil {
		return fmt.Errorf("config: invalid max line size %q: %w", human, err)
	}
	s.MaxLineBytes = n
	return nil
}

// Validate sanity-checks the settings before a run starts.
func (s Settings) Validate() error {
	if s.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1")
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("config: batch_size must be >= 1")
	}
	if s.CompressionLevel < 0 || s.CompressionLevel > 9 {
		return fmt.Errorf("config: compression_level must be in 0..9")
	}
	if s.IndexMode != IndexSteady && s.IndexMode != IndexBulkBuild {
		return fmt.Errorf("config: unrecognized index_mode %q", s.IndexMode)
	}
	if s.MaxLineBytes < 1 {
		return fmt.Errorf("config: max_line_bytes must be >= 1")
	}
	if s.OutputDir == "" {
		return fmt.Errorf("config: output dir is required")
	}
	return nil
}
