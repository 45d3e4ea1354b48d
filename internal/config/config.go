/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"godiagram/internal/snap"
	"godiagram/internal/undo"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type SnapConfig struct {
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0,lte=200"`
	GridSize      float64 `yaml:"grid_size" validate:"gt=0,lte=1000"`
	Corners       bool    `yaml:"corners"`
	EdgeMidpoints bool    `yaml:"edge_midpoints"`
	Centers       bool    `yaml:"centers"`
	Grid          bool    `yaml:"grid"`
	// GuideThreshold is the smart-guide distance used while dragging shapes.
	GuideThreshold float64 `yaml:"guide_threshold" validate:"gte=0,lte=200"`
}

type LayoutConfig struct {
	GridColumns int     `yaml:"grid_columns" validate:"gte=1,lte=100"`
	SpacingX    float64 `yaml:"spacing_x" validate:"gte=0"`
	SpacingY    float64 `yaml:"spacing_y" validate:"gte=0"`
	DefaultGap  float64 `yaml:"default_gap" validate:"gte=0"`
}

type HistoryConfig struct {
	MaxBytes   int `yaml:"max_bytes" validate:"gte=0"`
	MaxDepth   int `yaml:"max_depth" validate:"gte=0,lte=10000"`
	CoalesceMs int `yaml:"coalesce_ms" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version" validate:"gte=1"`
	Snap          SnapConfig    `yaml:"snap"`
	Layout        LayoutConfig  `yaml:"layout"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Snap: SnapConfig{
			Tolerance: snap.DefaultTolerance, GridSize: snap.DefaultGridSize,
			Corners: true, EdgeMidpoints: true, Centers: true, Grid: true,
			GuideThreshold: 6,
		},
		Layout:  LayoutConfig{GridColumns: 4, SpacingX: 120, SpacingY: 120, DefaultGap: 20},
		History: HistoryConfig{MaxBytes: 16 * 1024 * 1024, MaxDepth: 200, CoalesceMs: 400},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath      = "GDG_CONFIG"
	EnvSnapTolerance   = "GDG_SNAP_TOLERANCE"
	EnvGridSize        = "GDG_GRID_SIZE"
	EnvSnapGrid        = "GDG_SNAP_GRID"
	EnvHistoryMaxDepth = "GDG_HISTORY_MAX_DEPTH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GDG_LOG_LEVEL"
	EnvLogFormat = "GDG_LOG_FORMAT"
	EnvLogSource = "GDG_LOG_SOURCE"
	EnvLogFile   = "GDG_LOG_FILE"
	// EnvMetricsFile names a Prometheus textfile written when the CLI exits.
	EnvMetricsFile = "GDG_METRICS_FILE"
)

var validate = validator.New()

// Validate checks field ranges declared in the struct tags.
func (c AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ConfigPath returns the per-user config file path. GDG_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoDiagram")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoDiagram")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "godiagram")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "godiagram")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, merges
// environment overrides and validates the result. On a validation error the
// defaults are returned together with the error.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Defaults(), err
	}
	return cfg, nil
}

// Save validates and writes the user config YAML.
func Save(cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Snap.Tolerance != 0 {
		dst.Snap.Tolerance = src.Snap.Tolerance
	}
	if src.Snap.GridSize != 0 {
		dst.Snap.GridSize = src.Snap.GridSize
	}
	if src.Snap.GuideThreshold != 0 {
		dst.Snap.GuideThreshold = src.Snap.GuideThreshold
	}
	// booleans: only a file that mentions the snap section can turn kinds off
	if src.Snap != (SnapConfig{}) {
		dst.Snap.Corners = src.Snap.Corners
		dst.Snap.EdgeMidpoints = src.Snap.EdgeMidpoints
		dst.Snap.Centers = src.Snap.Centers
		dst.Snap.Grid = src.Snap.Grid
	}
	if src.Layout.GridColumns != 0 {
		dst.Layout.GridColumns = src.Layout.GridColumns
	}
	if src.Layout.SpacingX != 0 {
		dst.Layout.SpacingX = src.Layout.SpacingX
	}
	if src.Layout.SpacingY != 0 {
		dst.Layout.SpacingY = src.Layout.SpacingY
	}
	if src.Layout.DefaultGap != 0 {
		dst.Layout.DefaultGap = src.Layout.DefaultGap
	}
	if src.History.MaxBytes != 0 {
		dst.History.MaxBytes = src.History.MaxBytes
	}
	if src.History.MaxDepth != 0 {
		dst.History.MaxDepth = src.History.MaxDepth
	}
	if src.History.CoalesceMs != 0 {
		dst.History.CoalesceMs = src.History.CoalesceMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSnapTolerance)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Snap.Tolerance = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Snap.GridSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapGrid)); v != "" {
		cfg.Snap.Grid = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryMaxDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.MaxDepth = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "snap.tolerance":
		env = EnvSnapTolerance
	case "snap.grid_size":
		env = EnvGridSize
	case "snap.grid":
		env = EnvSnapGrid
	case "history.max_depth":
		env = EnvHistoryMaxDepth
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// SnapOptions converts the snap section for the snap engine.
func (c AppConfig) SnapOptions() snap.Options {
	return snap.Options{
		Tolerance:     c.Snap.Tolerance,
		GridSize:      c.Snap.GridSize,
		Corners:       c.Snap.Corners,
		EdgeMidpoints: c.Snap.EdgeMidpoints,
		Centers:       c.Snap.Centers,
		Grid:          c.Snap.Grid,
	}
}

// HistoryConfig converts the history section for the undo history.
func (c AppConfig) HistoryConfig() undo.Config {
	return undo.Config{
		MaxBytes:    c.History.MaxBytes,
		MaxDepth:    c.History.MaxDepth,
		MinInterval: time.Duration(c.History.CoalesceMs) * time.Millisecond,
	}
}
