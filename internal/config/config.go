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
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	applog "boardcanvas/internal/log"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied after the file is merged.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

// StoreConfig selects where the desktop host and CLI read and write elements.
type StoreConfig struct {
	Mode       string `yaml:"mode"` // "http" | "sqlite"
	SQLitePath string `yaml:"sqlite_path"`
}

// ServerConfig configures the element store server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	Driver      string `yaml:"driver"` // "postgres" | "sqlite"
	DSN         string `yaml:"dsn"`
	TokenSecret string `yaml:"token_secret"`
}

// CanvasConfig holds the interaction policy values of the canvas engine.
type CanvasConfig struct {
	MinScale         float64 `yaml:"min_scale"`
	MaxScale         float64 `yaml:"max_scale"`
	ZoomFactor       float64 `yaml:"zoom_factor"`
	MinElementSize   float64 `yaml:"min_element_size"`
	DuplicateOffset  float64 `yaml:"duplicate_offset"`
	DragThreshold    float64 `yaml:"drag_threshold"`
	PersistTimeoutMs int     `yaml:"persist_timeout_ms"`
}

// ExportConfig tunes raster exports.
type ExportConfig struct {
	LabelFont     string  `yaml:"label_font"` // TTF/OTF path; built-in bitmap face when empty
	LabelFontSize float64 `yaml:"label_font_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Store         StoreConfig   `yaml:"store"`
	Server        ServerConfig  `yaml:"server"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Store:         StoreConfig{Mode: "http"},
		Server:        ServerConfig{Addr: ":8080", Driver: "sqlite", DSN: "boardcanvas.db"},
		Canvas: CanvasConfig{
			MinScale:         0.2,
			MaxScale:         5.0,
			ZoomFactor:       1.05,
			MinElementSize:   10,
			DuplicateOffset:  20,
			DragThreshold:    3,
			PersistTimeoutMs: 15000,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "BC_CONFIG"
	EnvBackendURL       = "BC_BACKEND_URL"
	EnvBackendTimeoutMs = "BC_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "BC_TLS_INSECURE"
	EnvTelemetryOptIn   = "BC_TELEMETRY_OPT_IN"
	EnvStoreMode        = "BC_STORE_MODE"
	EnvSQLitePath       = "BC_SQLITE_PATH"
	EnvServerAddr       = "BC_SERVER_ADDR"
	EnvServerDriver     = "BC_SERVER_DRIVER"
	EnvServerDSN        = "BC_SERVER_DSN"
	EnvServerSecret     = "BC_SERVER_TOKEN_SECRET"
	EnvCanvasMinScale   = "BC_CANVAS_MIN_SCALE"
	EnvCanvasMaxScale   = "BC_CANVAS_MAX_SCALE"
	EnvLogLevel         = "BC_LOG_LEVEL"
	EnvLogFormat        = "BC_LOG_FORMAT"
	EnvLogSource        = "BC_LOG_SOURCE"
	EnvLogFile          = "BC_LOG_FILE"
	EnvLabelFont        = "BC_EXPORT_LABEL_FONT"
)

// ConfigPath returns the per-user config file path. BC_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "BoardCanvas")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "BoardCanvas")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "boardcanvas")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "boardcanvas")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The backend token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Canvas.Validate(); err != nil {
		return cfg, "", err
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
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
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure

	if m := strings.ToLower(strings.TrimSpace(src.Store.Mode)); m != "" {
		dst.Store.Mode = m
	}
	if src.Store.SQLitePath != "" {
		dst.Store.SQLitePath = src.Store.SQLitePath
	}

	if src.Server.Addr != "" {
		dst.Server.Addr = src.Server.Addr
	}
	if d := strings.ToLower(strings.TrimSpace(src.Server.Driver)); d != "" {
		dst.Server.Driver = d
	}
	if src.Server.DSN != "" {
		dst.Server.DSN = src.Server.DSN
	}
	if src.Server.TokenSecret != "" {
		dst.Server.TokenSecret = src.Server.TokenSecret
	}

	c := src.Canvas
	setF := func(d *float64, v float64) {
		if v != 0 {
			*d = v
		}
	}
	setF(&dst.Canvas.MinScale, c.MinScale)
	setF(&dst.Canvas.MaxScale, c.MaxScale)
	setF(&dst.Canvas.ZoomFactor, c.ZoomFactor)
	setF(&dst.Canvas.MinElementSize, c.MinElementSize)
	setF(&dst.Canvas.DuplicateOffset, c.DuplicateOffset)
	setF(&dst.Canvas.DragThreshold, c.DragThreshold)
	if c.PersistTimeoutMs != 0 {
		dst.Canvas.PersistTimeoutMs = c.PersistTimeoutMs
	}

	if f := strings.TrimSpace(src.Export.LabelFont); f != "" {
		dst.Export.LabelFont = f
	}
	setF(&dst.Export.LabelFontSize, src.Export.LabelFontSize)
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

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	str(EnvBackendURL, &cfg.Backend.BaseURL)
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreMode)); v != "" {
		cfg.Store.Mode = strings.ToLower(v)
	}
	str(EnvSQLitePath, &cfg.Store.SQLitePath)
	str(EnvServerAddr, &cfg.Server.Addr)
	if v := strings.TrimSpace(os.Getenv(EnvServerDriver)); v != "" {
		cfg.Server.Driver = strings.ToLower(v)
	}
	str(EnvServerDSN, &cfg.Server.DSN)
	str(EnvServerSecret, &cfg.Server.TokenSecret)
	for name, dst := range map[string]*float64{
		EnvCanvasMinScale: &cfg.Canvas.MinScale,
		EnvCanvasMaxScale: &cfg.Canvas.MaxScale,
	} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	str(EnvLogFile, &cfg.Logging.File)
	str(EnvLabelFont, &cfg.Export.LabelFont)
}

var envKeys = map[string]string{
	"backend.base_url":         EnvBackendURL,
	"backend.timeout_ms":       EnvBackendTimeoutMs,
	"backend.tls_insecure":     EnvBackendTLSInsec,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"store.mode":               EnvStoreMode,
	"store.sqlite_path":        EnvSQLitePath,
	"server.addr":              EnvServerAddr,
	"server.driver":            EnvServerDriver,
	"server.dsn":               EnvServerDSN,
	"server.token_secret":      EnvServerSecret,
	"canvas.min_scale":         EnvCanvasMinScale,
	"canvas.max_scale":         EnvCanvasMaxScale,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
	"export.label_font":        EnvLabelFont,
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the backend request timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// PersistTimeout bounds a single fire-and-forget store call.
func (c CanvasConfig) PersistTimeout() time.Duration {
	if c.PersistTimeoutMs <= 0 {
		return time.Duration(Defaults().Canvas.PersistTimeoutMs) * time.Millisecond
	}
	return time.Duration(c.PersistTimeoutMs) * time.Millisecond
}

// Validate rejects policy values the engine cannot work with.
func (c CanvasConfig) Validate() error {
	for name, v := range map[string]float64{
		"min_scale": c.MinScale, "max_scale": c.MaxScale, "zoom_factor": c.ZoomFactor,
		"min_element_size": c.MinElementSize, "duplicate_offset": c.DuplicateOffset, "drag_threshold": c.DragThreshold,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("canvas.%s must be finite", name)
		}
	}
	if c.MinScale <= 0 || c.MaxScale < c.MinScale {
		return fmt.Errorf("canvas scale range [%g, %g] is invalid", c.MinScale, c.MaxScale)
	}
	if c.ZoomFactor <= 1 {
		return fmt.Errorf("canvas.zoom_factor must be > 1, got %g", c.ZoomFactor)
	}
	if c.MinElementSize < 0 || c.DragThreshold < 0 {
		return errors.New("canvas sizes must not be negative")
	}
	return nil
}

// Options converts the logging section into logger options.
func (l LoggingConfig) Options() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
