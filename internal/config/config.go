/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
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

	"gopkg.in/yaml.v3"

	"pathnet/internal/version"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// scope. Environment variables are read-only overrides applied at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type BackendConfig struct {
	// DSN is a Postgres connection string for the shared network store.
	// The password is not stored here; it lives in the OS keychain.
	DSN  string `yaml:"dsn"`
	User string `yaml:"user"`
	// Addr is the listen address of `pathnet serve`.
	Addr string `yaml:"addr"`
	// BaseURL points the HTTP client at a running query service.
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	TelemetryURL   string `yaml:"telemetry_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type SamplingConfig struct {
	BezierSamples           int `yaml:"bezier_samples"`
	ApproxSamplesPerSection int `yaml:"approx_samples_per_section"`
}

type RouteConfig struct {
	// StrictIntegrity defaults to on for unstamped development builds.
	StrictIntegrity bool `yaml:"strict_integrity"`
}

type StorageConfig struct {
	// IndexDir holds the sqlite catalog; empty disables it.
	IndexDir string `yaml:"index_dir"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Logging       LoggingConfig  `yaml:"logging"`
	Sampling      SamplingConfig `yaml:"sampling"`
	Route         RouteConfig    `yaml:"route"`
	Storage       StorageConfig  `yaml:"storage"`
	Backend       BackendConfig  `yaml:"backend"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Sampling:      SamplingConfig{BezierSamples: 16, ApproxSamplesPerSection: 16},
		Route:         RouteConfig{StrictIntegrity: !version.Release()},
		Storage:       StorageConfig{IndexDir: defaultIndexDir()},
		Backend:       BackendConfig{Addr: ":8080", BaseURL: "http://localhost:8080", TimeoutMs: 15000},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "PNET_CONFIG"
	EnvBackendDSN       = "PNET_BACKEND_DSN"
	EnvBackendUser      = "PNET_BACKEND_USER"
	EnvBackendAddr      = "PNET_BACKEND_ADDR"
	EnvBackendURL       = "PNET_BACKEND_URL"
	EnvBackendTimeoutMs = "PNET_BACKEND_TIMEOUT_MS"
	EnvTelemetryOptIn   = "PNET_TELEMETRY_OPT_IN"
	EnvTelemetryURL     = "PNET_TELEMETRY_URL"
	EnvBezierSamples    = "PNET_BEZIER_SAMPLES"
	EnvApproxSamples    = "PNET_APPROX_SAMPLES"
	EnvStrictIntegrity  = "PNET_STRICT_INTEGRITY"
	EnvIndexDir         = "PNET_INDEX_DIR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PNET_LOG_LEVEL"
	EnvLogFormat = "PNET_LOG_FORMAT"
	EnvLogSource = "PNET_LOG_SOURCE"
	EnvLogFile   = "PNET_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "pathnet"
	keyringPassword = "backend_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

func configBase() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "pathnet")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "pathnet")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			return filepath.Join(x, "pathnet")
		}
		return filepath.Join(os.Getenv("HOME"), ".config", "pathnet")
	}
}

func defaultIndexDir() string {
	return filepath.Join(configBase(), "catalog")
}

// ConfigPath returns the per-user config file path. PNET_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base := configBase()
	if base == "" || base == "pathnet" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The backend password comes from the keyring and
// is returned separately.
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
	pw, _ := tokenStore.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and stores password in the OS keyring
// when non-empty.
func Save(cfg AppConfig, password string) error {
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
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// ForgetPassword removes the stored backend password.
func ForgetPassword() error {
	return tokenStore.Delete(keyringService, keyringPassword)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.TelemetryURL); s != "" {
		dst.General.TelemetryURL = s
	}
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
	if src.Sampling.BezierSamples > 0 {
		dst.Sampling.BezierSamples = src.Sampling.BezierSamples
	}
	if src.Sampling.ApproxSamplesPerSection > 0 {
		dst.Sampling.ApproxSamplesPerSection = src.Sampling.ApproxSamplesPerSection
	}
	dst.Route.StrictIntegrity = src.Route.StrictIntegrity
	if s := strings.TrimSpace(src.Storage.IndexDir); s != "" {
		dst.Storage.IndexDir = s
	}
	if s := strings.TrimSpace(src.Backend.DSN); s != "" {
		dst.Backend.DSN = s
	}
	if s := strings.TrimSpace(src.Backend.User); s != "" {
		dst.Backend.User = s
	}
	if s := strings.TrimSpace(src.Backend.Addr); s != "" {
		dst.Backend.Addr = s
	}
	if s := strings.TrimSpace(src.Backend.BaseURL); s != "" {
		dst.Backend.BaseURL = s
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
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
	num := func(name string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	flag := func(name string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = envBool(v)
		}
	}
	str(EnvBackendDSN, &cfg.Backend.DSN)
	str(EnvBackendUser, &cfg.Backend.User)
	str(EnvBackendAddr, &cfg.Backend.Addr)
	str(EnvBackendURL, &cfg.Backend.BaseURL)
	num(EnvBackendTimeoutMs, &cfg.Backend.TimeoutMs)
	flag(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	str(EnvTelemetryURL, &cfg.General.TelemetryURL)
	num(EnvBezierSamples, &cfg.Sampling.BezierSamples)
	num(EnvApproxSamples, &cfg.Sampling.ApproxSamplesPerSection)
	flag(EnvStrictIntegrity, &cfg.Route.StrictIntegrity)
	str(EnvIndexDir, &cfg.Storage.IndexDir)
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	flag(EnvLogSource, &cfg.Logging.Source)
	str(EnvLogFile, &cfg.Logging.File)
}

var envKeys = map[string]string{
	"backend.dsn":                         EnvBackendDSN,
	"backend.user":                        EnvBackendUser,
	"backend.addr":                        EnvBackendAddr,
	"backend.base_url":                    EnvBackendURL,
	"backend.timeout_ms":                  EnvBackendTimeoutMs,
	"general.telemetry_opt_in":            EnvTelemetryOptIn,
	"general.telemetry_url":               EnvTelemetryURL,
	"sampling.bezier_samples":             EnvBezierSamples,
	"sampling.approx_samples_per_section": EnvApproxSamples,
	"route.strict_integrity":              EnvStrictIntegrity,
	"storage.index_dir":                   EnvIndexDir,
	"logging.level":                       EnvLogLevel,
	"logging.format":                      EnvLogFormat,
	"logging.source":                      EnvLogSource,
	"logging.file":                        EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the HTTP client timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
