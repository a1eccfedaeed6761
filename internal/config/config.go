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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// StoreConfig selects where the layout key-value store lives.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "sqlite" | "file"
	Path    string `yaml:"path"`
	Watch   bool   `yaml:"watch"`
}

// CorpusConfig selects the text corpus backend.
type CorpusConfig struct {
	Backend     string `yaml:"backend"` // "sqlite" | "postgres"
	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// The Postgres password is not stored on disk; it lives in the OS keychain.
	PageSize int    `yaml:"page_size"`
	Hymnal   string `yaml:"hymnal"`
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
	Store         StoreConfig   `yaml:"store"`
	Corpus        CorpusConfig  `yaml:"corpus"`
	Logging       LoggingConfig `yaml:"logging"`
	// Catalog lists the versions offered per panel category.
	Catalog map[string][]string `yaml:"catalog"`
}

const appDir = "gracenote"

// Defaults returns the application defaults.
func Defaults() AppConfig {
	data := filepath.Join(xdg.DataHome, appDir)
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Store:         StoreConfig{Backend: "sqlite", Path: filepath.Join(data, "store.db"), Watch: true},
		Corpus: CorpusConfig{
			Backend:  "sqlite",
			DataDir:  filepath.Join(data, "database"),
			PageSize: 100,
			Hymnal:   "hymnal",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Catalog: map[string][]string{
			"bible":       {"KJV", "ASV", "WEB"},
			"commentary":  {"MHC"},
			"coded_bible": {"KJV-Strong"},
			"lexicon":     {"Strong"},
		},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "GN_CONFIG"
	EnvTelemetryOptIn = "GN_TELEMETRY_OPT_IN"
	EnvStoreBackend   = "GN_STORE_BACKEND"
	EnvStorePath      = "GN_STORE_PATH"
	EnvCorpusBackend  = "GN_CORPUS_BACKEND"
	EnvCorpusDir      = "GN_CORPUS_DIR"
	EnvPostgresDSN    = "GN_PG_DSN"
	EnvPageSize       = "GN_PAGE_SIZE"
	EnvLogLevel       = "GN_LOG_LEVEL"
	EnvLogFormat      = "GN_LOG_FORMAT"
	EnvLogSource      = "GN_LOG_SOURCE"
	EnvLogFile        = "GN_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "GraceNote"
	keyringPGPass  = "postgres_password"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the secret store and returns a func restoring the previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path. GN_CONFIG wins over the XDG location.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	p, err := xdg.ConfigFile(filepath.Join(appDir, "config.yaml"))
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return p, nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The Postgres password is read from the keyring and returned separately; a missing entry is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", err
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	secret, err := tokenStore.Get(keyringService, keyringPGPass)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		// keychain unavailable (headless CI, no dbus): run without the secret
		secret = ""
	}
	return cfg, secret, nil
}

// Save writes the user config YAML and stores the Postgres password in the OS keyring (if non-empty).
func Save(cfg AppConfig, secret string) error {
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
	if secret != "" {
		if err := tokenStore.Set(keyringService, keyringPGPass, secret); err != nil {
			return err
		}
	}
	return nil
}

// ForgetSecret removes the stored Postgres password.
func ForgetSecret() error {
	err := tokenStore.Delete(keyringService, keyringPGPass)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := strings.ToLower(strings.TrimSpace(src.Store.Backend)); v != "" {
		dst.Store.Backend = v
	}
	if v := strings.TrimSpace(src.Store.Path); v != "" {
		dst.Store.Path = v
	}
	dst.Store.Watch = src.Store.Watch
	if v := strings.ToLower(strings.TrimSpace(src.Corpus.Backend)); v != "" {
		dst.Corpus.Backend = v
	}
	if v := strings.TrimSpace(src.Corpus.DataDir); v != "" {
		dst.Corpus.DataDir = v
	}
	if v := strings.TrimSpace(src.Corpus.PostgresDSN); v != "" {
		dst.Corpus.PostgresDSN = v
	}
	if src.Corpus.PageSize > 0 {
		dst.Corpus.PageSize = src.Corpus.PageSize
	}
	if v := strings.TrimSpace(src.Corpus.Hymnal); v != "" {
		dst.Corpus.Hymnal = v
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
	for cat, versions := range src.Catalog {
		if len(versions) > 0 {
			dst.Catalog[cat] = append([]string(nil), versions...)
		}
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreBackend)); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCorpusBackend)); v != "" {
		cfg.Corpus.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCorpusDir)); v != "" {
		cfg.Corpus.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Corpus.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Corpus.PageSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"store.backend":            EnvStoreBackend,
	"store.path":               EnvStorePath,
	"corpus.backend":           EnvCorpusBackend,
	"corpus.data_dir":          EnvCorpusDir,
	"corpus.postgres_dsn":      EnvPostgresDSN,
	"corpus.page_size":         EnvPageSize,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Versions returns the configured versions for a category, or nil.
func (c AppConfig) Versions(category string) []string {
	return c.Catalog[category]
}
