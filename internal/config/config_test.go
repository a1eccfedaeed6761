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
	"testing"

	"github.com/zalando/go-keyring"
)

type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memStore) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memStore) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

type brokenStore struct{}

func (brokenStore) Get(string, string) (string, error) { return "", errors.New("no dbus") }
func (brokenStore) Set(string, string, string) error   { return errors.New("no dbus") }
func (brokenStore) Delete(string, string) error        { return errors.New("no dbus") }

func useTempConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, p)
	t.Cleanup(SetTokenStore(memStore{}))
	return p
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	useTempConfig(t)
	cfg, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if secret != "" {
		t.Fatalf("unexpected secret %q", secret)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Corpus.PageSize != 100 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Versions("bible")) == 0 {
		t.Fatalf("expected default bible versions")
	}
}

func TestSaveLoadRoundTripWithSecret(t *testing.T) {
	path := useTempConfig(t)
	cfg := Defaults()
	cfg.Store.Backend = "file"
	cfg.Corpus.Backend = "postgres"
	cfg.Corpus.PostgresDSN = "postgres://reader@db/corpus"
	cfg.Catalog["bible"] = []string{"NIV"}
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, secret, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if secret != "s3cret" {
		t.Fatalf("secret = %q", secret)
	}
	if got.Store.Backend != "file" || got.Corpus.Backend != "postgres" || got.Corpus.PostgresDSN != cfg.Corpus.PostgresDSN {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if v := got.Versions("bible"); len(v) != 1 || v[0] != "NIV" {
		t.Fatalf("catalog not merged: %v", v)
	}
	if v := got.Versions("lexicon"); len(v) == 0 {
		t.Fatalf("untouched catalog entries must keep defaults")
	}
	if err := ForgetSecret(); err != nil {
		t.Fatalf("ForgetSecret: %v", err)
	}
	if err := ForgetSecret(); err != nil {
		t.Fatalf("ForgetSecret twice: %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := useTempConfig(t)
	if err := os.WriteFile(path, []byte("store: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestKeyringUnavailableIsNotFatal(t *testing.T) {
	useTempConfig(t)
	t.Cleanup(SetTokenStore(brokenStore{}))
	if _, secret, err := Load(); err != nil || secret != "" {
		t.Fatalf("Load() = %q, %v", secret, err)
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempConfig(t)
	t.Setenv(EnvStoreBackend, "FILE")
	t.Setenv(EnvPageSize, "25")
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogSource, "1")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Backend != "file" || cfg.Corpus.PageSize != 25 || !cfg.General.TelemetryOptIn {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Logging.Level != "error" || !cfg.Logging.Source {
		t.Fatalf("logging overrides not applied: %+v", cfg.Logging)
	}
	if env, ok := EnvOverrideFor("corpus.page_size"); !ok || env != EnvPageSize {
		t.Fatalf("EnvOverrideFor page_size = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("corpus.data_dir"); ok {
		t.Fatalf("data_dir is not overridden")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Logging: LoggingConfig{Level: " DEBUG ", Format: "json", Source: true, File: "/tmp/gn.log"}}
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gn.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}
