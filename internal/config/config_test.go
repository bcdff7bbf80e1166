/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/zalando/go-keyring"
)

// isolate points the config path at a temp file and mocks the keychain.
func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	homedir.DisableCache = true
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvGenAIKey, "")
	path := filepath.Join(home, "cfg", "config.yaml")
	t.Setenv(EnvConfig, path)
	return path
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if key != "" {
		t.Fatalf("key = %q, want empty", key)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Export.FilePrefix != "ASC" || cfg.Export.Multiplier != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if strings.HasPrefix(cfg.Store.Path, "~") || strings.HasPrefix(cfg.Templates.Dir, "~") {
		t.Fatalf("paths not expanded: %q %q", cfg.Store.Path, cfg.Templates.Dir)
	}
}

func TestFileLayersOverDefaults(t *testing.T) {
	path := isolate(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	yml := "store:\n  driver: Memory\nexport:\n  jpeg_quality: 80\ngeneral:\n  brand:\n    fonts: [Inter]\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Fatalf("driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Export.JPEGQuality != 80 || cfg.Export.PDFQuality != 90 {
		t.Fatalf("export = %+v", cfg.Export)
	}
	b := cfg.Brand()
	if !b.HasFont("Inter") || b.HasFont("Arial") {
		t.Fatalf("brand fonts = %v", b.Fonts())
	}
	if b.Background() != "#f8fafc" || len(b.Colors()) == 0 {
		t.Fatalf("brand defaults lost: %q %v", b.Background(), b.Colors())
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	cfg := Defaults()
	if err := Decode([]byte("stor:\n  driver: memory\n"), &cfg); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStoreDriver, "memory")
	t.Setenv(EnvServerAddr, ":9000")
	t.Setenv(EnvTelemetryEnabled, "yes")
	t.Setenv(EnvGenAITimeoutMs, "1500")
	t.Setenv(EnvGenAIKey, "from-env")
	cfg, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Server.Addr != ":9000" || !cfg.Telemetry.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if got := cfg.Generative.Timeout().Milliseconds(); got != 1500 {
		t.Fatalf("timeout = %dms, want 1500", got)
	}
	if key != "from-env" {
		t.Fatalf("key = %q", key)
	}
	if env, ok := EnvOverrideFor("server.addr"); !ok || env != EnvServerAddr {
		t.Fatalf("EnvOverrideFor(server.addr) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("store.dsn"); ok {
		t.Fatalf("store.dsn reported as overridden")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	cfg.Store.Driver = "postgres"
	cfg.Export.JPEGQuality = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"store.dsn", "jpeg_quality"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestSaveRoundTripsThroughKeychain(t *testing.T) {
	path := isolate(t)
	cfg := Defaults()
	cfg.Store.Driver = "memory"
	cfg.Server.Addr = ":7000"
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Fatalf("api key written to config file")
	}
	got, key, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Server.Addr != ":7000" || key != "secret" {
		t.Fatalf("got addr %q key %q", got.Server.Addr, key)
	}
	if err := DeleteAPIKey(); err != nil {
		t.Fatal(err)
	}
	if k, _ := APIKey(); k != "" {
		t.Fatalf("key after delete = %q", k)
	}
	if err := DeleteAPIKey(); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}
