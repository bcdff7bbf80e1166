/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"socialstudio/internal/fsx"
	applog "socialstudio/internal/log"
	"socialstudio/internal/preset"
)

type GeneralConfig struct {
	DefaultPreset string      `yaml:"default_preset"`
	UserID        string      `yaml:"user_id"`
	Brand         BrandConfig `yaml:"brand"`
}

// BrandConfig overrides the built-in brand kit. Empty lists keep the
// built-in values.
type BrandConfig struct {
	Background string   `yaml:"background"`
	Colors     []string `yaml:"colors"`
	Fonts      []string `yaml:"fonts"`
	Assets     []string `yaml:"assets"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory | sqlite | postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type BlobConfig struct {
	Dir      string `yaml:"dir"`
	BaseURL  string `yaml:"base_url"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type GenerativeConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type ExportConfig struct {
	Dir         string  `yaml:"dir"`
	FilePrefix  string  `yaml:"file_prefix"`
	Multiplier  float64 `yaml:"multiplier"`
	JPEGQuality int     `yaml:"jpeg_quality"`
	PDFQuality  int     `yaml:"pdf_quality"`
}

type TemplatesConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// AppConfig is the user-editable configuration persisted as YAML in the
// user scope. Environment variables override it at runtime and are never
// written back. The generative API key lives in the OS keychain, not here.
//
// ConfigVersion is bumped when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	General       GeneralConfig    `yaml:"general"`
	Store         StoreConfig      `yaml:"store"`
	Blob          BlobConfig       `yaml:"blob"`
	Generative    GenerativeConfig `yaml:"generative"`
	Export        ExportConfig     `yaml:"export"`
	Templates     TemplatesConfig  `yaml:"templates"`
	Server        ServerConfig     `yaml:"server"`
	Logging       LoggingConfig    `yaml:"logging"`
	Telemetry     TelemetryConfig  `yaml:"telemetry"`
}

// Defaults returns the application defaults. Paths are relative to the
// data directory and keep a leading "~" until ExpandPaths runs.
func Defaults() AppConfig {
	data := dataDirHint()
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{DefaultPreset: preset.LinkedInPost, UserID: "local"},
		Store:         StoreConfig{Driver: "sqlite", Path: filepath.Join(data, "projects.db")},
		Blob:          BlobConfig{Dir: filepath.Join(data, "blobs"), MaxBytes: 20 << 20},
		Generative: GenerativeConfig{
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			Model:     "gemini-2.5-flash-preview-09-2025",
			TimeoutMs: 30000,
		},
		Export:    ExportConfig{Dir: ".", FilePrefix: "ASC", Multiplier: 2, JPEGQuality: 100, PDFQuality: 90},
		Templates: TemplatesConfig{Dir: filepath.Join(data, "templates"), Watch: true},
		Server:    ServerConfig{Addr: "127.0.0.1:8080"},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfig           = "SST_CONFIG"
	EnvUserID           = "SST_USER_ID"
	EnvDefaultPreset    = "SST_DEFAULT_PRESET"
	EnvStoreDriver      = "SST_STORE_DRIVER"
	EnvStorePath        = "SST_STORE_PATH"
	EnvStoreDSN         = "SST_STORE_DSN"
	EnvBlobDir          = "SST_BLOB_DIR"
	EnvBlobBaseURL      = "SST_BLOB_BASE_URL"
	EnvGenAIBaseURL     = "SST_GENAI_BASE_URL"
	EnvGenAIModel       = "SST_GENAI_MODEL"
	EnvGenAITimeoutMs   = "SST_GENAI_TIMEOUT_MS"
	EnvGenAIKey         = "SST_GENAI_KEY"
	EnvExportDir        = "SST_EXPORT_DIR"
	EnvTemplatesDir     = "SST_TEMPLATES_DIR"
	EnvServerAddr       = "SST_SERVER_ADDR"
	EnvTelemetryEnabled = "SST_TELEMETRY_ENABLED"
	EnvTelemetryURL     = "SST_TELEMETRY_ENDPOINT"
	EnvLogLevel         = "SST_LOG_LEVEL"
	EnvLogFormat        = "SST_LOG_FORMAT"
	EnvLogSource        = "SST_LOG_SOURCE"
	EnvLogFile          = "SST_LOG_FILE"
)

// envKeys maps dotted config keys to their override variables.
var envKeys = map[string]string{
	"general.user_id":        EnvUserID,
	"general.default_preset": EnvDefaultPreset,
	"store.driver":           EnvStoreDriver,
	"store.path":             EnvStorePath,
	"store.dsn":              EnvStoreDSN,
	"blob.dir":               EnvBlobDir,
	"blob.base_url":          EnvBlobBaseURL,
	"generative.base_url":    EnvGenAIBaseURL,
	"generative.model":       EnvGenAIModel,
	"generative.timeout_ms":  EnvGenAITimeoutMs,
	"export.dir":             EnvExportDir,
	"templates.dir":          EnvTemplatesDir,
	"server.addr":            EnvServerAddr,
	"telemetry.enabled":      EnvTelemetryEnabled,
	"telemetry.endpoint":     EnvTelemetryURL,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
}

// Keychain entry of the generative API key.
const (
	KeyringService = "SocialStudio"
	keyringAPIKey  = "genai_api_key"
)

func dataDirHint() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join("~", "AppData", "Roaming", "SocialStudio")
	case "darwin":
		return filepath.Join("~", "Library", "Application Support", "SocialStudio")
	default:
		return filepath.Join("~", ".local", "share", "socialstudio")
	}
}

// ConfigPath returns the per-user config file path. SST_CONFIG replaces it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return homedir.Expand(p)
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join("~", "AppData", "Roaming")
		}
		base = filepath.Join(base, "SocialStudio")
	case "darwin":
		base = filepath.Join("~", "Library", "Application Support", "SocialStudio")
	default:
		base = filepath.Join("~", ".config", "socialstudio")
	}
	base, err := homedir.Expand(base)
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file when present, layers it over the defaults,
// applies environment overrides and expands paths. The API key is read from
// SST_GENAI_KEY or the keychain and returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := Decode(data, &cfg); err != nil {
			return cfg, "", fmt.Errorf("config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, "", fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	if err := ExpandPaths(&cfg); err != nil {
		return cfg, "", err
	}
	key, err := APIKey()
	if err != nil {
		applog.WithComponent("config").Warn("keychain unavailable", "err", err)
	}
	return cfg, key, cfg.Validate()
}

// Decode layers YAML data over cfg. Keys missing from data keep their
// current values.
func Decode(data []byte, cfg *AppConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes the config YAML and stores apiKey in the keychain when it is
// not empty.
func Save(cfg AppConfig, apiKey string) error {
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
	if err := fsx.WriteFileAtomic(path, data); err != nil {
		return err
	}
	if apiKey != "" {
		return SetAPIKey(apiKey)
	}
	return nil
}

// APIKey returns the generative API key: SST_GENAI_KEY first, then the
// keychain. A missing entry is not an error.
func APIKey() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvGenAIKey)); v != "" {
		return v, nil
	}
	v, err := keyring.Get(KeyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetAPIKey stores the key in the keychain.
func SetAPIKey(v string) error { return keyring.Set(KeyringService, keyringAPIKey, v) }

// DeleteAPIKey removes the key from the keychain.
func DeleteAPIKey() error {
	err := keyring.Delete(KeyringService, keyringAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ExpandPaths resolves a leading "~" in every path field.
func ExpandPaths(cfg *AppConfig) error {
	for _, p := range []*string{&cfg.Store.Path, &cfg.Blob.Dir, &cfg.Export.Dir, &cfg.Templates.Dir, &cfg.Logging.File} {
		v, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = v
	}
	return nil
}

func normalize(cfg *AppConfig) {
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Blob.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Blob.BaseURL), "/")
	cfg.Generative.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Generative.BaseURL), "/")
}

// Validate rejects values no component can work with.
func (c AppConfig) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want memory, sqlite or postgres", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required for postgres"))
	}
	if c.Export.Multiplier <= 0 {
		errs = append(errs, fmt.Errorf("export.multiplier %v must be positive", c.Export.Multiplier))
	}
	for name, q := range map[string]int{"export.jpeg_quality": c.Export.JPEGQuality, "export.pdf_quality": c.Export.PDFQuality} {
		if q < 1 || q > 100 {
			errs = append(errs, fmt.Errorf("%s %d outside 1..100", name, q))
		}
	}
	if strings.TrimSpace(c.General.UserID) == "" {
		errs = append(errs, errors.New("general.user_id is empty"))
	}
	return errors.Join(errs...)
}

// Brand returns the brand kit with config overrides applied.
func (c AppConfig) Brand() preset.Brand {
	def := preset.DefaultBrand()
	b := c.General.Brand
	pick := func(v, d []string) []string {
		if len(v) > 0 {
			return v
		}
		return d
	}
	bg := b.Background
	if bg == "" {
		bg = def.Background()
	}
	return preset.NewBrand(bg, pick(b.Colors, def.Colors()), pick(b.Fonts, def.Fonts()), pick(b.Assets, def.Assets()))
}

// Timeout returns the request timeout of the generative client.
func (g GenerativeConfig) Timeout() time.Duration {
	if g.TimeoutMs <= 0 {
		return time.Duration(Defaults().Generative.TimeoutMs) * time.Millisecond
	}
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	str := map[string]*string{
		EnvUserID:        &cfg.General.UserID,
		EnvDefaultPreset: &cfg.General.DefaultPreset,
		EnvStoreDriver:   &cfg.Store.Driver,
		EnvStorePath:     &cfg.Store.Path,
		EnvStoreDSN:      &cfg.Store.DSN,
		EnvBlobDir:       &cfg.Blob.Dir,
		EnvBlobBaseURL:   &cfg.Blob.BaseURL,
		EnvGenAIBaseURL:  &cfg.Generative.BaseURL,
		EnvGenAIModel:    &cfg.Generative.Model,
		EnvExportDir:     &cfg.Export.Dir,
		EnvTemplatesDir:  &cfg.Templates.Dir,
		EnvServerAddr:    &cfg.Server.Addr,
		EnvTelemetryURL:  &cfg.Telemetry.Endpoint,
		EnvLogLevel:      &cfg.Logging.Level,
		EnvLogFormat:     &cfg.Logging.Format,
		EnvLogFile:       &cfg.Logging.File,
	}
	for env, dst := range str {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvGenAITimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generative.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryEnabled)); v != "" {
		cfg.Telemetry.Enabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
}

// EnvOverrideFor returns the variable overriding the dotted key, if set.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// LogOptions converts the logging section.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}
