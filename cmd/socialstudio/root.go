/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"socialstudio/internal/blob"
	"socialstudio/internal/config"
	"socialstudio/internal/domain"
	"socialstudio/internal/editor"
	"socialstudio/internal/export"
	"socialstudio/internal/genai"
	applog "socialstudio/internal/log"
	"socialstudio/internal/preset"
	"socialstudio/internal/render"
	"socialstudio/internal/store"
	"socialstudio/internal/telemetry"
	"socialstudio/internal/templates"
	"socialstudio/internal/textlayout"
	"socialstudio/internal/version"
)

// appState holds what every command shares after the config is loaded.
type appState struct {
	cfg    config.AppConfig
	apiKey string
	usage  *telemetry.Client
}

var app appState

var rootCmd = &cobra.Command{
	Use:               "socialstudio",
	Short:             "Branded social media designs from the command line",
	Long:              "Social Studio composes LinkedIn and Instagram designs from templates, stores them as projects and exports PNG, JPEG and PDF.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) {
		if app.usage != nil {
			app.usage.Flush(context.Background())
			app.usage.Close()
		}
	},
}

// boundKeys are config keys that flags and SST_* variables may override.
var boundKeys = map[string]string{
	"store.driver":    "store-driver",
	"store.path":      "store-path",
	"store.dsn":       "store-dsn",
	"general.user_id": "user",
	"logging.level":   "log-level",
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initViper)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default per-user config.yaml)")
	pf.String("store-driver", "", "project store: memory, sqlite or postgres")
	pf.String("store-path", "", "sqlite database file")
	pf.String("store-dsn", "", "postgres connection string")
	pf.String("user", "", "project owner id")
	pf.String("log-level", "", "debug, info, warn or error")
	for key, flag := range boundKeys {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initViper() {
	viper.SetEnvPrefix("SST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the YAML config and lays flags over it.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		if err := os.Setenv(config.EnvConfig, p); err != nil {
			return err
		}
	}
	cfg, key, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, bind := range []struct {
		key string
		dst *string
	}{
		{"store.driver", &cfg.Store.Driver},
		{"store.path", &cfg.Store.Path},
		{"store.dsn", &cfg.Store.DSN},
		{"general.user_id", &cfg.General.UserID},
		{"logging.level", &cfg.Logging.Level},
	} {
		if v := viper.GetString(bind.key); v != "" {
			*bind.dst = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.cfg, app.apiKey = cfg, key
	applog.Init(cfg.LogOptions())
	app.usage = telemetry.New(telemetry.Config{Enabled: cfg.Telemetry.Enabled, Endpoint: cfg.Telemetry.Endpoint})
	app.usage.Event(telemetry.EventSessionStarted, map[string]any{"command": cmd.Name()})

	crashes.Upload = app.usage
	if cfg.Store.Path != "" {
		crashes.Dir = filepath.Join(filepath.Dir(cfg.Store.Path), "crash")
	}
	applog.WithComponent("cli").Debug("config loaded",
		slog.String("version", version.String()),
		slog.String("store", cfg.Store.Driver),
		slog.String("user", cfg.General.UserID))
	return nil
}

func openRemote(ctx context.Context) (store.Remote, error) {
	c := app.cfg.Store
	if c.Driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
			return nil, err
		}
	}
	return store.Open(ctx, store.Options{Driver: c.Driver, Path: c.Path, DSN: c.DSN})
}

func newRasterizer() *render.Rasterizer {
	return render.NewRasterizer(textlayout.BuiltinLibrary(), render.SourceLoader{Root: app.cfg.Blob.Dir})
}

func newExporter() *export.Exporter {
	e := app.cfg.Export
	return export.New(newRasterizer(), export.Options{
		Multiplier:      e.Multiplier,
		JPEGQuality:     e.JPEGQuality,
		PDFImageQuality: e.PDFQuality,
		FilePrefix:      e.FilePrefix,
	})
}

// loadTemplates returns the built-in templates plus the user's packs.
func loadTemplates() (*templates.Registry, error) {
	reg := templates.NewRegistry()
	dir := app.cfg.Templates.Dir
	if dir == "" {
		return reg, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return reg, nil
	}
	if _, err := templates.LoadDir(reg, dir); err != nil {
		return nil, err
	}
	return reg, nil
}

func newGenerator() genai.Generator {
	if app.apiKey == "" {
		return nil
	}
	g := app.cfg.Generative
	return genai.NewClient(g.BaseURL, g.Model, app.apiKey, g.Timeout())
}

// openSession builds an editor session over remote and registers it for
// crash autosave. The caller closes it.
func openSession(remote store.Remote, reg *templates.Registry, view editor.View) (*editor.Session, error) {
	presets := preset.Builtin()
	if id := app.cfg.General.DefaultPreset; id != "" && presets.Has(id) && id != presets.DefaultID() {
		var err error
		if presets, err = preset.New(id, presets.All()...); err != nil {
			return nil, err
		}
	}
	brand := app.cfg.Brand()
	opts := editor.Options{
		Presets:   presets,
		Brand:     &brand,
		Remote:    remote,
		UserID:    app.cfg.General.UserID,
		Templates: reg,
		Exporter:  newExporter(),
		Measurer:  newRasterizer().Layouter(),
		Generator: newGenerator(),
		View:      view,
		Usage:     app.usage,
	}
	if app.cfg.Blob.Dir != "" {
		bs, err := blob.NewFSStore(app.cfg.Blob.Dir, app.cfg.Blob.BaseURL, app.cfg.Blob.MaxBytes)
		if err != nil {
			return nil, err
		}
		opts.Blobs = bs
	}
	s, err := editor.New(opts)
	if err != nil {
		return nil, err
	}
	live.Store(s)
	return s, nil
}

func closeSession(s *editor.Session) {
	live.CompareAndSwap(s, nil)
	_ = s.Close()
}

func marshalRecord(rec domain.ProjectRecord) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}

// noticePrinter writes editor notices to stderr.
type noticePrinter struct {
	editor.NopView
}

func (noticePrinter) Notify(n editor.Notice) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
}
