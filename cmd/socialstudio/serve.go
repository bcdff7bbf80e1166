/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	applog "socialstudio/internal/log"
	"socialstudio/internal/preset"
	"socialstudio/internal/server"
	"socialstudio/internal/templates"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve presets, templates, projects and rendering over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	l := applog.WithComponent("cli")
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote, err := openRemote(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = remote.Close() }()

	reg, err := loadTemplates()
	if err != nil {
		return err
	}
	if app.cfg.Templates.Watch && app.cfg.Templates.Dir != "" {
		w, err := templates.NewWatcher(reg, app.cfg.Templates.Dir)
		if err != nil {
			l.Warn("template watcher unavailable", slog.Any("err", err))
		} else if err := w.Start(); err != nil {
			l.Warn("template watcher unavailable", slog.Any("err", err))
		} else {
			defer w.Stop()
		}
	}

	srv, err := server.New(server.Options{
		Remote:    remote,
		Presets:   preset.Builtin(),
		Templates: reg,
		Exporter:  newExporter(),
		Usage:     app.usage,
		UserID:    app.cfg.General.UserID,
	})
	if err != nil {
		return err
	}
	addr := app.cfg.Server.Addr
	if v := viper.GetString("server.addr"); v != "" {
		addr = v
	}
	return srv.Listen(ctx, addr)
}
