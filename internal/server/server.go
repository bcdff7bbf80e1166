/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes presets, templates, stored projects and headless
// rendering over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"socialstudio/internal/cloudsync"
	"socialstudio/internal/domain"
	"socialstudio/internal/export"
	applog "socialstudio/internal/log"
	"socialstudio/internal/preset"
	"socialstudio/internal/project"
	"socialstudio/internal/render"
	"socialstudio/internal/store"
	"socialstudio/internal/telemetry"
	"socialstudio/internal/templates"
	"socialstudio/internal/version"
)

// UserHeader selects the project owner. Requests without it act for the
// configured default user.
const UserHeader = "X-User-ID"

// Options wires the server. Remote is required.
type Options struct {
	Remote    store.Remote
	Presets   *preset.Registry
	Templates *templates.Registry
	Exporter  *export.Exporter
	Usage     *telemetry.Client
	UserID    string
	Clock     func() time.Time
}

// Server holds the fiber app and its dependencies.
type Server struct {
	app       *fiber.App
	log       *slog.Logger
	remote    store.Remote
	presets   *preset.Registry
	templates *templates.Registry
	ser       *project.Serializer
	exporter  *export.Exporter
	usage     *telemetry.Client
	uid       string
	now       func() time.Time
}

// New builds the server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Remote == nil {
		return nil, errors.New("server: remote store is required")
	}
	s := &Server{
		log:       applog.WithComponent("server"),
		remote:    opts.Remote,
		presets:   opts.Presets,
		templates: opts.Templates,
		exporter:  opts.Exporter,
		usage:     opts.Usage,
		uid:       opts.UserID,
		now:       opts.Clock,
	}
	if s.presets == nil {
		s.presets = preset.Builtin()
	}
	if s.templates == nil {
		s.templates = templates.NewRegistry()
	}
	if s.exporter == nil {
		s.exporter = export.New(render.NewRasterizer(nil, render.SourceLoader{}), export.Options{})
	}
	if s.uid == "" {
		s.uid = "local"
	}
	if s.now == nil {
		s.now = time.Now
	}
	ser, err := project.NewSerializer(s.presets, nil)
	if err != nil {
		return nil, err
	}
	ser.SetClock(s.now)
	s.ser = ser

	s.app = fiber.New(fiber.Config{
		AppName:      "Social Studio",
		BodyLimit:    32 << 20,
		ErrorHandler: s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLog)

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})
	s.app.Get("/readyz", s.ready)
	s.app.Get("/version", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"version": version.String()})
	})

	api := s.app.Group("/api")
	api.Get("/presets", s.listPresets)
	api.Get("/templates", s.listTemplates)
	api.Get("/projects", s.listProjects)
	api.Post("/projects", s.saveProject)
	api.Delete("/projects/:id", s.deleteProject)
	api.Post("/render", s.renderRecord)
	return s, nil
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.log.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdown)
}

func (s *Server) requestLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.log.Debug("request",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Int("status", status),
		slog.Duration("latency", time.Since(start)),
	)
	return err
}

// handleError maps domain errors to status codes and answers with JSON.
func (s *Server) handleError(c fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	var (
		fe  *fiber.Error
		ser *domain.SerializationError
		swe *domain.SyncWriteError
	)
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &ser):
		code = http.StatusBadRequest
	case errors.As(err, &swe):
		code = http.StatusBadGateway
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.Path()), slog.Any("err", err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()
	if err := s.remote.Ping(ctx); err != nil {
		s.log.Warn("store not ready", slog.Any("err", err))
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (s *Server) user(c fiber.Ctx) string {
	if u := c.Get(UserHeader); u != "" {
		return u
	}
	return s.uid
}

func (s *Server) listPresets(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"default": s.presets.DefaultID(), "presets": s.presets.All()})
}

type templateInfo struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Title    string   `json:"title,omitempty"`
	Elements int      `json:"elements"`
}

func (s *Server) listTemplates(c fiber.Ctx) error {
	all := s.templates.All()
	out := make([]templateInfo, 0, len(all))
	for _, t := range all {
		out = append(out, templateInfo{Name: t.Name, Aliases: t.Aliases, Title: t.Title, Elements: len(t.Elements)})
	}
	return c.JSON(out)
}

func (s *Server) listProjects(c fiber.Ctx) error {
	docs, err := s.remote.List(c.Context(), cloudsync.ProjectsPath(s.user(c)))
	if err != nil {
		return err
	}
	list, bad := cloudsync.DecodeProjects(docs)
	for _, id := range bad {
		s.log.Warn("skipping unreadable project", slog.String("id", id))
	}
	return c.JSON(list)
}

// saveProject stores a record after checking its scene. Records without an
// id get a new one.
func (s *Server) saveProject(c fiber.Ctx) error {
	rec, err := s.ser.ParseRecord(c.Body())
	if err != nil {
		return err
	}
	if _, err := s.ser.Deserialize(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = project.NewID()
	}
	if rec.Name == "" {
		rec.Name = project.DefaultName
	}
	if rec.Date.IsZero() {
		rec.Date = s.now().UTC()
	}
	ctx := applog.ContextWithProject(c.Context(), rec.ID)
	if err := cloudsync.New(s.remote, s.user(c), nil).SaveProject(ctx, rec); err != nil {
		return err
	}
	s.usage.Event(telemetry.EventProjectSaved, map[string]any{"preset": rec.PresetID, "via": "api"})
	return c.Status(http.StatusCreated).JSON(rec)
}

func (s *Server) deleteProject(c fiber.Ctx) error {
	id := c.Params("id")
	if err := cloudsync.New(s.remote, s.user(c), nil).DeleteProject(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// renderRecord renders the posted record in the requested format.
func (s *Server) renderRecord(c fiber.Ctx) error {
	f, err := export.ParseFormat(c.Query("format", string(export.PNG)))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := s.ser.ParseRecord(c.Body())
	if err != nil {
		return err
	}
	restored, err := s.ser.Deserialize(rec)
	if err != nil {
		return err
	}
	p, err := s.presets.Lookup(restored.State.PresetID)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.exporter.Write(c.Context(), &buf, f, render.DocumentOf(restored.State), p); err != nil {
		return err
	}
	if restored.Fallback != nil {
		c.Set("X-Preset-Fallback", restored.Fallback.ID)
	}
	s.usage.Event(telemetry.EventExported, map[string]any{"format": string(f), "preset": p.ID, "via": "api"})
	c.Set(fiber.HeaderContentType, f.ContentType())
	return c.Send(buf.Bytes())
}
