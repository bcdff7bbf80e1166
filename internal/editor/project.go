/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"socialstudio/internal/domain"
	applog "socialstudio/internal/log"
	"socialstudio/internal/project"
	"socialstudio/internal/telemetry"
	"socialstudio/internal/templates"
)

// Save writes the design to the store. The first save assigns the project
// id; later saves overwrite it. An empty name keeps the current one. The
// project list is updated by the store notification, not by Save.
func (s *Session) Save(ctx context.Context, name string) (domain.ProjectRecord, error) {
	if err := s.lock(); err != nil {
		return domain.ProjectRecord{}, err
	}
	if s.ident.ID == "" {
		s.ident.ID = project.NewID()
	}
	if n := strings.TrimSpace(name); n != "" {
		s.ident.Name = n
	}
	rec, err := s.ser.Serialize(s.graph, project.Meta{ID: s.ident.ID, Name: s.ident.Name})
	if err != nil {
		s.noticeLocked(Error, "save", "Erro ao guardar o projeto.", err)
		s.unlock()
		return domain.ProjectRecord{}, err
	}
	s.ident.Name = rec.Name
	s.unlock()

	ctx = applog.ContextWithProject(ctx, rec.ID)
	if err := s.sync.SaveProject(ctx, rec); err != nil {
		s.notice(Error, "save", "Erro ao guardar o projeto na nuvem. Verifique permissões.", err)
		return rec, err
	}
	s.log.Info("project saved", slog.String("project", rec.ID), slog.String("name", rec.Name))
	s.usage.Event(telemetry.EventProjectSaved, map[string]any{"preset": rec.PresetID})
	return rec, nil
}

// Snapshot encodes the design as a record without storing it. Unsaved
// designs get an empty id.
func (s *Session) Snapshot() (domain.ProjectRecord, error) {
	if err := s.lock(); err != nil {
		return domain.ProjectRecord{}, err
	}
	defer s.unlock()
	return s.ser.Serialize(s.graph, project.Meta{ID: s.ident.ID, Name: s.ident.Name})
}

// Load replaces the design with rec once the engine is ready. The record is
// decoded and checked before anything changes, so a broken record leaves
// the current design as it was. An unknown preset falls back to the
// default with a warning notice.
func (s *Session) Load(ctx context.Context, rec domain.ProjectRecord) error {
	select {
	case <-s.engine.Ready():
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	prev := s.graph.State()
	restored, err := s.ser.Restore(s.graph, rec)
	if err != nil {
		s.noticeLocked(Error, "load", "Não foi possível abrir o projeto.", err)
		return err
	}
	if err := s.syncEngineLocked(); err != nil {
		if rerr := s.graph.Load(prev); rerr != nil {
			s.log.Error("restoring previous scene failed", slog.Any("err", rerr))
		}
		_ = s.syncEngineLocked()
		s.noticeLocked(Error, "load", "Não foi possível abrir o projeto.", err)
		return fmt.Errorf("engine load: %w", err)
	}
	s.resetIdentityLocked(Identity{ID: rec.ID, Name: rec.Name})
	if restored.Fallback != nil {
		s.noticeLocked(Warning, "load",
			fmt.Sprintf("Formato %q desconhecido; a usar %s.", restored.Fallback.ID, s.graph.Preset().Name), restored.Fallback)
	}
	s.log.Info("project loaded", slog.String("project", rec.ID), slog.Int("objects", s.graph.Len()))
	return nil
}

// Open loads the synced project with id.
func (s *Session) Open(ctx context.Context, id string) error {
	rec, ok := s.sync.Project(id)
	if !ok {
		return fmt.Errorf("project %s not found", id)
	}
	return s.Load(ctx, rec)
}

// NewDesign clears the canvas, restores the default preset and starts an
// unsaved project.
func (s *Session) NewDesign() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	return s.newDesignLocked()
}

func (s *Session) newDesignLocked() error {
	s.graph.Clear()
	if err := s.graph.SetPreset(s.graph.Presets().DefaultID()); err != nil {
		return err
	}
	s.resetIdentityLocked(Identity{Name: project.DefaultName})
	return s.syncEngineLocked()
}

// Delete removes project id from the store. Deleting the open project
// starts a new design.
func (s *Session) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.sync.DeleteProject(applog.ContextWithProject(ctx, id), id); err != nil {
		s.notice(Error, "delete", "Erro ao eliminar o projeto.", err)
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if s.ident.ID == id {
		return s.newDesignLocked()
	}
	return nil
}

// ApplyTemplate replaces the design with the named template. Overrides
// replace slot texts. An unknown name leaves an empty default canvas and a
// warning notice.
func (s *Session) ApplyTemplate(name string, overrides map[string]string) (templates.Result, error) {
	if err := s.lock(); err != nil {
		return templates.Result{}, err
	}
	defer s.unlock()
	if err := s.readyLocked(); err != nil {
		return templates.Result{}, err
	}
	prev := s.graph.State()
	res, err := templates.Apply(s.graph, s.templates, name, overrides)
	if err != nil {
		if rerr := s.graph.Load(prev); rerr != nil {
			s.log.Error("restoring previous scene failed", slog.Any("err", rerr))
		}
		return res, errors.Join(err, s.syncEngineLocked())
	}
	s.resetIdentityLocked(Identity{Name: res.ProjectName})
	if !res.Applied {
		s.noticeLocked(Warning, "template", fmt.Sprintf("Modelo desconhecido: %s", name), nil)
	} else {
		s.usage.Event(telemetry.EventTemplateApplied, map[string]any{"template": name})
	}
	// template objects start unselected
	s.graph.Selection().Select("")
	return res, s.syncEngineLocked()
}
