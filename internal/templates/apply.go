/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package templates

import (
	"fmt"
	"log/slog"

	applog "socialstudio/internal/log"
	"socialstudio/internal/scene"
)

// Result describes what Apply did.
type Result struct {
	// Applied is false for unknown names; the graph is then only cleared
	// and reset to the default preset.
	Applied bool
	Name    string
	// ProjectName is the name of the fresh, unsaved project.
	ProjectName string
	// Objects are the ids added, in order.
	Objects []string
}

// ProjectName is the name given to a design started from template name.
func ProjectName(name string) string { return fmt.Sprintf("Novo Design (%s)", name) }

// Apply clears g, forces the default preset and adds the objects of the
// named template. An unknown name is not an error: the graph stays empty,
// a warning is logged and Result.Applied is false.
func Apply(g *scene.Graph, reg *Registry, name string, overrides map[string]string) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("templates"), "apply").With(slog.String("template", name))
	g.Clear()
	if err := g.SetPreset(g.Presets().DefaultID()); err != nil {
		return Result{}, err
	}
	res := Result{Name: name, ProjectName: ProjectName(name)}
	t, ok := reg.Lookup(name)
	if !ok {
		l.Warn("unknown template, canvas left empty")
		return res, nil
	}
	if t.Background != "" {
		if err := g.SetBackground(t.Background); err != nil {
			return res, err
		}
	}
	for _, o := range t.Objects(overrides) {
		added, err := g.Add(o)
		if err != nil {
			return res, fmt.Errorf("template %s: %w", t.Name, err)
		}
		res.Objects = append(res.Objects, added.ID)
	}
	res.Applied = true
	l.Info("template applied", slog.Int("objects", len(res.Objects)))
	return res, nil
}
