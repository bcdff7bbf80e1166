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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"socialstudio/internal/domain"
	"socialstudio/internal/editor"
	"socialstudio/internal/export"
	"socialstudio/internal/preset"
	"socialstudio/internal/project"
	"socialstudio/internal/store"
)

var designCmd = &cobra.Command{
	Use:   "design",
	Short: "Compose a design from a template and export or save it",
	Example: `  socialstudio design --template vaga --set title="Auditor Sénior" --format png,pdf
  socialstudio design --preset ig-story --prompt "Três dicas de IVA" --save "Dicas IVA"`,
	RunE: runDesign,
}

var renderCmd = &cobra.Command{
	Use:   "render <record.json>",
	Short: "Export a saved project record file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	f := designCmd.Flags()
	f.String("template", "", "template name or alias")
	f.StringToString("set", nil, "slot=text overrides")
	f.String("preset", "", "canvas preset id")
	f.String("background", "", "background colour #rrggbb")
	f.String("prompt", "", "generate a text block with the AI assistant")
	f.String("save", "", "save the design as a project with this name")
	addExportFlags(designCmd)
	addExportFlags(renderCmd)
	rootCmd.AddCommand(designCmd, renderCmd)
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("format", []string{"png"}, "png, jpeg and/or pdf; empty skips export")
	cmd.Flags().String("out", "", "output directory (default from config)")
}

func exportTargets(cmd *cobra.Command) (string, []export.Format, error) {
	names, _ := cmd.Flags().GetStringSlice("format")
	formats := make([]export.Format, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, err := export.ParseFormat(n)
		if err != nil {
			return "", nil, err
		}
		formats = append(formats, f)
	}
	dir, _ := cmd.Flags().GetString("out")
	if dir == "" {
		dir = app.cfg.Export.Dir
	}
	return dir, formats, nil
}

func exportDesign(ctx context.Context, cmd *cobra.Command, s *editor.Session) error {
	dir, formats, err := exportTargets(cmd)
	if err != nil || len(formats) == 0 {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	paths, err := s.Export(ctx, dir, formats...)
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return err
}

func runDesign(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	remote, err := openRemote(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = remote.Close() }()
	reg, err := loadTemplates()
	if err != nil {
		return err
	}
	s, err := openSession(remote, reg, noticePrinter{})
	if err != nil {
		return err
	}
	defer closeSession(s)

	if name, _ := cmd.Flags().GetString("template"); name != "" {
		overrides, _ := cmd.Flags().GetStringToString("set")
		res, err := s.ApplyTemplate(name, overrides)
		if err != nil {
			return err
		}
		if !res.Applied {
			return fmt.Errorf("unknown template %q", name)
		}
	}
	if id, _ := cmd.Flags().GetString("preset"); id != "" {
		if err := s.SetPreset(id); err != nil {
			return err
		}
	}
	if bg, _ := cmd.Flags().GetString("background"); bg != "" {
		if err := s.SetBackground(bg); err != nil {
			return err
		}
	}
	if prompt, _ := cmd.Flags().GetString("prompt"); prompt != "" {
		text, ok := s.Generate(ctx, prompt)
		if !ok {
			return fmt.Errorf("text generation failed")
		}
		if _, err := s.InsertGeneratedText(text); err != nil {
			return err
		}
	}
	if name, _ := cmd.Flags().GetString("save"); name != "" {
		rec, err := s.Save(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", rec.ID, rec.Name)
	}
	return exportDesign(ctx, cmd, s)
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	ser, err := project.NewSerializer(preset.Builtin(), nil)
	if err != nil {
		return err
	}
	rec, err := ser.ParseRecord(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	mem := store.NewMemory()
	defer func() { _ = mem.Close() }()
	return renderRecord(cmd, mem, rec)
}

// renderRecord loads rec into a throwaway session and exports it.
func renderRecord(cmd *cobra.Command, remote store.Remote, rec domain.ProjectRecord) error {
	reg, err := loadTemplates()
	if err != nil {
		return err
	}
	s, err := openSession(remote, reg, noticePrinter{})
	if err != nil {
		return err
	}
	defer closeSession(s)
	if err := s.Load(cmd.Context(), rec); err != nil {
		return err
	}
	return exportDesign(cmd.Context(), cmd, s)
}
