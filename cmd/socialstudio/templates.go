/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"socialstudio/internal/templates"
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"template"},
	Short:   "Manage design templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and installed templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadTemplates()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tALIASES\tELEMENTS\tTITLE")
		for _, t := range reg.All() {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.Name, strings.Join(t.Aliases, ","), len(t.Elements), t.Title)
		}
		return tw.Flush()
	},
}

var templatesCheckCmd = &cobra.Command{
	Use:   "check <pack.toml>...",
	Short: "Validate template pack files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed int
		for _, path := range args {
			n, err := templates.LoadFile(templates.NewRegistry(), path)
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d templates\n", path, n)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d packs invalid", failed, len(args))
		}
		return nil
	},
}

var templatesImportCmd = &cobra.Command{
	Use:   "import <archive.zip>",
	Short: "Install the packs of a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := templates.ImportZip(args[0], app.cfg.Templates.Dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "installed %d pack files into %s\n", n, app.cfg.Templates.Dir)
		return nil
	},
}

var templatesExportCmd = &cobra.Command{
	Use:   "export <archive.zip>",
	Short: "Archive the installed packs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(app.cfg.Templates.Dir); err != nil {
			return fmt.Errorf("no installed templates: %w", err)
		}
		n, err := templates.ExportZip(app.cfg.Templates.Dir, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "archived %d pack files\n", n)
		return nil
	},
}

var templatesDumpCmd = &cobra.Command{
	Use:   "dump [name]...",
	Short: "Print templates in pack form, as a starting point for new packs",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadTemplates()
		if err != nil {
			return err
		}
		ts := reg.All()
		if len(args) > 0 {
			ts = ts[:0]
			for _, name := range args {
				t, ok := reg.Lookup(name)
				if !ok {
					return fmt.Errorf("unknown template %q", name)
				}
				ts = append(ts, t)
			}
		}
		b, err := templates.EncodePack(ts)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd, templatesCheckCmd, templatesImportCmd, templatesExportCmd, templatesDumpCmd)
	rootCmd.AddCommand(templatesCmd)
}
