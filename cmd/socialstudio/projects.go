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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"socialstudio/internal/cloudsync"
	"socialstudio/internal/domain"
	"socialstudio/internal/store"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "List, export and delete stored projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		remote, err := openRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = remote.Close() }()
		list, err := listProjects(cmd, remote)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPRESET\tDATE")
		for _, p := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.PresetID, p.Date.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a project record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := openRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = remote.Close() }()
		rec, err := findProject(cmd, remote, args[0])
		if err != nil {
			return err
		}
		b, err := marshalRecord(rec)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	},
}

var projectsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a stored project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := openRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = remote.Close() }()
		rec, err := findProject(cmd, remote, args[0])
		if err != nil {
			return err
		}
		return renderRecord(cmd, remote, rec)
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := openRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = remote.Close() }()
		return cloudsync.New(remote, app.cfg.General.UserID, nil).DeleteProject(cmd.Context(), args[0])
	},
}

func init() {
	addExportFlags(projectsExportCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsExportCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

func listProjects(cmd *cobra.Command, remote store.Remote) ([]domain.ProjectRecord, error) {
	docs, err := remote.List(cmd.Context(), cloudsync.ProjectsPath(app.cfg.General.UserID))
	if err != nil {
		return nil, err
	}
	list, _ := cloudsync.DecodeProjects(docs)
	return list, nil
}

func findProject(cmd *cobra.Command, remote store.Remote, id string) (domain.ProjectRecord, error) {
	list, err := listProjects(cmd, remote)
	if err != nil {
		return domain.ProjectRecord{}, err
	}
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.ProjectRecord{}, fmt.Errorf("project %s not found", id)
}
