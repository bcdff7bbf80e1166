/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"socialstudio/internal/config"
	"socialstudio/internal/editor"
	"socialstudio/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// version needs no config
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := yaml.Marshal(app.cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if _, err := out.Write(b); err != nil {
			return err
		}
		key := "not set"
		if app.apiKey != "" {
			key = "set"
		}
		fmt.Fprintf(out, "# generative api key: %s\n", key)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.Save(app.cfg, ""); err != nil {
			return err
		}
		p, _ := config.ConfigPath()
		fmt.Fprintln(cmd.OutOrStdout(), "wrote", p)
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the generative API key in the OS keychain (read from stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		key := strings.TrimSpace(line)
		if key == "" {
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			return fmt.Errorf("empty key")
		}
		return config.SetAPIKey(key)
	},
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove the generative API key from the OS keychain",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return config.DeleteAPIKey()
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Ask the AI assistant for post text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := openRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = remote.Close() }()
		s, err := openSession(remote, nil, noticePrinter{})
		if err != nil {
			return err
		}
		defer closeSession(s)
		text, ok := s.Generate(cmd.Context(), strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), text)
		if !ok {
			return fmt.Errorf("text generation failed")
		}
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <image>...",
	Short: "Store images in the blob store and record them as uploads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := openRemote(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = remote.Close() }()
		s, err := openSession(remote, nil, noticePrinter{})
		if err != nil {
			return err
		}
		defer closeSession(s)
		for _, path := range args {
			if err := uploadFile(cmd, s, path); err != nil {
				return err
			}
		}
		return nil
	},
}

func uploadFile(cmd *cobra.Command, s *editor.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	progress := func(done, total int64) {
		if total > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r%s %3d%%", filepath.Base(path), done*100/total)
		}
	}
	up, _, err := s.Upload(cmd.Context(), filepath.Base(path), f, st.Size(), progress)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", up.ID, up.URL)
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configSetKeyCmd, configDeleteKeyCmd)
	rootCmd.AddCommand(versionCmd, configCmd, generateCmd, uploadCmd)
}
