// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/plybuild/internal/settings"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Initialize a workspace",
	Long:  `Bootstrap creates workspace-settings.hcl and the repos and data directories in the workspace directory, or in the working directory.`,
	Args:  cobra.NoArgs,
	RunE:  runBootstrap,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	dir := workspaceDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	ws, err := settings.LoadWorkspace(dir)
	if err != nil {
		return err
	}
	for _, d := range []string{ws.ReposDir(), ws.BuildFoldersDir(), ws.ExternsDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	if _, err := ws.Save(); err != nil {
		return fmt.Errorf("failed to write %s: %w", settings.WorkspaceFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized workspace in %s\n", dir)
	return nil
}
