// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goplus/plybuild/internal/build"
	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/env"
	"github.com/goplus/plybuild/internal/settings"
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	logFormat    string
	workspaceDir string

	// sessionOptions are passed to every build.Open. Tests use them to
	// replace host tools.
	sessionOptions []build.Option
)

var rootCmd = &cobra.Command{
	Use:   "plytool",
	Short: "plytool generates and builds C++ projects from module scripts",
	Long: `plytool reads the module scripts of a workspace, instantiates the root
targets of the current build folder and generates a CMake build system for them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := ctxlog.New(logLevel, logFormat, cmd.ErrOrStderr())
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace", "", "Workspace directory (default: search upwards from the working directory)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func openSession(cmd *cobra.Command) (*build.Session, error) {
	dir, err := env.WorkspaceDir(workspaceDir)
	if err != nil {
		return nil, err
	}
	return build.Open(cmd.Context(), dir, sessionOptions...)
}

// currentFolder opens the workspace and loads its current build folder.
func currentFolder(cmd *cobra.Command) (*build.Session, *settings.BuildFolder, error) {
	s, err := openSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	bf, err := s.Workspace.CurrentFolder()
	if errors.Is(err, settings.ErrNoBuildFolder) {
		return nil, nil, fmt.Errorf("%w; create one with 'plytool folder create <name>'", err)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, bf, nil
}

func saveFolder(s *build.Session, bf *settings.BuildFolder) error {
	_, err := bf.Save(s.Workspace.LineEndings())
	return err
}
