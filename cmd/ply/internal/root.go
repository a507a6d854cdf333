// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/plybuild/internal/build"
	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/env"
	"github.com/goplus/plybuild/internal/settings"
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	workspaceDir string
	outDir       string
	solution     string

	sessionOptions []build.Option
)

var rootCmd = &cobra.Command{
	Use:   "ply <repo.module>...",
	Short: "ply generates a CMakeLists.txt for the given root modules",
	Long: `ply instantiates the given root modules of the workspace and writes a
CMakeLists.txt for them to the output directory. It needs no build folder.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runPly,
}

func init() {
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&workspaceDir, "workspace", "", "Workspace directory (default: search upwards from the working directory)")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "build", "Output directory")
	rootCmd.Flags().StringVar(&solution, "name", "Plywood", "Project name")
}

// Execute runs the ply command. This is called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func runPly(cmd *cobra.Command, args []string) error {
	ctx := ctxlog.WithLogger(cmd.Context(), ctxlog.New(logLevel, "text", cmd.ErrOrStderr()))
	dir, err := env.WorkspaceDir(workspaceDir)
	if err != nil {
		return err
	}
	s, err := build.Open(ctx, dir, sessionOptions...)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	cmakeOpts := *s.Workspace.CMake
	bf := &settings.BuildFolder{
		Dir:          out,
		SolutionName: solution,
		CMake:        &cmakeOpts,
		RootTargets:  args,
	}
	res, err := s.Generate(ctx, bf, build.GenerateOptions{Force: true})
	if res != nil && res.Report != nil {
		for _, f := range res.Report.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s %s: %v\n", f.Root, f.Config, f.Err)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", build.CMakeListsPath(bf))
	if res.Report.Failed() {
		return fmt.Errorf("%d root target instantiation(s) failed", len(res.Report.Failures))
	}
	return nil
}
