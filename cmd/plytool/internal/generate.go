// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/goplus/plybuild/internal/build"
	"github.com/goplus/plybuild/internal/instantiate"
	"github.com/spf13/cobra"
)

var (
	generateConfig      string
	generateForce       bool
	generateNoConfigure bool
	buildConfig         string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the build system of the current build folder",
	Long: `Generate instantiates the root targets of the current build folder in every
configuration, writes CMakeLists.txt and runs the cmake configure step.
Nothing is done when no module script or folder setting changed since the
last successful run, unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var buildCmd = &cobra.Command{
	Use:   "build [target]",
	Short: "Build a target of the current build folder",
	Long:  `Build builds the given target, or the active target, or everything, with cmake.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the generated project in its IDE",
	Args:  cobra.NoArgs,
	RunE:  runOpen,
}

func init() {
	generateCmd.Flags().StringVar(&generateConfig, "config", "", "Configuration to configure single config generators for")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Regenerate even when nothing changed")
	generateCmd.Flags().BoolVar(&generateNoConfigure, "no-configure", false, "Only write CMakeLists.txt")
	buildCmd.Flags().StringVar(&buildConfig, "config", "", "Configuration to build")
	rootCmd.AddCommand(generateCmd, buildCmd, openCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	if len(bf.RootTargets) == 0 {
		return fmt.Errorf("build folder %s has no root targets; add one with 'plytool target add <name>'", bf.Name())
	}
	res, err := s.Generate(cmd.Context(), bf, build.GenerateOptions{Force: generateForce})
	if res != nil && res.Report != nil {
		printReport(cmd.ErrOrStderr(), res.Report)
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if res.Skipped {
		fmt.Fprintf(out, "Build system of %s is up to date\n", bf.Name())
	} else {
		fmt.Fprintf(out, "Generated %s (%s)\n", build.CMakeListsPath(bf), res.Saved)
	}
	if !generateNoConfigure && !res.Skipped {
		if err := s.Configure(cmd.Context(), bf, generateConfig); err != nil {
			return err
		}
	}
	if res.Report != nil && res.Report.Failed() {
		return fmt.Errorf("%d root target instantiation(s) failed", len(res.Report.Failures))
	}
	return nil
}

func printReport(w io.Writer, r *instantiate.Report) {
	for _, f := range r.Failures {
		where := f.Root
		if f.Config != "" {
			where += " (" + f.Config + ")"
		}
		fmt.Fprintf(w, "error: %s: %v\n", where, f.Err)
	}
	if len(r.UnselectedExterns) > 0 {
		fmt.Fprintf(w, "The following externs have no selected provider: %s\n", strings.Join(r.UnselectedExterns, ", "))
		fmt.Fprintln(w, "Select one with 'plytool extern select <repo.extern.provider>'.")
	}
	if len(r.UninstalledProviders) > 0 {
		fmt.Fprintf(w, "The following providers are not installed: %s\n", strings.Join(r.UninstalledProviders, ", "))
		fmt.Fprintln(w, "Install them with 'plytool extern install <repo.extern.provider>'.")
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	target := bf.ActiveTarget
	if len(args) == 1 {
		target = args[0]
	}
	return s.Build(cmd.Context(), bf, s.CMakeTarget(bf, target), buildConfig)
}

func runOpen(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	return s.CMake(bf, s.ActiveConfig(bf, "")).Open(cmd.Context())
}
