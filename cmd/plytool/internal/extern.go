// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goplus/plybuild/internal/build"
	"github.com/goplus/plybuild/internal/extern"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/settings"
	"github.com/spf13/cobra"
)

var externCmd = &cobra.Command{
	Use:   "extern",
	Short: "Inspect and select extern providers",
}

var externListCmd = &cobra.Command{
	Use:   "list",
	Short: "List externs and their providers",
	Args:  cobra.NoArgs,
	RunE:  runExternList,
}

var externInfoCmd = &cobra.Command{
	Use:   "info <repo.extern>",
	Short: "Show the status of every provider of an extern",
	Args:  cobra.ExactArgs(1),
	RunE:  runExternInfo,
}

var externSelectCmd = &cobra.Command{
	Use:   "select <repo.extern.provider>",
	Short: "Select the provider of an extern in the current build folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runExternSelect,
}

var externInstallCmd = &cobra.Command{
	Use:   "install <repo.extern.provider>",
	Short: "Install an extern through a provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runExternInstall,
}

func init() {
	externCmd.AddCommand(externListCmd, externInfoCmd, externSelectCmd, externInstallCmd)
	rootCmd.AddCommand(externCmd)
}

// optionalFolder returns the current build folder, or nil when none is
// set.
func optionalFolder(s *build.Session) (*settings.BuildFolder, error) {
	bf, err := s.Workspace.CurrentFolder()
	if errors.Is(err, settings.ErrNoBuildFolder) {
		return nil, nil
	}
	return bf, err
}

func selected(bf *settings.BuildFolder, selector string) bool {
	return bf != nil && slices.Contains(bf.ExternSelectors, selector)
}

func runExternList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	bf, err := optionalFolder(s)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return s.Registry.Walk(func(r *repo.Repo) error {
		for _, name := range r.ExternNames() {
			ext := r.Externs[name]
			fmt.Fprintln(out, ext.QualifiedName())
			for _, pname := range ext.ProviderOrder {
				p := ext.Providers[pname]
				mark := " "
				if selected(bf, p.Selector()) {
					mark = "*"
				}
				fmt.Fprintf(out, "  %s %s\n", mark, pname)
			}
		}
		return nil
	})
}

func runExternInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	bf, err := optionalFolder(s)
	if err != nil {
		return err
	}
	ext, err := s.Registry.FindExtern(nil, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "extern %s\n", ext.QualifiedName())
	if len(ext.ProviderOrder) == 0 {
		fmt.Fprintln(out, "  no providers")
	}
	for _, pname := range ext.ProviderOrder {
		p := ext.Providers[pname]
		res, err := s.RunProvider(cmd.Context(), bf, p.Selector(), extern.Status)
		if err != nil {
			return err
		}
		mark := " "
		if selected(bf, p.Selector()) {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s %s: %s\n", mark, p.Selector(), res)
	}
	return nil
}

func runExternSelect(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	p, err := s.Registry.FindProvider(args[0])
	if err != nil {
		return err
	}
	bf.SelectExtern(p.Selector())
	if err := saveFolder(s, bf); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Selected %s for extern %s in %s\n", p.Name, p.Extern.QualifiedName(), bf.Name())
	return nil
}

func runExternInstall(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	bf, err := optionalFolder(s)
	if err != nil {
		return err
	}
	res, err := s.RunProvider(cmd.Context(), bf, args[0], extern.Install)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("install %s: %s", args[0], res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], res)
	return nil
}
