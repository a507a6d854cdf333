// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var targetShared bool

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage the root targets of the current build folder",
}

var targetAddCmd = &cobra.Command{
	Use:   "add <repo.module>",
	Short: "Add a root target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetAdd,
}

var targetRemoveCmd = &cobra.Command{
	Use:   "remove <repo.module>",
	Short: "Remove a root target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetRemove,
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the root targets",
	Args:  cobra.NoArgs,
	RunE:  runTargetList,
}

var targetSetCmd = &cobra.Command{
	Use:   "set <repo.module>",
	Short: "Select the target built by default",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetSet,
}

func init() {
	targetAddCmd.Flags().BoolVar(&targetShared, "shared", false, "Build the module as a shared library")
	targetCmd.AddCommand(targetAddCmd, targetRemoveCmd, targetListCmd, targetSetCmd)
	rootCmd.AddCommand(targetCmd)
}

func runTargetAdd(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	ti, err := s.Registry.FindTargetInstantiator(nil, args[0])
	if err != nil {
		return err
	}
	name := ti.QualifiedName()
	if targetShared && ti.Executable {
		return fmt.Errorf("%s is an executable and cannot be shared", name)
	}
	if !bf.AddRootTarget(name, targetShared) && !targetShared {
		return fmt.Errorf("%s is already a root target of %s", name, bf.Name())
	}
	if bf.ActiveTarget == "" {
		bf.ActiveTarget = name
	}
	if err := saveFolder(s, bf); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added root target %s to %s\n", name, bf.Name())
	return nil
}

func runTargetRemove(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	if !bf.RemoveRootTarget(args[0]) {
		return fmt.Errorf("%s is not a root target of %s", args[0], bf.Name())
	}
	if err := saveFolder(s, bf); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed root target %s from %s\n", args[0], bf.Name())
	return nil
}

func runTargetList(cmd *cobra.Command, args []string) error {
	_, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	for _, name := range bf.RootTargets {
		mark := " "
		if name == bf.ActiveTarget {
			mark = "*"
		}
		line := mark + " " + name
		if slices.Contains(bf.MakeShared, name) {
			line += " (shared)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

func runTargetSet(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	if !slices.Contains(bf.RootTargets, args[0]) {
		return fmt.Errorf("%s is not a root target of %s", args[0], bf.Name())
	}
	bf.ActiveTarget = args[0]
	if err := saveFolder(s, bf); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Active target is now %s\n", args[0])
	return nil
}
