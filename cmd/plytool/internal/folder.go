// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"

	"github.com/goplus/plybuild/pkgs/qname"
	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage build folders",
}

var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a build folder and make it current",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderCreate,
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List build folders",
	Args:  cobra.NoArgs,
	RunE:  runFolderList,
}

var folderSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Select the current build folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderSet,
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a build folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderDelete,
}

func init() {
	folderCmd.AddCommand(folderCreateCmd, folderListCmd, folderSetCmd, folderDeleteCmd)
	rootCmd.AddCommand(folderCmd)
}

func runFolderCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !qname.IsIdent(name) {
		return fmt.Errorf("invalid build folder name %q", name)
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if _, err := s.Workspace.CreateBuildFolder(name); err != nil {
		return err
	}
	s.Workspace.CurrentBuildFolder = name
	if _, err := s.Workspace.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created build folder %s\n", name)
	return nil
}

func runFolderList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	names, err := s.Workspace.BuildFolderNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		mark := " "
		if name == s.Workspace.CurrentBuildFolder {
			mark = "*"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, name)
	}
	return nil
}

func runFolderSet(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if _, err := s.Workspace.LoadBuildFolder(args[0]); err != nil {
		return err
	}
	s.Workspace.CurrentBuildFolder = args[0]
	if _, err := s.Workspace.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current build folder is now %s\n", args[0])
	return nil
}

func runFolderDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if err := s.Workspace.DeleteBuildFolder(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted build folder %s\n", args[0])
	return nil
}
