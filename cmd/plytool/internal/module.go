// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/vcs"
	"github.com/spf13/cobra"
)

// newVCS creates the version control backend of repos. Tests replace it.
var newVCS = func() vcs.VCS {
	return vcs.NewGitVCS()
}

var moduleCheck bool

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Manage module repos",
}

var moduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repos and their modules",
	Args:  cobra.NoArgs,
	RunE:  runModuleList,
}

var moduleUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Sync every repo that names a remote",
	Long: `Update syncs every repo whose repo-info.hcl names a remote with that remote.
With --check, it only reports the repos whose remote has moved.`,
	Args: cobra.NoArgs,
	RunE: runModuleUpdate,
}

var moduleAddCmd = &cobra.Command{
	Use:   "add <name> <remote> [ref]",
	Short: "Fetch a repo into the workspace",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runModuleAdd,
}

func init() {
	moduleUpdateCmd.Flags().BoolVar(&moduleCheck, "check", false, "Report repos behind their remote without syncing them")
	moduleCmd.AddCommand(moduleListCmd, moduleUpdateCmd, moduleAddCmd)
	rootCmd.AddCommand(moduleCmd)
}

func runModuleList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	store := repo.NewStore(s.Workspace.ReposDir(), newVCS())
	out := cmd.OutOrStdout()
	return s.Registry.Walk(func(r *repo.Repo) error {
		indent := strings.Repeat("  ", strings.Count(r.QualifiedName(), "."))
		line := indent + r.QualifiedName()
		if rev := store.Revision(cmd.Context(), r); rev != "" && r.Parent == nil {
			line += " @ " + shortRev(rev)
		}
		fmt.Fprintln(out, line)
		for _, name := range r.TargetNames() {
			kind := "module"
			if r.Targets[name].Executable {
				kind = "executable"
			}
			fmt.Fprintf(out, "%s  %s %s\n", indent, kind, name)
		}
		for _, name := range r.ExternNames() {
			fmt.Fprintf(out, "%s  extern %s\n", indent, name)
		}
		return nil
	})
}

func runModuleUpdate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(cmd.Context())
	store := repo.NewStore(s.Workspace.ReposDir(), newVCS())
	var failed int
	err = s.Registry.Walk(func(r *repo.Repo) error {
		if moduleCheck {
			return checkRepo(cmd, store, r, &failed)
		}
		rev, err := store.Update(cmd.Context(), r)
		if errors.Is(err, repo.ErrNoRemote) {
			logger.Debug("skipping repo without remote", "repo", r.QualifiedName())
			return nil
		}
		if err != nil {
			failed++
			logger.Error("update failed", "repo", r.QualifiedName(), "err", err)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s to %s\n", r.QualifiedName(), shortRev(rev))
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d repo(s) failed to update", failed)
	}
	return nil
}

func checkRepo(cmd *cobra.Command, store *repo.Store, r *repo.Repo, failed *int) error {
	logger := ctxlog.FromContext(cmd.Context())
	current, latest, err := store.Check(cmd.Context(), r)
	if errors.Is(err, repo.ErrNoRemote) {
		return nil
	}
	if err != nil {
		*failed++
		logger.Error("check failed", "repo", r.QualifiedName(), "err", err)
		return nil
	}
	out := cmd.OutOrStdout()
	if current == latest {
		fmt.Fprintf(out, "%s is up to date at %s\n", r.QualifiedName(), shortRev(current))
		return nil
	}
	if current == "" {
		current = "none"
	}
	fmt.Fprintf(out, "%s can be updated: %s -> %s\n", r.QualifiedName(), shortRev(current), shortRev(latest))
	return nil
}

func runModuleAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	ref := ""
	if len(args) == 3 {
		ref = args[2]
	}
	store := repo.NewStore(s.Workspace.ReposDir(), newVCS())
	rev, err := store.Add(cmd.Context(), args[0], args[1], ref)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added repo %s at %s\n", args[0], shortRev(rev))
	return nil
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
