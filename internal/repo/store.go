// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/plybuild/internal/vcs"
	"github.com/goplus/plybuild/pkgs/qname"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// ErrNoRemote is returned when updating a repo without a remote.
var ErrNoRemote = errors.New("repo has no remote")

// Store manages the repos directory of a workspace, handling its layout
// and the synchronization of repos with their remotes.
type Store struct {
	dir string
	vcs vcs.VCS
}

// NewStore creates a Store for the repos directory dir.
func NewStore(dir string, v vcs.VCS) *Store {
	return &Store{dir: dir, vcs: v}
}

// Dir returns the repos directory.
func (s *Store) Dir() string {
	return s.dir
}

// Add fetches remote at ref into a new top level repo named name and
// records the remote in its repo-info.hcl.
func (s *Store) Add(ctx context.Context, name, remote, ref string) (string, error) {
	if !qname.IsIdent(name) {
		return "", fmt.Errorf("invalid repo name %q", name)
	}
	dir := filepath.Join(s.dir, name)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("repo %s already exists", name)
	}
	if err := s.vcs.Sync(ctx, remote, ref, dir); err != nil {
		return "", fmt.Errorf("fetch %s: %w", remote, err)
	}
	info := filepath.Join(dir, InfoFile)
	if _, err := os.Stat(info); errors.Is(err, os.ErrNotExist) {
		f := hclwrite.NewEmptyFile()
		gohcl.EncodeIntoBody(&repoInfo{Remote: remote, Ref: ref}, f.Body())
		if err := os.WriteFile(info, f.Bytes(), 0644); err != nil {
			return "", err
		}
	}
	return s.vcs.Revision(ctx, dir)
}

// Update syncs r with its remote and returns the checked out revision.
func (s *Store) Update(ctx context.Context, r *Repo) (string, error) {
	if r.Remote == "" {
		return "", fmt.Errorf("%s: %w", r.QualifiedName(), ErrNoRemote)
	}
	if err := s.vcs.Sync(ctx, r.Remote, r.Ref, r.Dir); err != nil {
		return "", fmt.Errorf("update %s: %w", r.QualifiedName(), err)
	}
	return s.vcs.Revision(ctx, r.Dir)
}

// Check returns the checked out revision of r and the revision its ref
// points to in the remote, without changing the checkout.
func (s *Store) Check(ctx context.Context, r *Repo) (current, latest string, err error) {
	if r.Remote == "" {
		return "", "", fmt.Errorf("%s: %w", r.QualifiedName(), ErrNoRemote)
	}
	latest, err = s.vcs.Latest(ctx, r.Remote, r.Ref)
	if err != nil {
		return "", "", fmt.Errorf("check %s: %w", r.QualifiedName(), err)
	}
	return s.Revision(ctx, r), latest, nil
}

// Revision returns the checked out revision of r, or "" when r is not
// under version control.
func (s *Store) Revision(ctx context.Context, r *Repo) string {
	rev, err := s.vcs.Revision(ctx, r.Dir)
	if err != nil {
		return ""
	}
	return rev
}
