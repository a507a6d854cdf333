// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package env locates the workspace a command runs in.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/plybuild/internal/settings"
)

// WorkspaceVar names the environment variable that overrides workspace
// discovery.
const WorkspaceVar = "PLY_WORKSPACE"

// ErrNoWorkspace is returned when no workspace settings file is found.
var ErrNoWorkspace = errors.New("no workspace found")

// Find returns the nearest directory at or above start that holds the
// workspace settings file.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, settings.WorkspaceFile)); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in %s or its parents (%s)", ErrNoWorkspace, start, settings.WorkspaceFile)
		}
		dir = parent
	}
}

// WorkspaceDir resolves the workspace root: the explicit directory if
// given, then $PLY_WORKSPACE, then the nearest workspace above the
// working directory.
func WorkspaceDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}
	if dir := os.Getenv(WorkspaceVar); dir != "" {
		return filepath.Abs(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return Find(wd)
}
