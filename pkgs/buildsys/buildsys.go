// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buildsys describes the native build systems a generated project
// is handed to.
package buildsys

import "context"

// BuildSystem configures and builds a generated source tree.
type BuildSystem interface {
	// Env sets a variable for every command the build system runs.
	Env(key, val string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error

	// OutputDir is the build tree.
	OutputDir() string
}
