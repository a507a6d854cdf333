// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extern

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// applyPkgConfig asks pkg-config for the flags of pkg and exports them.
func applyPkgConfig(ctx context.Context, a *ProviderArgs, pkg string) error {
	path, err := a.Env.Runner.LookPath("pkg-config")
	if err != nil {
		return err
	}
	out, err := a.Env.Runner.Output(ctx, path, "--cflags", "--libs", pkg)
	if err != nil {
		return fmt.Errorf("pkg-config %s: %w", pkg, err)
	}
	return applyFlags(a, out)
}

// applyFlags sorts compiler and linker flags into options.
func applyFlags(a *ProviderArgs, flags string) error {
	words, err := shellquote.Split(flags)
	if err != nil {
		return err
	}
	for _, w := range words {
		switch {
		case strings.HasPrefix(w, "-I"):
			a.AddIncludeDir(w[2:])
		case strings.HasPrefix(w, "-D"):
			name, value, _ := strings.Cut(w[2:], "=")
			a.AddDefine(name, value)
		case strings.HasPrefix(w, "-l"):
			a.AddLinkerInput(w[2:])
		case strings.HasPrefix(w, "-L"), strings.HasPrefix(w, "-Wl,"):
			a.AddLinkerFlag(w)
		case w == "-pthread":
			a.AddCompilerFlag(w)
			a.AddLinkerFlag(w)
		default:
			a.AddCompilerFlag(w)
		}
	}
	return nil
}
