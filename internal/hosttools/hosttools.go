// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hosttools finds the external programs the build drives and
// reports their versions.
package hosttools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/goplus/plybuild/internal/par"
)

// ErrTooOld is wrapped by Require when a tool is older than needed.
var ErrTooOld = errors.New("tool version too old")

// Tool describes a program to detect.
type Tool struct {
	Name string
	// Commands are the executable names tried in order.
	Commands    []string
	VersionArgs []string
	// MinVersion is empty when any version will do.
	MinVersion string
}

// Status is the outcome of probing a Tool.
type Status struct {
	Tool    Tool
	Path    string
	Version string
	Err     error
}

// Found reports whether the tool was located and answered.
func (s Status) Found() bool {
	return s.Err == nil
}

// Runner locates and runs programs. It is replaced in tests.
type Runner interface {
	LookPath(name string) (string, error)
	Output(ctx context.Context, path string, args ...string) (string, error)
}

type execRunner struct{}

// ExecRunner returns a Runner backed by os/exec.
func ExecRunner() Runner {
	return execRunner{}
}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (execRunner) Output(ctx context.Context, path string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

var (
	CMake     = Tool{Name: "cmake", Commands: []string{"cmake"}, VersionArgs: []string{"--version"}, MinVersion: "3.12"}
	Ninja     = Tool{Name: "ninja", Commands: []string{"ninja"}, VersionArgs: []string{"--version"}}
	Git       = Tool{Name: "git", Commands: []string{"git"}, VersionArgs: []string{"--version"}}
	Apt       = Tool{Name: "apt", Commands: []string{"apt-get"}, VersionArgs: []string{"--version"}}
	Brew      = Tool{Name: "homebrew", Commands: []string{"brew"}, VersionArgs: []string{"--version"}}
	Vcpkg     = Tool{Name: "vcpkg", Commands: []string{"vcpkg"}, VersionArgs: []string{"version"}}
	Conan     = Tool{Name: "conan", Commands: []string{"conan"}, VersionArgs: []string{"--version"}}
	PkgConfig = Tool{Name: "pkg-config", Commands: []string{"pkg-config", "pkgconf"}, VersionArgs: []string{"--version"}}
)

// Known returns the tools reported by the hosttools command.
func Known() []Tool {
	return []Tool{CMake, Ninja, Git, PkgConfig, Apt, Brew, Vcpkg, Conan}
}

// Detect looks up tool and asks it for its version.
func Detect(ctx context.Context, r Runner, tool Tool) Status {
	st := Status{Tool: tool}
	for _, name := range tool.Commands {
		if path, err := r.LookPath(name); err == nil {
			st.Path = path
			break
		}
	}
	if st.Path == "" {
		st.Err = fmt.Errorf("%s: %w", tool.Name, exec.ErrNotFound)
		return st
	}
	out, err := r.Output(ctx, st.Path, tool.VersionArgs...)
	if err != nil {
		st.Err = fmt.Errorf("%s %s: %w", st.Path, strings.Join(tool.VersionArgs, " "), err)
		return st
	}
	st.Version = ParseVersion(out)
	if tool.MinVersion != "" && st.Version != "" && Compare(st.Version, tool.MinVersion) < 0 {
		st.Err = fmt.Errorf("%s %s is older than %s: %w", tool.Name, st.Version, tool.MinVersion, ErrTooOld)
	}
	return st
}

// DetectAll detects tools in parallel. The result is in the order of tools.
func DetectAll(ctx context.Context, r Runner, tools []Tool) []Status {
	out := make([]Status, len(tools))
	par.ForEach(runtime.GOMAXPROCS(0), tools, func(i int, tool Tool) {
		out[i] = Detect(ctx, r, tool)
	})
	return out
}

// Require detects tool and returns its path, or an error when it is
// missing or too old.
func Require(ctx context.Context, r Runner, tool Tool) (string, error) {
	st := Detect(ctx, r, tool)
	if st.Err != nil {
		return "", st.Err
	}
	return st.Path, nil
}
