// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmake drives the cmake executable on a generated CMakeLists.
package cmake

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/goplus/plybuild/internal/settings"
	"github.com/goplus/plybuild/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// Runner runs one cmake command line. env holds the complete
// environment.
type Runner interface {
	Run(ctx context.Context, bin string, args, env []string) error
}

// CMake wraps the configure and build steps with chainable configuration.
type CMake struct {
	SourceDir string
	buildDir  string
	generator string
	platform  string
	toolset   string
	toolchain string
	buildType string
	Defines   map[string]defineValue
	env       map[string]string

	bin    string
	runner Runner
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a helper for the CMakeLists in sourceDir, building into
// buildDir.
func New(sourceDir, buildDir string) *CMake {
	return &CMake{
		SourceDir: sourceDir,
		buildDir:  buildDir,
		Defines:   map[string]defineValue{},
		env:       map[string]string{},
		bin:       "cmake",
		runner:    ExecRunner(os.Stdout, os.Stderr),
	}
}

// FromOptions creates a helper configured by the cmake block of a build
// folder.
func FromOptions(sourceDir, buildDir string, o *settings.CMakeOptions) *CMake {
	c := New(sourceDir, buildDir)
	if o == nil {
		return c
	}
	c.Generator(o.Generator).Platform(o.Platform).Toolset(o.Toolset).Toolchain(o.ToolchainFile)
	if !o.IsMultiConfig() {
		c.BuildType(o.BuildType)
	}
	return c
}

// Runner replaces the command runner.
func (c *CMake) Runner(r Runner) *CMake {
	c.runner = r
	return c
}

// Bin sets the path of the cmake executable.
func (c *CMake) Bin(path string) *CMake {
	c.bin = path
	return c
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

// Platform is passed with -A, for Visual Studio generators.
func (c *CMake) Platform(name string) *CMake {
	c.platform = name
	return c
}

// Toolset is passed with -T.
func (c *CMake) Toolset(name string) *CMake {
	c.toolset = name
	return c
}

func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	c.Defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	if value {
		c.Defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return c
	}
	c.Defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return c
}

func (c *CMake) Env(key, value string) {
	if c.env == nil {
		c.env = map[string]string{}
	}
	c.env[key] = value
}

// ConfigureArgs returns the arguments of the configure step.
func (c *CMake) ConfigureArgs(args ...string) []string {
	cmakeArgs := []string{"-S", c.SourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.platform != "" {
		cmakeArgs = append(cmakeArgs, "-A", c.platform)
	}
	if c.toolset != "" {
		cmakeArgs = append(cmakeArgs, "-T", c.toolset)
	}
	defines := make(map[string]defineValue, len(c.Defines)+2)
	for k, v := range c.Defines {
		defines[k] = v
	}
	if c.toolchain != "" {
		defines["CMAKE_TOOLCHAIN_FILE"] = defineValue{value: c.toolchain, typeName: "FILEPATH"}
	}
	if c.buildType != "" {
		defines["CMAKE_BUILD_TYPE"] = defineValue{value: c.buildType, typeName: "STRING"}
	}
	cmakeArgs = append(cmakeArgs, definesArgs(defines)...)
	return append(cmakeArgs, args...)
}

func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	return c.run(ctx, c.ConfigureArgs(args...))
}

func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	cmdArgs = append(cmdArgs, args...)
	return c.run(ctx, cmdArgs)
}

// BuildTarget builds one target, or every target when target is empty,
// in the given configuration.
func (c *CMake) BuildTarget(ctx context.Context, target, config string) error {
	var args []string
	if target != "" {
		args = append(args, "--target", target)
	}
	if config != "" && c.buildType == "" {
		args = append(args, "--config", config)
	}
	return c.Build(ctx, args...)
}

// Open opens the generated project in the IDE of its generator.
func (c *CMake) Open(ctx context.Context) error {
	return c.run(ctx, []string{"--open", c.buildDir})
}

// OutputDir returns the build tree.
func (c *CMake) OutputDir() string {
	return c.buildDir
}

func (c *CMake) run(ctx context.Context, args []string) error {
	if err := c.runner.Run(ctx, c.bin, args, mergeEnv(os.Environ(), c.env)); err != nil {
		return fmt.Errorf("cmake %s: %w", args[0], err)
	}
	return nil
}

func definesArgs(defines map[string]defineValue) []string {
	if len(defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

type execRunner struct {
	stdout, stderr io.Writer
}

// ExecRunner runs commands as subprocesses writing to stdout and stderr.
func ExecRunner(stdout, stderr io.Writer) Runner {
	return execRunner{stdout, stderr}
}

func (r execRunner) Run(ctx context.Context, bin string, args, env []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Env = env
	return cmd.Run()
}

func mergeEnv(base []string, override map[string]string) []string {
	if len(override) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
