// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package build ties a workspace together: it scans the repos, turns the
// root targets of a build folder into a CMakeLists.txt and drives cmake
// on the result.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/plybuild/internal/cmakelists"
	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/extern"
	"github.com/goplus/plybuild/internal/fsutil"
	"github.com/goplus/plybuild/internal/hosttools"
	"github.com/goplus/plybuild/internal/instantiate"
	"github.com/goplus/plybuild/internal/project"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/settings"
	"github.com/goplus/plybuild/pkgs/buildsys/cmake"
	"github.com/goplus/plybuild/pkgs/qname"
)

// CMakeListsFile is the name of the generated file in a build folder.
const CMakeListsFile = "CMakeLists.txt"

// ErrNoRootSucceeded is returned by Generate when every root target
// failed, in which case nothing is written.
var ErrNoRootSucceeded = errors.New("no root target could be instantiated")

// Session is an opened workspace.
type Session struct {
	Workspace *settings.Workspace
	Registry  *repo.Registry
	Folders   *extern.FolderRegistry
	Host      hosttools.Host

	runner      hosttools.Runner
	providers   extern.Providers
	cmakeRunner cmake.Runner
	onInst      func(qualifiedName, config string)
}

// Option configures a Session.
type Option func(*Session)

// WithHost overrides the detected host.
func WithHost(h hosttools.Host) Option {
	return func(s *Session) {
		s.Host = h
	}
}

// WithRunner sets the runner extern providers use to detect and run host
// tools.
func WithRunner(r hosttools.Runner) Option {
	return func(s *Session) {
		s.runner = r
	}
}

// WithProviders replaces the extern providers.
func WithProviders(ps extern.Providers) Option {
	return func(s *Session) {
		s.providers = ps
	}
}

// WithCMakeRunner sets the runner of cmake commands.
func WithCMakeRunner(r cmake.Runner) Option {
	return func(s *Session) {
		s.cmakeRunner = r
	}
}

// WithInstantiateHook sets a function called every time a module or
// extern is instantiated.
func WithInstantiateHook(fn func(qualifiedName, config string)) Option {
	return func(s *Session) {
		s.onInst = fn
	}
}

// Open loads the workspace rooted at dir and scans its repos.
func Open(ctx context.Context, dir string, opts ...Option) (*Session, error) {
	ws, err := settings.LoadWorkspace(dir)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Workspace:   ws,
		Host:        hosttools.DetectHost(),
		runner:      hosttools.ExecRunner(),
		cmakeRunner: cmake.ExecRunner(os.Stdout, os.Stderr),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Registry, err = repo.Scan(ctx, repo.Options{Dir: ws.ReposDir()}); err != nil {
		return nil, err
	}
	for _, d := range s.Registry.Diags {
		ctxlog.FromContext(ctx).Warn("module script error", "diag", d.Error())
	}
	if s.Folders, err = extern.LoadFolders(ws.ExternsDir()); err != nil {
		return nil, err
	}
	return s, nil
}

// Env returns the environment shared by extern provider invocations.
func (s *Session) Env() *extern.Env {
	return &extern.Env{Folders: s.Folders, Runner: s.runner, NewLines: s.Workspace.LineEndings()}
}

// Providers returns the extern providers of the session.
func (s *Session) Providers() extern.Providers {
	if s.providers == nil {
		return extern.DefaultProviders()
	}
	return s.providers
}

// Toolchain returns the compiler family bf generates for. The workspace
// setting wins over the guess from the CMake generator.
func (s *Session) Toolchain(bf *settings.BuildFolder) (project.Toolchain, error) {
	if s.Workspace.Toolchain != "" {
		return project.ToolchainByName(s.Workspace.Toolchain)
	}
	if bf != nil && bf.CMake != nil {
		return project.ToolchainForGenerator(bf.CMake.Generator), nil
	}
	return project.ToolchainForGenerator(s.Workspace.CMake.Generator), nil
}

// ExternToolchain returns the toolchain passed to extern providers.
func (s *Session) ExternToolchain(bf *settings.BuildFolder) (extern.Toolchain, error) {
	tc, err := s.Toolchain(bf)
	if err != nil {
		return extern.Toolchain{}, err
	}
	return extern.Toolchain{Compiler: tc.Name(), Host: s.Host}, nil
}

// Instantiate builds the propagated project of bf.
func (s *Session) Instantiate(ctx context.Context, bf *settings.BuildFolder) (*project.Project, *instantiate.Report, error) {
	tc, err := s.ExternToolchain(bf)
	if err != nil {
		return nil, nil, err
	}
	eng, err := instantiate.New(instantiate.Options{
		Registry:        s.Registry,
		Name:            bf.SolutionName,
		Roots:           bf.RootTargets,
		MakeShared:      bf.MakeShared,
		ExternSelectors: bf.ExternSelectors,
		Toolchain:       tc,
		Providers:       s.Providers(),
		Env:             s.Env(),
		BuildFolder:     bf.Dir,
		OnInstantiate:   s.onInst,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng.Run(ctx)
}

// GenerateOptions control Generate.
type GenerateOptions struct {
	// Force regenerates even when the signature is unchanged.
	Force bool
}

// GenerateResult describes a Generate call.
type GenerateResult struct {
	// Skipped is set when the signature matched the last successful
	// generate and nothing was done.
	Skipped bool
	// Saved tells whether CMakeLists.txt changed.
	Saved     fsutil.Result
	Project   *project.Project
	Report    *instantiate.Report
	Signature string
}

// CMakeListsPath returns the generated file of bf.
func CMakeListsPath(bf *settings.BuildFolder) string {
	return filepath.Join(bf.Dir, CMakeListsFile)
}

// Generate writes the CMakeLists.txt of bf. The file is written when at
// least one root succeeds; failures of the other roots are in the
// report. The signature is only recorded when nothing failed, so a
// failed generate is retried next time. The CMake target names are
// recorded either way.
func (s *Session) Generate(ctx context.Context, bf *settings.BuildFolder, opts GenerateOptions) (*GenerateResult, error) {
	logger := ctxlog.FromContext(ctx)
	tc, err := s.Toolchain(bf)
	if err != nil {
		return nil, err
	}
	sig, err := Signature(s.Workspace.ReposDir(), bf, tc.Name(), s.Workspace.LineEndings())
	if err != nil {
		return nil, err
	}
	listsPath := CMakeListsPath(bf)
	if !opts.Force {
		if cache, err := loadCache(bf.Dir); err == nil && cache.Signature == sig {
			if _, err := os.Stat(listsPath); err == nil {
				logger.Debug("build system is up to date", "folder", bf.Name(), "signature", sig)
				return &GenerateResult{Skipped: true, Saved: fsutil.Unchanged, Signature: sig}, nil
			}
		}
	}

	proj, report, err := s.Instantiate(ctx, bf)
	if err != nil {
		return nil, err
	}
	res := &GenerateResult{Project: proj, Report: report, Signature: sig}
	if len(proj.Roots) == 0 && report.Failed() {
		return res, ErrNoRootSucceeded
	}
	if res.Saved, err = cmakelists.Save(listsPath, proj, tc, s.Workspace.LineEndings()); err != nil {
		return res, fmt.Errorf("write %s: %w", listsPath, err)
	}
	logger.Info("generated build system", "folder", bf.Name(), "file", listsPath, "result", res.Saved)
	cache := &buildCache{GenerateTime: time.Now(), Targets: cmakelists.TargetNames(proj)}
	if !report.Failed() {
		cache.Signature = sig
	}
	if err := saveCache(bf.Dir, cache); err != nil {
		return res, err
	}
	return res, nil
}

// CMakeTarget returns the generated CMake target of the module named
// qualifiedName, as recorded by the last generate of bf. Names that were
// not generated map to their last component.
func (s *Session) CMakeTarget(bf *settings.BuildFolder, qualifiedName string) string {
	if qualifiedName == "" {
		return ""
	}
	if cache, err := loadCache(bf.Dir); err == nil {
		if name, ok := cache.Targets[qualifiedName]; ok {
			return name
		}
	}
	return qname.Last(qualifiedName)
}

// BuildDir returns the cmake build tree of bf for config. Single config
// generators get one tree per configuration.
func BuildDir(bf *settings.BuildFolder, config string) string {
	dir := filepath.Join(bf.Dir, "build")
	if bf.CMake != nil && !bf.CMake.IsMultiConfig() && config != "" {
		dir = filepath.Join(dir, config)
	}
	return dir
}

// CMake returns the cmake driver of bf for config.
func (s *Session) CMake(bf *settings.BuildFolder, config string) *cmake.CMake {
	c := cmake.FromOptions(bf.Dir, BuildDir(bf, config), bf.CMake).Runner(s.cmakeRunner)
	if bf.CMake != nil && !bf.CMake.IsMultiConfig() && config != "" {
		c.BuildType(config)
	}
	return c
}

// ActiveConfig returns config, or the folder's active configuration, or
// the workspace default, or Debug.
func (s *Session) ActiveConfig(bf *settings.BuildFolder, config string) string {
	for _, c := range []string{config, bf.ActiveConfig, s.Workspace.DefaultConfig} {
		if c != "" {
			return c
		}
	}
	return instantiate.DefaultConfigs[0]
}

// Configure runs the cmake configure step of bf.
func (s *Session) Configure(ctx context.Context, bf *settings.BuildFolder, config string) error {
	return s.CMake(bf, s.ActiveConfig(bf, config)).Configure(ctx)
}

// Build configures bf if needed and builds target, or everything when
// target is empty.
func (s *Session) Build(ctx context.Context, bf *settings.BuildFolder, target, config string) error {
	config = s.ActiveConfig(bf, config)
	c := s.CMake(bf, config)
	if _, err := os.Stat(filepath.Join(c.OutputDir(), "CMakeCache.txt")); err != nil {
		if err := c.Configure(ctx); err != nil {
			return err
		}
	}
	return c.BuildTarget(ctx, target, config)
}

// RunProvider runs cmd on the extern provider named by selector, for the
// toolchain of bf. bf may be nil.
func (s *Session) RunProvider(ctx context.Context, bf *settings.BuildFolder, selector string, cmd extern.Command) (extern.Result, error) {
	p, err := s.Registry.FindProvider(selector)
	if err != nil {
		return extern.Result{}, err
	}
	tc, err := s.ExternToolchain(bf)
	if err != nil {
		return extern.Result{}, err
	}
	args, err := extern.NewProviderArgs(tc, p, s.Env())
	if err != nil {
		return extern.Result{}, err
	}
	res := s.Providers().Run(ctx, cmd, args)
	ctxlog.FromContext(ctx).Debug("ran extern provider", "provider", selector, "command", cmd, "result", res)
	return res, nil
}
