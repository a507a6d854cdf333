// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package instantiate runs module scripts for every configuration and
// builds the project the CMakeLists generator consumes.
package instantiate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/extern"
	"github.com/goplus/plybuild/internal/project"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/zclconf/go-cty/cty"
)

// State is the instantiation state of a dependency source in one
// configuration.
type State int

const (
	NotInstantiated State = iota
	Instantiating
	Instantiated
	Failed
)

func (s State) String() string {
	switch s {
	case Instantiating:
		return "instantiating"
	case Instantiated:
		return "instantiated"
	case Failed:
		return "failed"
	}
	return "not instantiated"
}

// CycleError reports a dependency source that depends on itself.
type CycleError struct {
	// Chain starts and ends with the same qualified name.
	Chain []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Chain, " -> ")
}

// ErrExternNotSelected is wrapped by the error of an extern no provider
// was selected for.
var ErrExternNotSelected = errors.New("no provider selected")

// ExternError reports a selected provider that could not instantiate its
// extern.
type ExternError struct {
	Extern   string
	Selector string
	Result   extern.Result
}

func (e *ExternError) Error() string {
	return fmt.Sprintf("extern %s: provider %s: %s", e.Extern, e.Selector, e.Result)
}

// Failure is a root that could not be instantiated in a configuration.
// Config is empty when the root name itself did not resolve, or when the
// root depends on a cycle formed by edges of different configurations.
type Failure struct {
	Root   string
	Config string
	Err    error
}

// Report collects what went wrong in a run without stopping it.
type Report struct {
	Failures             []Failure
	UnselectedExterns    []string
	UninstalledProviders []string
}

// Failed reports whether any root failed in any configuration.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

func addUnique(list *[]string, s string) {
	if !slices.Contains(*list, s) {
		*list = append(*list, s)
	}
}

// Options configure an Engine.
type Options struct {
	Registry *repo.Registry
	// Name is the project name. It defaults to Plywood.
	Name string
	// Roots are qualified target names.
	Roots []string
	// MakeShared lists the roots built as shared libraries.
	MakeShared []string
	// ExternSelectors name the provider of each extern, as
	// repo.extern.provider.
	ExternSelectors []string
	Toolchain       extern.Toolchain
	// Providers defaults to extern.DefaultProviders.
	Providers extern.Providers
	Env       *extern.Env
	// BuildFolder is exposed to scripts as build_folder.
	BuildFolder string
	// OnInstantiate is called every time a module body or extern runs.
	OnInstantiate func(qualifiedName, config string)
}

type entry struct {
	state  State
	target *project.Target
	err    error
}

// scope is the declaration whose body is running.
type scope struct {
	src    *repo.DependencySource
	target *project.Target
	dir    string
}

// Engine instantiates the roots of a build folder.
type Engine struct {
	opts   Options
	reg    *repo.Registry
	proj   *project.Project
	report *Report

	targets  map[*repo.DependencySource]*project.Target
	created  []*project.Target
	selected map[*repo.Extern]*repo.ExternProvider

	// State of the configuration being instantiated.
	config     int
	bit        project.ConfigMask
	states     map[*repo.DependencySource]*entry
	moduleOpts map[*repo.TargetInstantiator]*moduleOptions
	stack      []*scope
}

// New creates an engine and installs the build builtins on the registry's
// interpreter.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.New("instantiate: no registry")
	}
	if opts.Name == "" {
		opts.Name = "Plywood"
	}
	if opts.Providers == nil {
		opts.Providers = extern.DefaultProviders()
	}
	if opts.Toolchain.Compiler == "" {
		opts.Toolchain.Compiler = opts.Toolchain.Host.Toolchain()
	}
	e := &Engine{
		opts:     opts,
		reg:      opts.Registry,
		targets:  make(map[*repo.DependencySource]*project.Target),
		selected: make(map[*repo.Extern]*repo.ExternProvider),
	}
	e.installBuiltins()
	return e, nil
}

type root struct {
	name string
	ti   *repo.TargetInstantiator
}

// Run instantiates every root in every configuration, in declared order,
// and propagates the options of the resulting project. Failing roots are
// recorded in the report and do not stop the others. An error is
// returned only when the configurations cannot be determined or the
// project cannot be propagated.
func (e *Engine) Run(ctx context.Context) (*project.Project, *Report, error) {
	logger := ctxlog.FromContext(ctx)
	configs, blocks, err := e.configList()
	if err != nil {
		return nil, nil, err
	}
	proj, err := project.New(e.opts.Name, configs)
	if err != nil {
		return nil, nil, err
	}
	e.proj = proj
	e.report = &Report{}
	e.selectExterns(ctx)

	var roots []root
	for _, name := range e.opts.Roots {
		ti, err := e.reg.FindTargetInstantiator(nil, name)
		if err != nil {
			e.report.Failures = append(e.report.Failures, Failure{Root: name, Err: err})
			logger.Warn("cannot resolve root", "root", name, "err", err)
			continue
		}
		roots = append(roots, root{name, ti})
	}

	for i, cfg := range configs {
		e.config, e.bit = i, project.Bit(i)
		e.states = make(map[*repo.DependencySource]*entry)
		e.moduleOpts = make(map[*repo.TargetInstantiator]*moduleOptions)
		e.reg.Interp.SetBuiltin("config_name", cty.StringVal(cfg))
		e.addPerConfig(project.Option{Type: project.Generic, Key: "debug_info", Value: project.Concrete("true")})
		e.addPerConfig(project.Option{Type: project.Generic, Key: "optimization", Value: project.Concrete("none")})
		if cb := blocks[cfg]; cb != nil {
			if err := e.runConfigBlock(cb); err != nil {
				return nil, nil, fmt.Errorf("config %s: %w", cfg, err)
			}
		}
		for _, r := range roots {
			if _, err := e.instantiate(ctx, &r.ti.DependencySource); err != nil {
				e.report.Failures = append(e.report.Failures, Failure{Root: r.name, Config: cfg, Err: err})
				logger.Warn("root failed", "root", r.name, "config", cfg, "err", err)
			}
		}
	}

	e.finish(roots)
	e.dropMergedCycles(ctx, roots)
	if err := proj.Propagate(); err != nil {
		return nil, nil, err
	}
	return proj, e.report, nil
}

func (e *Engine) selectExterns(ctx context.Context) {
	for _, sel := range e.opts.ExternSelectors {
		p, err := e.reg.FindProvider(sel)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("ignoring extern selector", "selector", sel, "err", err)
			continue
		}
		e.selected[p.Extern] = p
	}
}

// instantiate returns the target of src for the current configuration,
// running its declaration the first time it is asked for.
func (e *Engine) instantiate(ctx context.Context, src *repo.DependencySource) (*project.Target, error) {
	ent := e.states[src]
	if ent == nil {
		ent = &entry{}
		e.states[src] = ent
	}
	switch ent.state {
	case Instantiated:
		return ent.target, nil
	case Failed:
		return nil, ent.err
	case Instantiating:
		return nil, e.cycle(src)
	}

	if err := src.Err(); err != nil {
		ent.state, ent.err = Failed, fmt.Errorf("%s: %w", src.QualifiedName(), err)
		return nil, ent.err
	}
	ent.state = Instantiating
	t := e.target(src)
	e.stack = append(e.stack, &scope{src: src, target: t, dir: scriptDir(src.Block)})
	if e.opts.OnInstantiate != nil {
		e.opts.OnInstantiate(src.QualifiedName(), e.proj.ConfigNames[e.config])
	}
	ctxlog.FromContext(ctx).Debug("instantiating", "name", src.QualifiedName(), "config", e.proj.ConfigNames[e.config])

	var err error
	if src.Kind == repo.ExternKind {
		err = e.instantiateExtern(ctx, src.Repo.Externs[src.Name], t)
	} else {
		err = e.instantiateTarget(ctx, src.Repo.Targets[src.Name], t)
	}
	e.stack = e.stack[:len(e.stack)-1]

	if err != nil {
		t.DropConfig(e.bit)
		ent.state, ent.err = Failed, err
		return nil, err
	}
	t.Enabled |= e.bit
	ent.state, ent.target = Instantiated, t
	return t, nil
}

func (e *Engine) cycle(src *repo.DependencySource) error {
	var chain []string
	for i := len(e.stack) - 1; i >= 0; i-- {
		s := e.stack[i].src
		if s == nil {
			break
		}
		chain = append(chain, s.QualifiedName())
		if s == src {
			break
		}
	}
	slices.Reverse(chain)
	return &CycleError{Chain: append(chain, src.QualifiedName())}
}

// target returns the project target shared by every configuration of src.
func (e *Engine) target(src *repo.DependencySource) *project.Target {
	if t, ok := e.targets[src]; ok {
		return t
	}
	t := &project.Target{Name: src.Name, QualifiedName: src.QualifiedName()}
	if ti, ok := src.Repo.Targets[src.Name]; ok && ti.Executable {
		t.Type = project.Executable
	}
	e.targets[src] = t
	e.created = append(e.created, t)
	return t
}

func (e *Engine) instantiateExtern(ctx context.Context, ext *repo.Extern, t *project.Target) error {
	t.Extern = true
	t.Type = project.HeaderOnly
	name := ext.QualifiedName()
	p := e.selected[ext]
	if p == nil {
		addUnique(&e.report.UnselectedExterns, name)
		return fmt.Errorf("extern %s: %w", name, ErrExternNotSelected)
	}
	args, err := extern.NewProviderArgs(e.opts.Toolchain, p, e.opts.Env)
	if err != nil {
		return err
	}
	args.Target, args.Config = t, e.bit
	res := e.opts.Providers.Run(ctx, extern.Instantiate, args)
	if res.Code != extern.Instantiated {
		if res.Code == extern.SupportedButNotInstalled || res.Code == extern.InstallFailed {
			addUnique(&e.report.UninstalledProviders, p.Selector())
		}
		return &ExternError{Extern: name, Selector: p.Selector(), Result: res}
	}
	return nil
}

// finish collects the targets enabled in at least one configuration and
// settles the type of libraries.
func (e *Engine) finish(roots []root) {
	for _, t := range e.created {
		if t.Enabled == 0 {
			continue
		}
		if !t.Extern && (t.Type == project.Library || t.Type == project.ObjectLibrary) {
			switch {
			case t.HasBuildStep == 0:
				t.Type = project.HeaderOnly
			case t.Type == project.Library && slices.Contains(e.opts.MakeShared, t.QualifiedName):
				t.Type = project.DLL
			}
		}
		e.proj.Targets = append(e.proj.Targets, t)
	}
	for _, r := range roots {
		t := e.targets[&r.ti.DependencySource]
		if t != nil && t.Enabled != 0 && !slices.Contains(e.proj.Roots, t) {
			e.proj.Roots = append(e.proj.Roots, t)
		}
	}
}

// dropMergedCycles removes the targets that reach a cycle of the merged
// dependency graph, such as A -> B in Debug and B -> A in Release. Each
// configuration pass only sees its own edges. Roots that are dropped are
// reported with the cycle they reach.
func (e *Engine) dropMergedCycles(ctx context.Context, roots []root) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[*project.Target]int)
	reaches := make(map[*project.Target][]string)
	var stack []*project.Target
	var visit func(t *project.Target) []string
	visit = func(t *project.Target) []string {
		switch color[t] {
		case gray:
			var chain []string
			for _, s := range stack[slices.Index(stack, t):] {
				chain = append(chain, s.QualifiedName)
			}
			return append(chain, t.QualifiedName)
		case black:
			return reaches[t]
		}
		color[t] = gray
		stack = append(stack, t)
		var found []string
		for _, d := range t.Dependencies {
			if d.Enabled == 0 {
				continue
			}
			if chain := visit(d.Target); chain != nil && found == nil {
				found = chain
			}
		}
		stack = stack[:len(stack)-1]
		color[t] = black
		reaches[t] = found
		return found
	}
	for _, t := range e.proj.Targets {
		visit(t)
	}
	cyclic := func(t *project.Target) bool {
		return reaches[t] != nil
	}
	if !slices.ContainsFunc(e.proj.Targets, cyclic) {
		return
	}
	logger := ctxlog.FromContext(ctx)
	for _, r := range roots {
		t := e.targets[&r.ti.DependencySource]
		if t == nil || !cyclic(t) {
			continue
		}
		err := &CycleError{Chain: reaches[t]}
		e.report.Failures = append(e.report.Failures, Failure{Root: r.name, Err: err})
		logger.Warn("root failed", "root", r.name, "err", err)
	}
	e.proj.Targets = slices.DeleteFunc(e.proj.Targets, cyclic)
	e.proj.Roots = slices.DeleteFunc(e.proj.Roots, cyclic)
}

func (e *Engine) addPerConfig(o project.Option) {
	o.Enabled, o.Public = e.bit, e.bit
	e.proj.PerConfigOptions = project.AppendOption(e.proj.PerConfigOptions, o)
}

func (e *Engine) top() *scope {
	if len(e.stack) == 0 {
		return nil
	}
	return e.stack[len(e.stack)-1]
}
