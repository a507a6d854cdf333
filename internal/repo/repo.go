// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package repo scans the module scripts of a workspace into a registry of
// repos and resolves dotted dependency names against it.
package repo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goplus/plybuild/internal/script"
	"github.com/goplus/plybuild/pkgs/label"
	"github.com/goplus/plybuild/pkgs/qname"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Kind says what a DependencySource stands for.
type Kind int

const (
	TargetKind Kind = iota
	ExternKind
)

func (k Kind) String() string {
	if k == ExternKind {
		return "extern"
	}
	return "target"
}

// DependencySource is something a module can depend on: a target or an
// extern declared in a repo.
type DependencySource struct {
	Kind  Kind
	Name  string
	Repo  *Repo
	Block *script.CustomBlock
	// Diags holds the errors of the declaring file and of scan time
	// evaluation. A source with errors cannot be instantiated.
	Diags hcl.Diagnostics
}

// QualifiedName returns repo.name, with the names of enclosing repos.
func (s *DependencySource) QualifiedName() string {
	return s.Repo.QualifiedName() + "." + s.Name
}

// Err returns the declaration errors of s, or nil.
func (s *DependencySource) Err() error {
	if s.Diags.HasErrors() {
		return s.Diags
	}
	return nil
}

// TargetInstantiator is a module or executable declaration.
type TargetInstantiator struct {
	DependencySource
	Executable bool
	// Options holds the config_options defaults, evaluated at scan time.
	Options     map[string]cty.Value
	OptionOrder []string
}

// Extern is an extern declaration.
type Extern struct {
	DependencySource
	Providers     map[string]*ExternProvider
	ProviderOrder []string
}

// ExternProvider is one provider block of an extern.
type ExternProvider struct {
	Extern *Extern
	Name   string
	Block  *script.CustomBlock
	// Settings holds the key = value assignments of the block.
	Settings map[string]cty.Value
}

// Selector returns repo.extern.provider.
func (p *ExternProvider) Selector() string {
	return p.Extern.QualifiedName() + "." + p.Name
}

// Setting returns a string setting.
func (p *ExternProvider) Setting(key string) (string, bool) {
	v, ok := p.Settings[key]
	if !ok {
		return "", false
	}
	return script.AsString(v)
}

// SettingList returns a setting holding a string or a list of strings.
func (p *ExternProvider) SettingList(key string) []string {
	v, ok := p.Settings[key]
	if !ok {
		return nil
	}
	list, _ := script.AsStrings(v)
	return list
}

// Repo is a named collection of declarations.
type Repo struct {
	Name     string
	Dir      string
	Parent   *Repo
	Children map[string]*Repo
	// Remote and Ref come from repo-info.hcl.
	Remote string
	Ref    string

	Targets   map[string]*TargetInstantiator
	Externs   map[string]*Extern
	Functions map[label.Label]*script.Function
	Files     []*script.File

	ambiguous map[string][]hcl.Range
}

func newRepo(name, dir string, parent *Repo) *Repo {
	return &Repo{
		Name:      name,
		Dir:       dir,
		Parent:    parent,
		Children:  make(map[string]*Repo),
		Targets:   make(map[string]*TargetInstantiator),
		Externs:   make(map[string]*Extern),
		Functions: make(map[label.Label]*script.Function),
		ambiguous: make(map[string][]hcl.Range),
	}
}

// QualifiedName returns the dotted path of the repo from its top level
// ancestor.
func (r *Repo) QualifiedName() string {
	if r.Parent == nil {
		return r.Name
	}
	return r.Parent.QualifiedName() + "." + r.Name
}

// ChildNames returns the names of the child repos in order.
func (r *Repo) ChildNames() []string {
	return sortedKeys(r.Children)
}

// TargetNames returns the declared target names in order.
func (r *Repo) TargetNames() []string {
	return sortedKeys(r.Targets)
}

// ExternNames returns the declared extern names in order.
func (r *Repo) ExternNames() []string {
	return sortedKeys(r.Externs)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigList is the config_list declaration of a workspace.
type ConfigList struct {
	Repo  *Repo
	Block *script.CustomBlock
	Diags hcl.Diagnostics
}

// ErrNotFound is wrapped by resolution errors for names that are not
// declared.
var ErrNotFound = errors.New("not found")

// ResolveError reports a dotted name that cannot be resolved.
type ResolveError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Name, e.Reason)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Registry holds every repo of a workspace.
type Registry struct {
	Labels *label.Table
	Interp *script.Interpreter
	Repos  map[string]*Repo
	// ConfigList is nil when no script declares one.
	ConfigList *ConfigList
	// Diags collects the parse errors of every file.
	Diags hcl.Diagnostics
	// ScriptPaths lists every module script that was scanned.
	ScriptPaths []string
}

// RepoNames returns the top level repo names in order.
func (reg *Registry) RepoNames() []string {
	return sortedKeys(reg.Repos)
}

// Walk calls fn for every repo, parents before children, in name order.
func (reg *Registry) Walk(fn func(r *Repo) error) error {
	var walk func(r *Repo) error
	walk = func(r *Repo) error {
		if err := fn(r); err != nil {
			return err
		}
		for _, name := range r.ChildNames() {
			if err := walk(r.Children[name]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range reg.RepoNames() {
		if err := walk(reg.Repos[name]); err != nil {
			return err
		}
	}
	return nil
}

// FindTargetInstantiator resolves a dotted target name seen from repo
// from. A single component resolves inside from. Otherwise the first
// component names from itself, a child of from or a top level repo, and
// the middle components name child repos.
func (reg *Registry) FindTargetInstantiator(from *Repo, name string) (*TargetInstantiator, error) {
	r, last, err := reg.resolveRepo(from, name)
	if err != nil {
		return nil, err
	}
	if err := r.checkAmbiguous(name, last); err != nil {
		return nil, err
	}
	if t, ok := r.Targets[last]; ok {
		return t, nil
	}
	return nil, notFound(name, fmt.Sprintf("repo %s declares no target %s", r.QualifiedName(), last))
}

// FindExtern resolves a dotted extern name like FindTargetInstantiator.
func (reg *Registry) FindExtern(from *Repo, name string) (*Extern, error) {
	r, last, err := reg.resolveRepo(from, name)
	if err != nil {
		return nil, err
	}
	if err := r.checkAmbiguous(name, last); err != nil {
		return nil, err
	}
	if e, ok := r.Externs[last]; ok {
		return e, nil
	}
	return nil, notFound(name, fmt.Sprintf("repo %s declares no extern %s", r.QualifiedName(), last))
}

// FindSource resolves name to a target, or failing that an extern.
func (reg *Registry) FindSource(from *Repo, name string) (*DependencySource, error) {
	t, err := reg.FindTargetInstantiator(from, name)
	if err == nil {
		return &t.DependencySource, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	e, err2 := reg.FindExtern(from, name)
	if err2 == nil {
		return &e.DependencySource, nil
	}
	if !errors.Is(err2, ErrNotFound) {
		return nil, err2
	}
	return nil, notFound(name, "no target or extern with this name")
}

// FindProvider resolves a selector of the form repo.extern.provider.
func (reg *Registry) FindProvider(selector string) (*ExternProvider, error) {
	i := strings.LastIndexByte(selector, '.')
	if i < 0 {
		return nil, &ResolveError{Name: selector, Reason: "expected repo.extern.provider"}
	}
	ext, err := reg.FindExtern(nil, selector[:i])
	if err != nil {
		return nil, err
	}
	name := selector[i+1:]
	if p, ok := ext.Providers[name]; ok {
		return p, nil
	}
	return nil, notFound(selector, fmt.Sprintf("extern %s has no provider %s", ext.QualifiedName(), name))
}

func (reg *Registry) resolveRepo(from *Repo, name string) (*Repo, string, error) {
	parts, err := qname.Split(name)
	if err != nil {
		return nil, "", &ResolveError{Name: name, Reason: err.Error(), Err: err}
	}
	if len(parts) == 1 {
		if from == nil {
			return nil, "", &ResolveError{Name: name, Reason: "a qualified name is required here"}
		}
		return from, parts[0], nil
	}

	var r *Repo
	first := parts[0]
	switch {
	case from != nil && from.Name == first:
		r = from
	case from != nil && from.Children[first] != nil:
		r = from.Children[first]
	case reg.Repos[first] != nil:
		r = reg.Repos[first]
	default:
		return nil, "", notFound(name, fmt.Sprintf("no repo named %s", first))
	}
	for _, p := range parts[1 : len(parts)-1] {
		child, ok := r.Children[p]
		if !ok {
			return nil, "", notFound(name, fmt.Sprintf("repo %s has no child repo %s", r.QualifiedName(), p))
		}
		r = child
	}
	return r, parts[len(parts)-1], nil
}

func (r *Repo) checkAmbiguous(name, last string) error {
	ranges, ok := r.ambiguous[last]
	if !ok {
		return nil
	}
	locs := make([]string, len(ranges))
	for i, rng := range ranges {
		locs[i] = fmt.Sprintf("%s:%d", rng.Filename, rng.Start.Line)
	}
	return &ResolveError{Name: name, Reason: "declared more than once, at " + strings.Join(locs, ", ")}
}

func notFound(name, reason string) error {
	return &ResolveError{Name: name, Reason: reason, Err: ErrNotFound}
}
