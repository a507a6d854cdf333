// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package project

import (
	"errors"
	"fmt"
)

// TargetType is the kind of artifact a Target produces.
type TargetType int

const (
	Library TargetType = iota
	Executable
	// HeaderOnly targets never invoke the compiler; externs are header only
	// targets carrying the options their provider computed.
	HeaderOnly
	DLL
	ObjectLibrary
)

var targetTypeNames = [...]string{
	Library:       "library",
	Executable:    "executable",
	HeaderOnly:    "header_only",
	DLL:           "dll",
	ObjectLibrary: "object_library",
}

func (t TargetType) String() string {
	if t >= 0 && int(t) < len(targetTypeNames) {
		return targetTypeNames[t]
	}
	return fmt.Sprintf("TargetType(%d)", int(t))
}

// SourceFile is a file relative to its SourceGroup.
type SourceFile struct {
	RelPath string
	Enabled ConfigMask
}

// SourceGroup is a set of source files below one directory.
type SourceGroup struct {
	AbsPath string
	Files   []SourceFile
}

// Dependency is an edge to another target.
type Dependency struct {
	Target  *Target
	Enabled ConfigMask
	Public  ConfigMask
}

// Target is the instantiated form of a module or extern. It is shared by
// every configuration; masks record where each part applies.
type Target struct {
	// Name is the unqualified name, used for the generated build target.
	Name string
	// QualifiedName is repo.name.
	QualifiedName string
	Type          TargetType
	Extern        bool
	Enabled       ConfigMask
	HasBuildStep  ConfigMask
	Options       []Option
	Dependencies  []Dependency
	SourceGroups  []SourceGroup

	// LinkDeps is the flattened set of libraries the target links, filled
	// in by Project.Propagate.
	LinkDeps []Dependency

	didInheritance bool
}

// AddOption adds an option declared by the target itself.
func (t *Target) AddOption(o Option) {
	t.Options = AppendOption(t.Options, o)
}

// AddDependency records an edge to dep, OR-ing the masks into an existing
// edge to the same target.
func (t *Target) AddDependency(dep *Target, enabled, public ConfigMask) {
	for i := range t.Dependencies {
		if t.Dependencies[i].Target == dep {
			t.Dependencies[i].Enabled |= enabled
			t.Dependencies[i].Public |= public & enabled
			return
		}
	}
	t.Dependencies = append(t.Dependencies, Dependency{Target: dep, Enabled: enabled, Public: public & enabled})
}

// AddSourceFile records a file of the group rooted at absPath.
func (t *Target) AddSourceFile(absPath, relPath string, enabled ConfigMask) {
	gi := -1
	for i := range t.SourceGroups {
		if t.SourceGroups[i].AbsPath == absPath {
			gi = i
			break
		}
	}
	if gi < 0 {
		gi = len(t.SourceGroups)
		t.SourceGroups = append(t.SourceGroups, SourceGroup{AbsPath: absPath})
	}
	g := &t.SourceGroups[gi]
	for i := range g.Files {
		if g.Files[i].RelPath == relPath {
			g.Files[i].Enabled |= enabled
			return
		}
	}
	g.Files = append(g.Files, SourceFile{RelPath: relPath, Enabled: enabled})
}

// DropConfig clears the configurations in m from everything recorded on
// t. It undoes a partial instantiation that failed in those
// configurations.
func (t *Target) DropConfig(m ConfigMask) {
	t.Enabled &^= m
	t.HasBuildStep &^= m
	opts := t.Options[:0]
	for _, o := range t.Options {
		o.Enabled &^= m
		o.Public &^= m
		if o.Enabled != 0 {
			opts = append(opts, o)
		}
	}
	t.Options = opts
	deps := t.Dependencies[:0]
	for _, d := range t.Dependencies {
		d.Enabled &^= m
		d.Public &^= m
		if d.Enabled != 0 {
			deps = append(deps, d)
		}
	}
	t.Dependencies = deps
	groups := t.SourceGroups[:0]
	for _, g := range t.SourceGroups {
		files := g.Files[:0]
		for _, f := range g.Files {
			f.Enabled &^= m
			if f.Enabled != 0 {
				files = append(files, f)
			}
		}
		if len(files) > 0 {
			g.Files = files
			groups = append(groups, g)
		}
	}
	t.SourceGroups = groups
}

// Project is the set of targets generated into one build system.
type Project struct {
	Name        string
	ConfigNames []string
	// PerConfigOptions apply to every target.
	PerConfigOptions []Option
	// Targets holds every target reachable from the roots.
	Targets []*Target
	Roots   []*Target

	order          []*Target
	didInheritance bool
}

// ErrInternalCycle is returned by Propagate for a cyclic target graph.
// Instantiation rejects cycles, so reaching it is a bug.
var ErrInternalCycle = errors.New("internal error: dependency cycle reached propagation")

// ErrTooManyConfigs is returned by New when more configurations are
// declared than a ConfigMask can hold.
var ErrTooManyConfigs = fmt.Errorf("at most %d configurations are supported", MaxConfigs)

// New creates an empty project.
func New(name string, configs []string) (*Project, error) {
	if len(configs) == 0 {
		return nil, errors.New("no configurations declared")
	}
	if len(configs) > MaxConfigs {
		return nil, ErrTooManyConfigs
	}
	return &Project{Name: name, ConfigNames: configs}, nil
}

// AllConfigs returns the mask holding every configuration of p.
func (p *Project) AllConfigs() ConfigMask {
	return AllConfigs(len(p.ConfigNames))
}

// ConfigIndex returns the index of the named configuration, or -1.
func (p *Project) ConfigIndex(name string) int {
	for i, n := range p.ConfigNames {
		if n == name {
			return i
		}
	}
	return -1
}

// Target returns the target with the given qualified name.
func (p *Project) Target(qualifiedName string) *Target {
	for _, t := range p.Targets {
		if t.QualifiedName == qualifiedName {
			return t
		}
	}
	return nil
}

// Ordered returns the targets with every dependency before its
// dependents. It is only valid after Propagate.
func (p *Project) Ordered() []*Target {
	return p.order
}

// Propagated reports whether Propagate has run.
func (p *Project) Propagated() bool {
	return p.didInheritance
}
