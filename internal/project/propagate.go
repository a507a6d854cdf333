// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package project

import (
	"fmt"
	"strings"
)

type mark uint8

const (
	white mark = iota
	grey
	black
)

// Propagate computes the final option set and flattened link
// dependencies of every target. Dependencies are processed before their
// dependents; a target is processed once.
//
// Include directories, defines, generic and compiler flags of a
// dependency reach the dependent only if the dependency exports them, in
// the configurations the edge is enabled in, and are exported again only
// through public edges. Linker inputs and linker flags reach every
// dependent. The masks of all edges along a path are AND-ed. The target's
// own options are merged last, the same way: a different value for an
// inherited key is kept next to it, and only an Erased entry removes
// inherited values.
func (p *Project) Propagate() error {
	if p.didInheritance {
		return nil
	}
	marks := make(map[*Target]mark, len(p.Targets))
	var stack []*Target
	var visit func(t *Target) error
	visit = func(t *Target) error {
		switch marks[t] {
		case black:
			return nil
		case grey:
			var names []string
			for i := len(stack) - 1; i >= 0; i-- {
				names = append([]string{stack[i].QualifiedName}, names...)
				if stack[i] == t {
					break
				}
			}
			names = append(names, t.QualifiedName)
			return fmt.Errorf("%w: %s", ErrInternalCycle, strings.Join(names, " -> "))
		}
		marks[t] = grey
		stack = append(stack, t)
		for _, dep := range t.Dependencies {
			if err := visit(dep.Target); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		p.doInheritance(t)
		marks[t] = black
		p.order = append(p.order, t)
		return nil
	}
	for _, t := range p.Targets {
		if err := visit(t); err != nil {
			return err
		}
	}
	p.didInheritance = true
	return nil
}

func (p *Project) doInheritance(t *Target) {
	if t.didInheritance {
		return
	}
	var options []Option
	var linkDeps []Dependency

	for i := range p.PerConfigOptions {
		o := &p.PerConfigOptions[i]
		options = inheritOption(options, o, o.Enabled, 0)
	}

	for _, dep := range t.Dependencies {
		if dep.Target.Type == Executable {
			continue
		}
		for _, dep2 := range dep.Target.LinkDeps {
			linkDeps = inheritDependency(linkDeps, dep2.Target, dep.Enabled&dep2.Enabled)
		}
		linkDeps = inheritDependency(linkDeps, dep.Target, dep.Enabled)

		for i := range dep.Target.Options {
			o := &dep.Target.Options[i]
			if o.Type.linksTransitively() {
				visible := o.Enabled & dep.Enabled
				options = inheritOption(options, o, visible, visible)
			} else {
				options = inheritOption(options, o, o.Public&dep.Enabled, o.Public&dep.Public)
			}
		}
	}

	for i := range t.Options {
		o := &t.Options[i]
		options = inheritOption(options, o, o.Enabled, o.Public)
	}

	t.Options = options
	t.LinkDeps = linkDeps
	t.didInheritance = true
}

func inheritDependency(deps []Dependency, target *Target, enabled ConfigMask) []Dependency {
	if enabled == 0 {
		return deps
	}
	for i := range deps {
		if deps[i].Target == target {
			deps[i].Enabled |= enabled
			return deps
		}
	}
	return append(deps, Dependency{Target: target, Enabled: enabled})
}
