// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package instantiate

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/goplus/plybuild/internal/project"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/script"
	"github.com/goplus/plybuild/pkgs/label"
	"github.com/goplus/plybuild/pkgs/qname"
	"github.com/zclconf/go-cty/cty"
)

// DefaultConfigs are used when no script declares a config_list.
var DefaultConfigs = []string{"Debug", "Release"}

// configList returns the declared configurations and their config
// blocks.
func (e *Engine) configList() ([]string, map[string]*script.CustomBlock, error) {
	cl := e.reg.ConfigList
	if cl == nil {
		return DefaultConfigs, nil, nil
	}
	if cl.Diags.HasErrors() {
		return nil, nil, cl.Diags
	}
	var names []string
	blocks := make(map[string]*script.CustomBlock)
	add := func(name string) error {
		if !qname.IsIdent(name) {
			return fmt.Errorf("invalid config name %q", name)
		}
		for _, n := range names {
			if n == name {
				return fmt.Errorf("config %q is declared twice", name)
			}
		}
		names = append(names, name)
		return nil
	}

	fr := e.reg.Interp.NewFrame(script.Hooks{}, cl.Repo.Lookup)
	err := fr.ExecCustomBlock(cl.Block, script.Hooks{
		Evaluate: func(_ *script.Frame, _ script.Attributes, v cty.Value, _ *script.EvaluateStmt) error {
			name, ok := script.AsString(v)
			if !ok {
				return fmt.Errorf("expected a config name, got %s", script.TypeName(v))
			}
			return add(name)
		},
		CustomBlock: func(_ *script.Frame, cb *script.CustomBlock) error {
			if cb.Kind != repo.KindConfig {
				return fmt.Errorf("%s block is not allowed in config_list", cb.Keyword)
			}
			name, ok := cb.NameText()
			if !ok {
				return errors.New("the name of a config must be a literal string")
			}
			if err := add(name); err != nil {
				return err
			}
			blocks[name] = cb
			return nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		return nil, nil, errors.New("config_list declares no configurations")
	}
	return names, blocks, nil
}

// runConfigBlock applies a config block to the current configuration.
// Plain assignments set generic options of every target, property blocks
// add options to every target and module.key assignments override module
// config options.
func (e *Engine) runConfigBlock(cb *script.CustomBlock) error {
	r := e.reg.ConfigList.Repo
	labels := e.reg.Labels
	e.stack = append(e.stack, &scope{dir: scriptDir(cb)})
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	props := &properties{e: e, repo: r, dir: scriptDir(cb), add: e.addPerConfig, global: true}
	fr := e.reg.Interp.NewFrame(script.Hooks{}, e.resolver(r, nil))
	return fr.ExecCustomBlock(cb, script.Hooks{
		CustomBlock: props.block,
		LocalAssign: func(_ *script.Frame, attrs script.Attributes, name label.Label, v cty.Value) (bool, error) {
			if attrs.Visibility != script.VisDefault {
				return false, errNoVisibility
			}
			text, err := script.ToText(v)
			if err != nil {
				return false, err
			}
			e.addPerConfig(project.Option{Type: project.Generic, Key: labels.View(name), Value: project.Concrete(text)})
			return true, nil
		},
	})
}

// moduleOptions are the config options of one module in the current
// configuration.
type moduleOptions struct {
	e      *Engine
	ti     *repo.TargetInstantiator
	values map[string]cty.Value
}

func (e *Engine) options(ti *repo.TargetInstantiator) *moduleOptions {
	if mo, ok := e.moduleOpts[ti]; ok {
		return mo
	}
	mo := &moduleOptions{e: e, ti: ti, values: maps.Clone(ti.Options)}
	if mo.values == nil {
		mo.values = make(map[string]cty.Value)
	}
	e.moduleOpts[ti] = mo
	return mo
}

func (mo *moduleOptions) Property(name string) (cty.Value, bool) {
	v, ok := mo.values[name]
	return v, ok
}

func (mo *moduleOptions) SetProperty(name string, v cty.Value) error {
	if _, ok := mo.ti.Options[name]; !ok {
		return fmt.Errorf("module %s has no config option %q", mo.ti.QualifiedName(), name)
	}
	if _, started := mo.e.states[&mo.ti.DependencySource]; started {
		return fmt.Errorf("config options of %s are already in use", mo.ti.QualifiedName())
	}
	mo.values[name] = v
	return nil
}

// nameRef is a dotted name that does not resolve to a module yet: a repo
// path or an extern.
type nameRef struct {
	e    *Engine
	from *repo.Repo
	text string
}

func (n *nameRef) Property(name string) (cty.Value, bool) {
	return n.e.reference(n.from, n.text+"."+name)
}

func (n *nameRef) SetProperty(name string, _ cty.Value) error {
	return fmt.Errorf("%s is not a module", n.text)
}

// resolver looks names up for a script run on behalf of repo r: the
// functions of r and its parents, then the config options of own, then
// modules, externs and repos.
func (e *Engine) resolver(r *repo.Repo, own *moduleOptions) func(label.Label) (cty.Value, bool) {
	labels := e.reg.Labels
	return func(name label.Label) (cty.Value, bool) {
		if v, ok := r.Lookup(name); ok {
			return v, true
		}
		text := labels.View(name)
		if own != nil {
			if v, ok := own.values[text]; ok {
				return v, true
			}
		}
		return e.reference(r, text)
	}
}

func (e *Engine) reference(from *repo.Repo, text string) (cty.Value, bool) {
	src, err := e.reg.FindSource(from, text)
	if err == nil {
		if src.Kind == repo.TargetKind {
			return script.ObjectVal(e.options(src.Repo.Targets[src.Name])), true
		}
		return script.ObjectVal(&nameRef{e: e, from: from, text: text}), true
	}
	if e.isRepoPath(from, text) {
		return script.ObjectVal(&nameRef{e: e, from: from, text: text}), true
	}
	return script.None, false
}

func (e *Engine) isRepoPath(from *repo.Repo, text string) bool {
	parts, err := qname.Split(text)
	if err != nil {
		return false
	}
	var r *repo.Repo
	switch {
	case from != nil && from.Name == parts[0]:
		r = from
	case from != nil && from.Children[parts[0]] != nil:
		r = from.Children[parts[0]]
	default:
		r = e.reg.Repos[parts[0]]
	}
	for _, p := range parts[1:] {
		if r == nil {
			return false
		}
		r = r.Children[p]
	}
	return r != nil
}

// sourceOf returns the dependency source a dependency statement names.
func (e *Engine) sourceOf(from *repo.Repo, v cty.Value) (*repo.DependencySource, error) {
	if s, ok := script.AsString(v); ok {
		return e.reg.FindSource(from, s)
	}
	obj, ok := script.AsObject(v)
	if ok {
		switch obj := obj.(type) {
		case *moduleOptions:
			return &obj.ti.DependencySource, nil
		case *nameRef:
			return e.reg.FindSource(obj.from, obj.text)
		}
	}
	return nil, fmt.Errorf("expected a module name, got %s", script.TypeName(v))
}

func scriptDir(cb *script.CustomBlock) string {
	if cb == nil {
		return ""
	}
	return filepath.Dir(cb.SrcRange.Filename)
}
