// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package instantiate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goplus/plybuild/internal/project"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/script"
	"github.com/goplus/plybuild/pkgs/label"
	"github.com/zclconf/go-cty/cty"
)

var errNoVisibility = errors.New("public and private are not allowed in a config block")

// instantiateTarget runs the body of a module or executable declaration.
func (e *Engine) instantiateTarget(ctx context.Context, ti *repo.TargetInstantiator, t *project.Target) error {
	props := &properties{
		e:      e,
		ctx:    ctx,
		repo:   ti.Repo,
		dir:    scriptDir(ti.Block),
		target: t,
		add:    t.AddOption,
	}
	fr := e.reg.Interp.NewFrame(script.Hooks{}, e.resolver(ti.Repo, e.options(ti)))
	return fr.ExecCustomBlock(ti.Block, script.Hooks{CustomBlock: props.block})
}

// properties handles the property blocks of a module body or, when
// global is set, of a config block.
type properties struct {
	e      *Engine
	ctx    context.Context
	repo   *repo.Repo
	dir    string
	target *project.Target
	add    func(project.Option)
	global bool
}

func (p *properties) block(fr *script.Frame, cb *script.CustomBlock) error {
	switch cb.Kind {
	case repo.KindDependencies:
		if p.target != nil {
			return fr.ExecCustomBlock(cb, script.Hooks{Evaluate: p.dependency})
		}
	case repo.KindConfigOptions:
		// Evaluated when the repo was scanned.
		return nil
	case repo.KindIncludeDirectories:
		return fr.ExecCustomBlock(cb, script.Hooks{Evaluate: p.each(cb, p.includeDir)})
	case repo.KindPreprocessorDefinitions:
		return fr.ExecCustomBlock(cb, script.Hooks{
			Evaluate:    p.each(cb, p.define),
			LocalAssign: p.assign(project.PreprocessorDef),
		})
	case repo.KindCompileOptions:
		return fr.ExecCustomBlock(cb, script.Hooks{
			Evaluate: func(*script.Frame, script.Attributes, cty.Value, *script.EvaluateStmt) error {
				return errors.New("compile options are assignments: key = value")
			},
			LocalAssign: p.assign(project.Generic),
		})
	case repo.KindLinkLibraries:
		return fr.ExecCustomBlock(cb, script.Hooks{Evaluate: p.each(cb, p.linkLibrary)})
	case repo.KindCompilerFlags:
		return fr.ExecCustomBlock(cb, script.Hooks{Evaluate: p.each(cb, p.flag(project.CompilerSpecific))})
	case repo.KindLinkerFlags:
		return fr.ExecCustomBlock(cb, script.Hooks{Evaluate: p.each(cb, p.flag(project.LinkerSpecific))})
	}
	return fmt.Errorf("%s block is not allowed here", cb.Keyword)
}

// public returns the configurations an entry with attrs is exported in.
// Entries are private unless marked public.
func (p *properties) public(attrs script.Attributes) (project.ConfigMask, error) {
	if p.global {
		if attrs.Visibility != script.VisDefault {
			return 0, errNoVisibility
		}
		return p.e.bit, nil
	}
	if attrs.IsPublic() {
		return p.e.bit, nil
	}
	return 0, nil
}

func (p *properties) option(attrs script.Attributes, o project.Option) error {
	pub, err := p.public(attrs)
	if err != nil {
		return err
	}
	o.Enabled, o.Public = p.e.bit, pub
	p.add(o)
	return nil
}

type entryFunc func(attrs script.Attributes, text string) error

// each calls fn for a string value or every element of a list value.
func (p *properties) each(cb *script.CustomBlock, fn entryFunc) func(*script.Frame, script.Attributes, cty.Value, *script.EvaluateStmt) error {
	return func(_ *script.Frame, attrs script.Attributes, v cty.Value, _ *script.EvaluateStmt) error {
		list, ok := script.AsStrings(v)
		if !ok {
			return fmt.Errorf("%s expects strings, got %s", cb.Keyword, script.TypeName(v))
		}
		for _, s := range list {
			if err := fn(attrs, s); err != nil {
				return err
			}
		}
		return nil
	}
}

func (p *properties) assign(typ project.OptionType) func(*script.Frame, script.Attributes, label.Label, cty.Value) (bool, error) {
	return func(_ *script.Frame, attrs script.Attributes, name label.Label, v cty.Value) (bool, error) {
		text, err := script.ToText(v)
		if err != nil {
			return false, err
		}
		key := p.e.reg.Labels.View(name)
		// A generic option of a target replaces the inherited value.
		if typ == project.Generic && !p.global {
			if err := p.option(attrs, project.Option{Type: typ, Key: key, Value: project.Erased}); err != nil {
				return false, err
			}
		}
		return true, p.option(attrs, project.Option{Type: typ, Key: key, Value: project.Concrete(text)})
	}
}

func (p *properties) includeDir(attrs script.Attributes, dir string) error {
	return p.option(attrs, project.Option{Type: project.IncludeDir, Key: p.abs(dir)})
}

func (p *properties) define(attrs script.Attributes, def string) error {
	key, value, _ := strings.Cut(def, "=")
	if key == "" {
		return fmt.Errorf("invalid preprocessor definition %q", def)
	}
	return p.option(attrs, project.Option{Type: project.PreprocessorDef, Key: key, Value: project.Concrete(value)})
}

// linkLibrary adds a library by name, or by path relative to the script.
func (p *properties) linkLibrary(_ script.Attributes, lib string) error {
	if strings.ContainsAny(lib, `/\`) {
		lib = p.abs(lib)
	}
	o := project.Option{Type: project.LinkerInput, Key: lib, Enabled: p.e.bit, Public: p.e.bit}
	p.add(o)
	return nil
}

func (p *properties) flag(typ project.OptionType) entryFunc {
	return func(attrs script.Attributes, flag string) error {
		return p.option(attrs, project.Option{Type: typ, Key: flag})
	}
}

func (p *properties) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.dir, path)
}

// dependency instantiates the module or extern a dependencies entry names
// and records the edge.
func (p *properties) dependency(_ *script.Frame, attrs script.Attributes, v cty.Value, _ *script.EvaluateStmt) error {
	src, err := p.e.sourceOf(p.repo, v)
	if err != nil {
		return err
	}
	dep, err := p.e.instantiate(p.ctx, src)
	if err != nil {
		return err
	}
	pub, err := p.public(attrs)
	if err != nil {
		return err
	}
	p.target.AddDependency(dep, p.e.bit, pub)
	return nil
}
