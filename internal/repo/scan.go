// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/script"
	"github.com/goplus/plybuild/pkgs/label"
	"github.com/goplus/plybuild/pkgs/qname"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

const (
	// InfoFile marks a directory as a repo and may name its remote.
	InfoFile = "repo-info.hcl"
	// Plyfile is the conventional name of a module script.
	Plyfile = "Plyfile"
	// ScriptExt is the extension of module scripts.
	ScriptExt = ".modules"
)

type repoInfo struct {
	Remote string `hcl:"remote,optional"`
	Ref    string `hcl:"ref,optional"`
}

// Options configure Scan.
type Options struct {
	// Dir is the directory holding one subdirectory per repo.
	Dir    string
	Labels *label.Table
	// Interp evaluates config_options and provider blocks. When nil, an
	// interpreter with the standard builtins is used.
	Interp *script.Interpreter
}

// IsScript reports whether a file name is a module script.
func IsScript(name string) bool {
	return name == Plyfile || strings.HasSuffix(name, ScriptExt)
}

// Scan parses every module script below opts.Dir. Parse errors do not
// stop the scan; they are kept on the declarations of the broken file and
// in Registry.Diags. Only I/O errors fail the scan.
func Scan(ctx context.Context, opts Options) (*Registry, error) {
	logger := ctxlog.FromContext(ctx)
	labels := opts.Labels
	if labels == nil {
		labels = label.NewTable()
	}
	interp := opts.Interp
	if interp == nil {
		interp = script.New(labels)
		interp.InstallStdlib()
	}
	reg := &Registry{
		Labels: labels,
		Interp: interp,
		Repos:  make(map[string]*Repo),
	}
	s := &scanner{reg: reg, grammar: Grammar()}

	entries, err := os.ReadDir(opts.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("repos directory does not exist", "dir", opts.Dir)
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan repos: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !qname.IsIdent(e.Name()) {
			logger.Warn("skipping repo with an invalid name", "dir", e.Name())
			continue
		}
		dir := filepath.Join(opts.Dir, e.Name())
		r := newRepo(e.Name(), dir, nil)
		if err := loadRepoInfo(r); err != nil {
			return nil, err
		}
		reg.Repos[r.Name] = r
		if err := s.scanDir(ctx, r, dir); err != nil {
			return nil, err
		}
	}

	err = reg.Walk(func(r *Repo) error {
		s.evaluate(r)
		logger.Debug("scanned repo", "repo", r.QualifiedName(),
			"targets", len(r.Targets), "externs", len(r.Externs), "files", len(r.Files))
		return nil
	})
	return reg, err
}

func loadRepoInfo(r *Repo) error {
	path := filepath.Join(r.Dir, InfoFile)
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var info repoInfo
	if err := hclsimple.Decode(path, src, nil, &info); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	r.Remote, r.Ref = info.Remote, info.Ref
	return nil
}

type scanner struct {
	reg     *Registry
	grammar *script.Grammar
}

func (s *scanner) scanDir(ctx context.Context, r *Repo, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)
		if !e.IsDir() {
			if IsScript(name) {
				if err := s.parseFile(r, path); err != nil {
					return err
				}
			}
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(path, InfoFile)); err == nil {
			if !qname.IsIdent(name) {
				ctxlog.FromContext(ctx).Warn("skipping child repo with an invalid name", "dir", path)
				continue
			}
			child := newRepo(name, path, r)
			if err := loadRepoInfo(child); err != nil {
				return err
			}
			r.Children[name] = child
			if err := s.scanDir(ctx, child, path); err != nil {
				return err
			}
			continue
		}
		if err := s.scanDir(ctx, r, path); err != nil {
			return err
		}
	}
	return nil
}

func (s *scanner) parseFile(r *Repo, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read module script: %w", err)
	}
	reg := s.reg
	f, diags := script.Parse(path, src, reg.Labels, s.grammar)
	reg.ScriptPaths = append(reg.ScriptPaths, path)
	r.Files = append(r.Files, f)

	var sources []*DependencySource
	var configList *ConfigList
	for _, stmt := range f.Body.Stmts {
		switch st := stmt.(type) {
		case *script.FuncDef:
			if _, dup := r.Functions[st.Name]; dup {
				diags = diags.Append(diagf(st.SrcRange, "function %q is already defined in repo %s",
					reg.Labels.View(st.Name), r.QualifiedName()))
				continue
			}
			r.Functions[st.Name] = &script.Function{Def: st}

		case *script.CustomBlock:
			switch st.Kind {
			case KindModule, KindExecutable, KindExtern:
				name, d := declName(st)
				if d != nil {
					diags = diags.Append(d)
					continue
				}
				var src *DependencySource
				if st.Kind == KindExtern {
					e := &Extern{
						DependencySource: DependencySource{Kind: ExternKind, Name: name, Repo: r, Block: st},
						Providers:        make(map[string]*ExternProvider),
					}
					src = &e.DependencySource
					s.declare(r, name, st.SrcRange, func() { r.Externs[name] = e })
				} else {
					t := &TargetInstantiator{
						DependencySource: DependencySource{Kind: TargetKind, Name: name, Repo: r, Block: st},
						Executable:       st.Kind == KindExecutable,
						Options:          make(map[string]cty.Value),
					}
					src = &t.DependencySource
					s.declare(r, name, st.SrcRange, func() { r.Targets[name] = t })
				}
				sources = append(sources, src)

			case KindConfigList:
				if reg.ConfigList != nil {
					prev := reg.ConfigList.Block.SrcRange
					diags = diags.Append(diagf(st.SrcRange, "config_list is already declared at %s:%d",
						prev.Filename, prev.Start.Line))
					continue
				}
				configList = &ConfigList{Repo: r, Block: st}
				reg.ConfigList = configList
			}

		default:
			diags = diags.Append(diagf(stmt.Range(), "only declarations and functions are allowed at file scope"))
		}
	}

	for _, src := range sources {
		src.Diags = append(src.Diags, diags...)
	}
	if configList != nil {
		configList.Diags = append(configList.Diags, diags...)
	}
	reg.Diags = reg.Diags.Extend(diags)
	return nil
}

func declName(cb *script.CustomBlock) (string, *hcl.Diagnostic) {
	name, ok := cb.NameText()
	if !ok {
		return "", diagf(cb.SrcRange, "the name of a %s must be a literal string", cb.Keyword)
	}
	if !qname.IsIdent(name) {
		return "", diagf(cb.Name.Range(), "invalid %s name %q", cb.Keyword, name)
	}
	return name, nil
}

// declare records a declaration. A name declared twice in the same repo,
// as a target or an extern, becomes ambiguous.
func (s *scanner) declare(r *Repo, name string, rng hcl.Range, add func()) {
	if prev, ok := r.ambiguous[name]; ok {
		r.ambiguous[name] = append(prev, rng)
		return
	}
	var first *DependencySource
	if t, ok := r.Targets[name]; ok {
		first = &t.DependencySource
	} else if e, ok := r.Externs[name]; ok {
		first = &e.DependencySource
	}
	if first != nil {
		r.ambiguous[name] = []hcl.Range{first.Block.SrcRange, rng}
		return
	}
	add()
}

// evaluate runs the scan time parts of the declarations of r: the
// config_options defaults of targets and the settings of extern
// providers.
func (s *scanner) evaluate(r *Repo) {
	for _, name := range r.TargetNames() {
		t := r.Targets[name]
		if t.Diags.HasErrors() {
			continue
		}
		for _, stmt := range t.Block.Body.Stmts {
			cb, ok := stmt.(*script.CustomBlock)
			if !ok || cb.Kind != KindConfigOptions {
				continue
			}
			err := s.assignments(r, cb, func(key string, v cty.Value) {
				if _, seen := t.Options[key]; !seen {
					t.OptionOrder = append(t.OptionOrder, key)
				}
				t.Options[key] = v
			})
			if err != nil {
				t.Diags = t.Diags.Append(toDiag(err, cb.SrcRange))
			}
		}
	}

	for _, name := range r.ExternNames() {
		e := r.Externs[name]
		if e.Diags.HasErrors() {
			continue
		}
		for _, stmt := range e.Block.Body.Stmts {
			cb, ok := stmt.(*script.CustomBlock)
			if !ok || cb.Kind != KindProvider {
				e.Diags = e.Diags.Append(diagf(stmt.Range(), "only provider blocks are allowed inside an extern"))
				continue
			}
			pname, d := declName(cb)
			if d != nil {
				e.Diags = e.Diags.Append(d)
				continue
			}
			if _, dup := e.Providers[pname]; dup {
				e.Diags = e.Diags.Append(diagf(cb.SrcRange, "provider %q is already declared", pname))
				continue
			}
			p := &ExternProvider{Extern: e, Name: pname, Block: cb, Settings: make(map[string]cty.Value)}
			err := s.assignments(r, cb, func(key string, v cty.Value) {
				p.Settings[key] = v
			})
			if err != nil {
				e.Diags = e.Diags.Append(toDiag(err, cb.SrcRange))
				continue
			}
			e.Providers[pname] = p
			e.ProviderOrder = append(e.ProviderOrder, pname)
		}
	}
}

// assignments runs the body of cb and reports every assignment to a
// plain name.
func (s *scanner) assignments(r *Repo, cb *script.CustomBlock, set func(key string, v cty.Value)) error {
	labels := s.reg.Labels
	fr := s.reg.Interp.NewFrame(script.Hooks{}, r.Lookup)
	return fr.ExecCustomBlock(cb, script.Hooks{
		LocalAssign: func(_ *script.Frame, _ script.Attributes, name label.Label, v cty.Value) (bool, error) {
			set(labels.View(name), v)
			return true, nil
		},
	})
}

// Lookup resolves the functions declared in r and its ancestors.
func (r *Repo) Lookup(name label.Label) (cty.Value, bool) {
	for rr := r; rr != nil; rr = rr.Parent {
		if fn, ok := rr.Functions[name]; ok {
			return script.CallableVal(fn), true
		}
	}
	return script.None, false
}

func diagf(rng hcl.Range, format string, args ...any) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	}
}

func toDiag(err error, rng hcl.Range) *hcl.Diagnostic {
	var se *script.Error
	if errors.As(err, &se) {
		return se.Diagnostic()
	}
	return diagf(rng, "%s", err)
}
