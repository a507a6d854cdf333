// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmakelists writes a propagated project as a CMakeLists.txt.
package cmakelists

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goplus/plybuild/internal/fsutil"
	"github.com/goplus/plybuild/internal/project"
)

// MinimumVersion is the CMake version the generated file requires.
const MinimumVersion = "3.13"

// ErrNotPropagated is returned for a project whose options were not
// propagated yet.
var ErrNotPropagated = errors.New("project options are not propagated")

// Write emits the CMakeLists text of p. Every option is written to the
// target it ends up on after propagation, so targets only export their
// link dependencies to CMake.
func Write(w io.Writer, p *project.Project, tc project.Toolchain) error {
	text, err := Render(p, tc)
	if err != nil {
		return err
	}
	_, err = w.Write(text)
	return err
}

// Save writes the CMakeLists text of p to path unless the file already
// holds it.
func Save(path string, p *project.Project, tc project.Toolchain, nl fsutil.NewLines) (fsutil.Result, error) {
	text, err := Render(p, tc)
	if err != nil {
		return fsutil.OK, err
	}
	return fsutil.SaveIfDifferent(path, nl.Convert(text))
}

// Render returns the CMakeLists text of p.
func Render(p *project.Project, tc project.Toolchain) ([]byte, error) {
	if !p.Propagated() {
		return nil, ErrNotPropagated
	}
	g := &generator{p: p, tc: tc, all: p.AllConfigs(), names: targetNames(p.Ordered())}
	g.header()
	for _, t := range p.Ordered() {
		g.target(t)
	}
	return []byte(g.b.String()), nil
}

type generator struct {
	b     strings.Builder
	p     *project.Project
	tc    project.Toolchain
	all   project.ConfigMask
	names map[*project.Target]string
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.b, format, args...)
}

func (g *generator) header() {
	g.printf("# Generated by plybuild. Do not edit.\n")
	g.printf("cmake_minimum_required(VERSION %s)\n", MinimumVersion)
	g.printf("set(CMAKE_CONFIGURATION_TYPES %s CACHE STRING \"\" FORCE)\n", quote(strings.Join(g.p.ConfigNames, ";")))
	g.printf("project(%s)\n", quote(g.p.Name))
	g.printf("set_property(GLOBAL PROPERTY USE_FOLDERS ON)\n")
}

// TargetNames maps the qualified name of every target of p to the name of
// its generated CMake target. p must be propagated.
func TargetNames(p *project.Project) map[string]string {
	names := make(map[string]string, len(p.Targets))
	for t, name := range targetNames(p.Ordered()) {
		names[t.QualifiedName] = name
	}
	return names
}

// targetNames uses the short name of each target unless two targets share
// it.
func targetNames(targets []*project.Target) map[*project.Target]string {
	count := make(map[string]int)
	for _, t := range targets {
		count[t.Name]++
	}
	names := make(map[*project.Target]string, len(targets))
	for _, t := range targets {
		if count[t.Name] > 1 {
			names[t] = strings.ReplaceAll(t.QualifiedName, ".", "_")
		} else {
			names[t] = t.Name
		}
	}
	return names
}

func isInterface(t *project.Target) bool {
	return t.Type == project.HeaderOnly
}

func (g *generator) target(t *project.Target) {
	name := g.names[t]
	g.printf("\n# %s\n", t.QualifiedName)

	var sources []string
	for _, grp := range t.SourceGroups {
		for _, f := range grp.Files {
			path := filepath.ToSlash(filepath.Join(grp.AbsPath, filepath.FromSlash(f.RelPath)))
			sources = append(sources, g.guard(f.Enabled, path))
		}
	}
	switch t.Type {
	case project.Executable:
		g.call("add_executable", name, "", sources)
	case project.HeaderOnly:
		g.printf("add_library(%s INTERFACE)\n", name)
	case project.DLL:
		g.call("add_library", name, "SHARED", sources)
	case project.ObjectLibrary:
		g.call("add_library", name, "OBJECT", sources)
	default:
		g.call("add_library", name, "STATIC", sources)
	}

	if !isInterface(t) {
		g.call("target_include_directories", name, "PRIVATE", g.options(t, project.IncludeDir, func(o project.Option) string {
			return filepath.ToSlash(o.Key)
		}))
		g.call("target_compile_definitions", name, "PRIVATE", g.options(t, project.PreprocessorDef, func(o project.Option) string {
			if o.Value.Text() == "" {
				return o.Key
			}
			return o.Key + "=" + o.Value.Text()
		}))
		compile, link := g.flags(t)
		g.call("target_compile_options", name, "PRIVATE", compile)
		if t.Type == project.Executable || t.Type == project.DLL {
			g.call("target_link_libraries", name, "PRIVATE", g.options(t, project.LinkerInput, func(o project.Option) string {
				if strings.ContainsAny(o.Key, `/\`) {
					return filepath.ToSlash(o.Key)
				}
				return o.Key
			}))
			g.call("target_link_options", name, "PRIVATE", link)
		}
	}

	for _, d := range t.Dependencies {
		dep := g.names[d.Target]
		if d.Target.Type == project.Executable {
			g.printf("add_dependencies(%s %s)\n", name, dep)
			continue
		}
		if isInterface(t) {
			g.call("target_link_libraries", name, "INTERFACE", []string{g.guard(d.Enabled, dep)})
			continue
		}
		if pub := d.Public & d.Enabled; pub != 0 {
			g.call("target_link_libraries", name, "PUBLIC", []string{g.guard(pub, dep)})
		}
		if priv := d.Enabled &^ d.Public; priv != 0 {
			g.call("target_link_libraries", name, "PRIVATE", []string{g.guard(priv, dep)})
		}
	}
}

// call writes cmd(name [keyword] args...) or nothing when args is empty
// and a keyword is given.
func (g *generator) call(cmd, name, keyword string, args []string) {
	if keyword != "" && len(args) == 0 && cmd != "add_library" {
		return
	}
	head := name
	if keyword != "" {
		head += " " + keyword
	}
	if len(args) == 1 {
		g.printf("%s(%s %s)\n", cmd, head, args[0])
		return
	}
	g.printf("%s(%s", cmd, head)
	for _, a := range args {
		g.printf("\n    %s", a)
	}
	if len(args) > 0 {
		g.printf("\n")
	}
	g.printf(")\n")
}

func (g *generator) options(t *project.Target, typ project.OptionType, text func(project.Option) string) []string {
	var out []string
	for _, o := range t.Options {
		if o.Type != typ || o.Value.IsErased() || o.Enabled == 0 {
			continue
		}
		out = append(out, g.guard(o.Enabled, text(o)))
	}
	return out
}

// flags translates the generic options and raw flags of t per
// configuration and guards each flag with the configurations using it.
func (g *generator) flags(t *project.Target) (compile, link []string) {
	type flagMask struct {
		flag string
		mask project.ConfigMask
	}
	collect := func(list []flagMask, flags []string, bit project.ConfigMask) []flagMask {
	next:
		for _, f := range flags {
			for i := range list {
				if list[i].flag == f {
					list[i].mask |= bit
					continue next
				}
			}
			list = append(list, flagMask{f, bit})
		}
		return list
	}
	var cl, ll []flagMask
	for i := range g.p.ConfigNames {
		copts := project.Translate(g.tc, t.Options, i)
		cl = collect(cl, copts.Compile, project.Bit(i))
		ll = collect(ll, copts.Link, project.Bit(i))
	}
	for _, f := range cl {
		compile = append(compile, g.guard(f.mask, f.flag))
	}
	for _, f := range ll {
		link = append(link, g.guard(f.mask, f.flag))
	}
	return compile, link
}

// guard returns item as an argument, restricted to the configurations in
// mask by a generator expression unless mask covers every configuration.
func (g *generator) guard(mask project.ConfigMask, item string) string {
	if mask&g.all == g.all {
		return arg(item)
	}
	item = genexEscaper.Replace(escape(item))
	names := mask.Names(g.p.ConfigNames)
	if len(names) == 1 {
		return fmt.Sprintf(`"$<$<CONFIG:%s>:%s>"`, names[0], item)
	}
	conds := make([]string, len(names))
	for i, n := range names {
		conds[i] = "$<CONFIG:" + n + ">"
	}
	return fmt.Sprintf(`"$<$<OR:%s>:%s>"`, strings.Join(conds, ","), item)
}

// unquoted matches arguments that need no quotes.
var unquoted = regexp.MustCompile(`^[A-Za-z0-9_./:+=-]+$`)

func arg(s string) string {
	if unquoted.MatchString(s) {
		return s
	}
	return `"` + escape(s) + `"`
}

var (
	escaper      = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, `;`, `\;`)
	genexEscaper = strings.NewReplacer(">", "$<ANGLE-R>", ",", "$<COMMA>")
)

func escape(s string) string {
	return escaper.Replace(s)
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`).Replace(s) + `"`
}
