// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"fmt"
	"path/filepath"

	"github.com/goplus/plybuild/internal/project"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the instantiated project of the current build folder as YAML",
	Args:  cobra.NoArgs,
	RunE:  runDescribe,
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

type projectDesc struct {
	Name     string       `yaml:"name"`
	Configs  []string     `yaml:"configs"`
	Roots    []string     `yaml:"roots"`
	Global   []optionDesc `yaml:"per_config_options,omitempty"`
	Targets  []targetDesc `yaml:"targets"`
	Failures []string     `yaml:"failures,omitempty"`
}

type targetDesc struct {
	Name         string       `yaml:"name"`
	Type         string       `yaml:"type"`
	Extern       bool         `yaml:"extern,omitempty"`
	Configs      []string     `yaml:"configs"`
	Sources      []string     `yaml:"sources,omitempty"`
	Dependencies []depDesc    `yaml:"dependencies,omitempty"`
	LinkDeps     []string     `yaml:"link_dependencies,omitempty"`
	Options      []optionDesc `yaml:"options,omitempty"`
}

type depDesc struct {
	Target  string   `yaml:"target"`
	Configs []string `yaml:"configs"`
	Public  []string `yaml:"public,omitempty"`
}

type optionDesc struct {
	Option  string   `yaml:"option"`
	Configs []string `yaml:"configs"`
	Public  []string `yaml:"public,omitempty"`
}

func describeOptions(opts []project.Option, configs []string) []optionDesc {
	var out []optionDesc
	for _, o := range opts {
		out = append(out, optionDesc{Option: o.String(), Configs: o.Enabled.Names(configs), Public: o.Public.Names(configs)})
	}
	return out
}

func describeProject(p *project.Project) *projectDesc {
	cfg := p.ConfigNames
	d := &projectDesc{Name: p.Name, Configs: cfg, Global: describeOptions(p.PerConfigOptions, cfg)}
	for _, t := range p.Roots {
		d.Roots = append(d.Roots, t.QualifiedName)
	}
	for _, t := range p.Ordered() {
		td := targetDesc{
			Name:    t.QualifiedName,
			Type:    t.Type.String(),
			Extern:  t.Extern,
			Configs: t.Enabled.Names(cfg),
			Options: describeOptions(t.Options, cfg),
		}
		for _, g := range t.SourceGroups {
			for _, f := range g.Files {
				td.Sources = append(td.Sources, filepath.ToSlash(filepath.Join(g.AbsPath, f.RelPath)))
			}
		}
		for _, dep := range t.Dependencies {
			td.Dependencies = append(td.Dependencies, depDesc{
				Target:  dep.Target.QualifiedName,
				Configs: dep.Enabled.Names(cfg),
				Public:  dep.Public.Names(cfg),
			})
		}
		for _, dep := range t.LinkDeps {
			td.LinkDeps = append(td.LinkDeps, dep.Target.QualifiedName)
		}
		d.Targets = append(d.Targets, td)
	}
	return d
}

func runDescribe(cmd *cobra.Command, args []string) error {
	s, bf, err := currentFolder(cmd)
	if err != nil {
		return err
	}
	proj, report, err := s.Instantiate(cmd.Context(), bf)
	if err != nil {
		return err
	}
	d := describeProject(proj)
	for _, f := range report.Failures {
		d.Failures = append(d.Failures, fmt.Sprintf("%s %s: %v", f.Root, f.Config, f.Err))
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}
