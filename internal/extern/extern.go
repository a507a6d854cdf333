// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package extern resolves extern dependencies through providers: system
// package managers or prebuilt archives unpacked into extern folders.
package extern

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goplus/plybuild/internal/fsutil"
	"github.com/goplus/plybuild/internal/hosttools"
	"github.com/goplus/plybuild/internal/project"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/script"
	"github.com/kballard/go-shellquote"
	"github.com/zclconf/go-cty/cty"
)

// Code classifies the outcome of a provider command.
type Code int

const (
	Unknown Code = iota
	BadArgs
	UnsupportedHost
	MissingPackageManager
	UnsupportedToolchain
	SupportedButNotInstalled
	Installed
	InstallFailed
	Instantiated
)

var codeNames = [...]string{
	Unknown:                  "unknown",
	BadArgs:                  "bad arguments",
	UnsupportedHost:          "unsupported host",
	MissingPackageManager:    "missing package manager",
	UnsupportedToolchain:     "unsupported toolchain",
	SupportedButNotInstalled: "not installed",
	Installed:                "installed",
	InstallFailed:            "install failed",
	Instantiated:             "instantiated",
}

func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Result is a Code with an optional explanation.
type Result struct {
	Code    Code
	Details string
}

// OK reports whether the extern can be used.
func (r Result) OK() bool {
	return r.Code == Installed || r.Code == Instantiated
}

func (r Result) String() string {
	if r.Details == "" {
		return r.Code.String()
	}
	return r.Code.String() + ": " + r.Details
}

func result(code Code, format string, args ...any) Result {
	return Result{Code: code, Details: fmt.Sprintf(format, args...)}
}

// Command is what a provider is asked to do.
type Command int

const (
	// Status queries the install state without side effects.
	Status Command = iota
	// Install installs the extern unless it is installed already.
	Install
	// Instantiate adds the options dependents need to the extern's target.
	Instantiate
)

func (c Command) String() string {
	switch c {
	case Status:
		return "status"
	case Install:
		return "install"
	case Instantiate:
		return "instantiate"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Toolchain describes the compiler and host an extern is resolved for.
type Toolchain struct {
	// Compiler is "gcc" or "msvc".
	Compiler string
	Host     hosttools.Host
}

// Env is shared by every provider invocation of a run.
type Env struct {
	Folders  *FolderRegistry
	Runner   hosttools.Runner
	NewLines fsutil.NewLines
}

// ProviderArgs carries everything a provider command needs.
type ProviderArgs struct {
	Toolchain Toolchain
	Provider  *repo.ExternProvider
	// Args is the shell quoted key=value list of the provider settings.
	Args string
	Env  *Env
	// Target and Config receive the options added by Instantiate.
	Target *project.Target
	Config project.ConfigMask
}

// NewProviderArgs builds the arguments for p.
func NewProviderArgs(tc Toolchain, p *repo.ExternProvider, env *Env) (*ProviderArgs, error) {
	args, err := BuildArgs(p.Settings)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.Selector(), err)
	}
	return &ProviderArgs{Toolchain: tc, Provider: p, Args: args, Env: env}, nil
}

// BuildArgs formats settings as a shell quoted list of key=value words in
// key order. List values are joined with commas.
func BuildArgs(settings map[string]cty.Value) (string, error) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	words := make([]string, 0, len(keys))
	for _, k := range keys {
		text, err := settingText(settings[k])
		if err != nil {
			return "", fmt.Errorf("setting %s: %w", k, err)
		}
		words = append(words, k+"="+text)
	}
	return shellquote.Join(words...), nil
}

// Values parses Args back into a map.
func (a *ProviderArgs) Values() (map[string]string, error) {
	words, err := shellquote.Split(a.Args)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok {
			return nil, fmt.Errorf("malformed argument %q", w)
		}
		m[k] = v
	}
	return m, nil
}

// Value returns one argument.
func (a *ProviderArgs) Value(key string) string {
	m, err := a.Values()
	if err != nil {
		return ""
	}
	return m[key]
}

// List returns a comma separated argument as a list.
func (a *ProviderArgs) List(key string) []string {
	v := a.Value(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

// FindExistingFolder looks up the extern folder of this provider for
// folderArgs.
func (a *ProviderArgs) FindExistingFolder(folderArgs string) (Result, *Folder) {
	f := a.Env.Folders.Find(a.Provider.Selector(), folderArgs)
	if f == nil {
		return Result{Code: SupportedButNotInstalled}, nil
	}
	if !f.Success {
		return Result{Code: InstallFailed}, f
	}
	return Result{Code: Installed}, f
}

// CreateFolder creates a new extern folder for this provider.
func (a *ProviderArgs) CreateFolder(folderArgs string) (*Folder, error) {
	p := a.Provider
	base := p.Extern.Name + "." + p.Name
	if folderArgs != "" {
		base += "." + folderArgs
	}
	return a.Env.Folders.Create(base, p.Selector(), folderArgs)
}

func (a *ProviderArgs) addOption(o project.Option) {
	if a.Target == nil {
		return
	}
	o.Enabled, o.Public = a.Config, a.Config
	a.Target.AddOption(o)
}

// AddIncludeDir exports dir to dependents.
func (a *ProviderArgs) AddIncludeDir(dir string) {
	a.addOption(project.Option{Type: project.IncludeDir, Key: dir})
}

// AddDefine exports a preprocessor definition.
func (a *ProviderArgs) AddDefine(name, value string) {
	a.addOption(project.Option{Type: project.PreprocessorDef, Key: name, Value: project.Concrete(value)})
}

// AddLinkerInput exports a library, by path or by name.
func (a *ProviderArgs) AddLinkerInput(lib string) {
	a.addOption(project.Option{Type: project.LinkerInput, Key: lib})
}

// AddLinkerFlag exports a raw linker flag.
func (a *ProviderArgs) AddLinkerFlag(flag string) {
	a.addOption(project.Option{Type: project.LinkerSpecific, Key: flag})
}

// AddCompilerFlag exports a raw compiler flag.
func (a *ProviderArgs) AddCompilerFlag(flag string) {
	a.addOption(project.Option{Type: project.CompilerSpecific, Key: flag})
}

// Provider installs and instantiates externs of one kind.
type Provider interface {
	Run(ctx context.Context, cmd Command, args *ProviderArgs) Result
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, cmd Command, args *ProviderArgs) Result

func (f ProviderFunc) Run(ctx context.Context, cmd Command, args *ProviderArgs) Result {
	return f(ctx, cmd, args)
}

// Providers maps provider block names to implementations.
type Providers map[string]Provider

// DefaultProviders returns the built in providers.
func DefaultProviders() Providers {
	return Providers{
		"apt":      ProviderFunc(runApt),
		"homebrew": ProviderFunc(runHomebrew),
		"vcpkg":    ProviderFunc(runVcpkg),
		"prebuilt": ProviderFunc(runPrebuilt),
	}
}

// Run dispatches cmd to the provider named by the provider block.
func (ps Providers) Run(ctx context.Context, cmd Command, args *ProviderArgs) Result {
	p, ok := ps[args.Provider.Name]
	if !ok {
		return result(BadArgs, "no provider implementation named %q", args.Provider.Name)
	}
	return p.Run(ctx, cmd, args)
}

func settingText(v cty.Value) (string, error) {
	if list, ok := script.AsStrings(v); ok && !v.Type().Equals(cty.String) {
		return strings.Join(list, ","), nil
	}
	return script.ToText(v)
}
