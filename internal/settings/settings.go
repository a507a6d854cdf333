// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package settings loads and saves the persisted workspace state:
// workspace-settings.hcl at the workspace root and the info.hcl file of
// every build folder.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/goplus/plybuild/internal/fsutil"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

const (
	// WorkspaceFile is the name of the workspace settings file.
	WorkspaceFile = "workspace-settings.hcl"
	// InfoFile is the name of the settings file inside a build folder.
	InfoFile = "info.hcl"
)

// ErrNoBuildFolder is returned when no current build folder is set.
var ErrNoBuildFolder = errors.New("current build folder not set")

// CMakeOptions selects the CMake generator.
type CMakeOptions struct {
	Generator     string `hcl:"generator,optional"`
	Platform      string `hcl:"platform,optional"`
	Toolset       string `hcl:"toolset,optional"`
	ToolchainFile string `hcl:"toolchain_file,optional"`
	// BuildType is passed to single config generators.
	BuildType string `hcl:"build_type,optional"`
}

// IsMultiConfig reports whether the generator builds several
// configurations from one build tree.
func (o *CMakeOptions) IsMultiConfig() bool {
	return o.Generator == "Xcode" || o.Generator == "Ninja Multi-Config" ||
		strings.HasPrefix(o.Generator, "Visual Studio")
}

// Workspace holds workspace-settings.hcl.
type Workspace struct {
	// Dir is the workspace root. It is not persisted.
	Dir string

	CurrentBuildFolder string        `hcl:"current_build_folder,optional"`
	DefaultConfig      string        `hcl:"default_config,optional"`
	NewLines           string        `hcl:"newlines,optional"`
	Toolchain          string        `hcl:"toolchain,optional"`
	CMake              *CMakeOptions `hcl:"cmake,block"`
}

// DefaultCMakeOptions are used when the workspace names no generator.
func DefaultCMakeOptions() CMakeOptions {
	return CMakeOptions{Generator: "Unix Makefiles", BuildType: "Debug"}
}

// LoadWorkspace reads the workspace settings in dir. A missing file
// yields default settings.
func LoadWorkspace(dir string) (*Workspace, error) {
	ws := &Workspace{Dir: dir}
	if err := LoadFile(filepath.Join(dir, WorkspaceFile), ws); err != nil {
		return nil, err
	}
	if ws.CMake == nil {
		def := DefaultCMakeOptions()
		ws.CMake = &def
	}
	return ws, nil
}

// Save writes the workspace settings if they changed.
func (ws *Workspace) Save() (fsutil.Result, error) {
	return SaveFile(filepath.Join(ws.Dir, WorkspaceFile), ws, fsutil.NewLines(ws.NewLines))
}

// LineEndings returns the newline convention for generated files.
func (ws *Workspace) LineEndings() fsutil.NewLines {
	if ws.NewLines == string(fsutil.CRLF) {
		return fsutil.CRLF
	}
	return fsutil.LF
}

// BuildFoldersDir returns the directory holding every build folder.
func (ws *Workspace) BuildFoldersDir() string {
	return filepath.Join(ws.Dir, "data", "build")
}

// ReposDir returns the directory scanned for module scripts.
func (ws *Workspace) ReposDir() string {
	return filepath.Join(ws.Dir, "repos")
}

// ExternsDir returns the directory holding extern folders.
func (ws *Workspace) ExternsDir() string {
	return filepath.Join(ws.Dir, "data", "extern")
}

// BuildFolder holds the info.hcl of a build folder.
type BuildFolder struct {
	// Dir is the build folder path. It is not persisted.
	Dir string

	SolutionName    string        `hcl:"solution_name,optional"`
	CMake           *CMakeOptions `hcl:"cmake,block"`
	RootTargets     []string      `hcl:"root_targets,optional"`
	MakeShared      []string      `hcl:"make_shared,optional"`
	ExternSelectors []string      `hcl:"extern_selectors,optional"`
	ActiveConfig    string        `hcl:"active_config,optional"`
	ActiveTarget    string        `hcl:"active_target,optional"`
}

// Name returns the folder name.
func (bf *BuildFolder) Name() string {
	return filepath.Base(bf.Dir)
}

// LoadBuildFolder reads dir/info.hcl. The file must exist.
func LoadBuildFolder(dir string) (*BuildFolder, error) {
	path := filepath.Join(dir, InfoFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("build folder %s: %w", filepath.Base(dir), err)
	}
	bf := &BuildFolder{Dir: dir}
	if err := LoadFile(path, bf); err != nil {
		return nil, err
	}
	return bf, nil
}

// Save writes info.hcl if it changed.
func (bf *BuildFolder) Save(nl fsutil.NewLines) (fsutil.Result, error) {
	return SaveFile(filepath.Join(bf.Dir, InfoFile), bf, nl)
}

// AddRootTarget adds name to the root targets and reports whether it was
// missing. The list stays sorted.
func (bf *BuildFolder) AddRootTarget(name string, shared bool) bool {
	added := addSorted(&bf.RootTargets, name)
	if shared {
		addSorted(&bf.MakeShared, name)
	}
	return added
}

// RemoveRootTarget removes name from the root and shared targets.
func (bf *BuildFolder) RemoveRootTarget(name string) bool {
	i := slices.Index(bf.RootTargets, name)
	if i < 0 {
		return false
	}
	bf.RootTargets = slices.Delete(bf.RootTargets, i, i+1)
	if j := slices.Index(bf.MakeShared, name); j >= 0 {
		bf.MakeShared = slices.Delete(bf.MakeShared, j, j+1)
	}
	if bf.ActiveTarget == name {
		bf.ActiveTarget = ""
	}
	return true
}

// SelectExtern records selector as the provider for its extern, replacing
// an earlier selection of a provider for the same extern. selector has
// the form repo.extern.provider.
func (bf *BuildFolder) SelectExtern(selector string) {
	ext := externOf(selector)
	bf.ExternSelectors = slices.DeleteFunc(bf.ExternSelectors, func(s string) bool {
		return externOf(s) == ext
	})
	addSorted(&bf.ExternSelectors, selector)
}

func externOf(selector string) string {
	for i := len(selector) - 1; i >= 0; i-- {
		if selector[i] == '.' {
			return selector[:i]
		}
	}
	return selector
}

func addSorted(list *[]string, s string) bool {
	i, found := slices.BinarySearch(*list, s)
	if found {
		return false
	}
	*list = slices.Insert(*list, i, s)
	return true
}

// CreateBuildFolder creates data/build/<name> with default settings
// taken from the workspace.
func (ws *Workspace) CreateBuildFolder(name string) (*BuildFolder, error) {
	dir := filepath.Join(ws.BuildFoldersDir(), name)
	if _, err := os.Stat(filepath.Join(dir, InfoFile)); err == nil {
		return nil, fmt.Errorf("build folder %q already exists", name)
	}
	cmake := *ws.CMake
	bf := &BuildFolder{
		Dir:          dir,
		SolutionName: name,
		CMake:        &cmake,
		ActiveConfig: ws.DefaultConfig,
	}
	if _, err := bf.Save(ws.LineEndings()); err != nil {
		return nil, err
	}
	return bf, nil
}

// BuildFolderNames lists the build folders of the workspace.
func (ws *Workspace) BuildFolderNames() ([]string, error) {
	entries, err := os.ReadDir(ws.BuildFoldersDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(ws.BuildFoldersDir(), e.Name(), InfoFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadBuildFolder loads the named build folder.
func (ws *Workspace) LoadBuildFolder(name string) (*BuildFolder, error) {
	return LoadBuildFolder(filepath.Join(ws.BuildFoldersDir(), name))
}

// CurrentFolder loads the current build folder.
func (ws *Workspace) CurrentFolder() (*BuildFolder, error) {
	if ws.CurrentBuildFolder == "" {
		return nil, ErrNoBuildFolder
	}
	return ws.LoadBuildFolder(ws.CurrentBuildFolder)
}

// DeleteBuildFolder removes the named build folder and clears the current
// folder if it was the one removed.
func (ws *Workspace) DeleteBuildFolder(name string) error {
	dir := filepath.Join(ws.BuildFoldersDir(), name)
	if _, err := os.Stat(filepath.Join(dir, InfoFile)); err != nil {
		return fmt.Errorf("build folder %q: %w", name, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if ws.CurrentBuildFolder == name {
		ws.CurrentBuildFolder = ""
		if _, err := ws.Save(); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile decodes the HCL file at path into v. A missing file leaves v
// unchanged.
func LoadFile(path string, v any) error {
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := hclsimple.Decode(path, src, nil, v); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// SaveFile encodes v, a struct with hcl tags, and writes it to path
// unless the file already holds the same text.
func SaveFile(path string, v any, nl fsutil.NewLines) (fsutil.Result, error) {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(normalized(v), f.Body())
	return fsutil.SaveIfDifferent(path, nl.Convert(f.Bytes()))
}

// normalized replaces nil lists with empty ones, which gohcl would
// otherwise encode as null.
func normalized(v any) any {
	bf, ok := v.(*BuildFolder)
	if !ok {
		return v
	}
	c := *bf
	for _, l := range []*[]string{&c.RootTargets, &c.MakeShared, &c.ExternSelectors} {
		if *l == nil {
			*l = []string{}
		}
	}
	return &c
}
