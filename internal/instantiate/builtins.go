// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package instantiate

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goplus/plybuild/internal/project"
	"github.com/goplus/plybuild/internal/script"
	"github.com/zclconf/go-cty/cty"
)

const (
	sourcePattern    = "*.{c,cc,cpp,cxx,h,hh,hpp,hxx,inl}"
	recursivePattern = "**/" + sourcePattern
)

var compiledExts = map[string]bool{".c": true, ".cc": true, ".cpp": true, ".cxx": true}

func (e *Engine) installBuiltins() {
	in := e.reg.Interp
	tc := e.opts.Toolchain
	in.SetBuiltin("host_os", cty.StringVal(tc.Host.OS))
	in.SetBuiltin("host_arch", cty.StringVal(tc.Host.Arch))
	in.SetBuiltin("toolchain", cty.StringVal(tc.Compiler))
	in.SetBuiltin("build_folder", cty.StringVal(e.opts.BuildFolder))
	in.SetBuiltin("join_path", script.CallableVal(script.HostFunc(joinPath)))
	in.SetBuiltin("script_dir", script.CallableVal(script.HostFunc(e.scriptDir)))
	in.SetBuiltin("exists", script.CallableVal(script.HostFunc(e.exists)))
	in.SetBuiltin("source_files", script.CallableVal(script.HostFunc(e.sourceFiles)))
	in.SetBuiltin("link_objects_directly", script.CallableVal(script.HostFunc(e.linkObjectsDirectly)))
}

func joinPath(_ *script.Frame, args []cty.Value) (cty.Value, error) {
	if len(args) == 0 {
		return script.None, errors.New("join_path expects at least 1 argument")
	}
	parts := make([]string, len(args))
	for i, a := range args {
		s, ok := script.AsString(a)
		if !ok {
			return script.None, fmt.Errorf("join_path: argument %d is %s, not a string", i+1, script.TypeName(a))
		}
		parts[i] = s
	}
	return cty.StringVal(filepath.Join(parts...)), nil
}

func (e *Engine) scriptDir(_ *script.Frame, args []cty.Value) (cty.Value, error) {
	if len(args) != 0 {
		return script.None, errors.New("script_dir expects no arguments")
	}
	sc := e.top()
	if sc == nil {
		return script.None, errors.New("script_dir is only available while instantiating")
	}
	return cty.StringVal(sc.dir), nil
}

func (e *Engine) exists(_ *script.Frame, args []cty.Value) (cty.Value, error) {
	if len(args) != 1 {
		return script.None, errors.New("exists expects 1 argument")
	}
	p, ok := script.AsString(args[0])
	if !ok {
		return script.None, fmt.Errorf("exists expects a string, got %s", script.TypeName(args[0]))
	}
	if sc := e.top(); sc != nil && !filepath.IsAbs(p) {
		p = filepath.Join(sc.dir, p)
	}
	_, err := os.Stat(p)
	return cty.BoolVal(err == nil), nil
}

// targetScope returns the module whose body is running.
func (e *Engine) targetScope(fn string) (*scope, error) {
	sc := e.top()
	if sc == nil || sc.target == nil || sc.target.Extern {
		return nil, fmt.Errorf("%s can only be called inside a module", fn)
	}
	return sc, nil
}

// sourceFiles adds the C and C++ files below a directory to the current
// module: source_files(dir[, recursive]). recursive defaults to true.
func (e *Engine) sourceFiles(_ *script.Frame, args []cty.Value) (cty.Value, error) {
	sc, err := e.targetScope("source_files")
	if err != nil {
		return script.None, err
	}
	if len(args) < 1 || len(args) > 2 {
		return script.None, fmt.Errorf("source_files expects 1 or 2 arguments, got %d", len(args))
	}
	dir, ok := script.AsString(args[0])
	if !ok {
		return script.None, fmt.Errorf("source_files expects a directory, got %s", script.TypeName(args[0]))
	}
	recursive := true
	if len(args) == 2 {
		if recursive, ok = script.AsBool(args[1]); !ok {
			return script.None, fmt.Errorf("source_files expects a bool, got %s", script.TypeName(args[1]))
		}
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(sc.dir, dir)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return script.None, fmt.Errorf("source directory %s does not exist", dir)
	}

	pattern := sourcePattern
	if recursive {
		pattern = recursivePattern
	}
	files, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return script.None, err
	}
	sort.Strings(files)
	for _, rel := range files {
		sc.target.AddSourceFile(dir, rel, e.bit)
		if compiledExts[path.Ext(rel)] {
			sc.target.HasBuildStep |= e.bit
		}
	}
	return script.None, nil
}

func (e *Engine) linkObjectsDirectly(_ *script.Frame, args []cty.Value) (cty.Value, error) {
	sc, err := e.targetScope("link_objects_directly")
	if err != nil {
		return script.None, err
	}
	if len(args) != 0 {
		return script.None, errors.New("link_objects_directly expects no arguments")
	}
	if sc.target.Type == project.Executable {
		return script.None, errors.New("link_objects_directly cannot be used on an executable")
	}
	sc.target.Type = project.ObjectLibrary
	return script.None, nil
}
