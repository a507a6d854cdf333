// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package build

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goplus/plybuild/internal/fsutil"
	"github.com/goplus/plybuild/internal/repo"
	"github.com/goplus/plybuild/internal/settings"
	"golang.org/x/mod/sumdb/dirhash"
)

// Build folder layout:
//
//	<folder>/
//	  info.hcl          # folder settings
//	  CMakeLists.txt    # generated
//	  .cache.json       # signature and target names of the last generate
//	  build/            # cmake build tree
const cacheFile = ".cache.json"

// folderEntry is the name the folder settings are hashed under. It cannot
// clash with a script path, which always starts with "repos/".
const folderEntry = "folder-settings"

// buildCache records the last generate of a build folder. Signature is
// empty when a root failed.
type buildCache struct {
	Signature    string    `json:"signature"`
	GenerateTime time.Time `json:"generate_time"`
	// Targets maps qualified target names to generated CMake names.
	Targets map[string]string `json:"targets,omitempty"`
}

func loadCache(folderDir string) (*buildCache, error) {
	data, err := os.ReadFile(filepath.Join(folderDir, cacheFile))
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

func saveCache(folderDir string, cache *buildCache) error {
	if err := os.MkdirAll(folderDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(folderDir, cacheFile), data, 0o644)
}

// Signature hashes every module script and repo info file below reposDir
// together with the settings of bf and the workspace that affect
// generation.
func Signature(reposDir string, bf *settings.BuildFolder, toolchain string, nl fsutil.NewLines) (string, error) {
	var files []string
	paths := make(map[string]string)
	err := filepath.WalkDir(reposDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == reposDir && os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != reposDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !repo.IsScript(d.Name()) && d.Name() != repo.InfoFile {
			return nil
		}
		rel, err := filepath.Rel(reposDir, path)
		if err != nil {
			return err
		}
		name := "repos/" + filepath.ToSlash(rel)
		files = append(files, name)
		paths[name] = path
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}
	files = append(files, folderEntry)
	settingsText := folderSettings(bf, toolchain, nl)
	return dirhash.Hash1(files, func(name string) (io.ReadCloser, error) {
		if name == folderEntry {
			return io.NopCloser(strings.NewReader(settingsText)), nil
		}
		return os.Open(paths[name])
	})
}

func folderSettings(bf *settings.BuildFolder, toolchain string, nl fsutil.NewLines) string {
	var b strings.Builder
	line := func(key string, values ...string) {
		fmt.Fprintf(&b, "%s=%s\n", key, strings.Join(values, ","))
	}
	line("solution", bf.SolutionName)
	line("toolchain", toolchain)
	line("newlines", string(nl))
	if o := bf.CMake; o != nil {
		line("generator", o.Generator)
		line("platform", o.Platform)
		line("toolset", o.Toolset)
		line("toolchain_file", o.ToolchainFile)
		line("build_type", o.BuildType)
	}
	line("roots", bf.RootTargets...)
	line("shared", bf.MakeShared...)
	line("externs", bf.ExternSelectors...)
	return b.String()
}
