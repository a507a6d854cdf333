// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extern

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goplus/plybuild/internal/fsutil"
	"github.com/goplus/plybuild/internal/settings"
)

// FolderInfoFile describes the contents of an extern folder.
const FolderInfoFile = "info.hcl"

// Folder is a directory under data/extern holding an installed extern.
type Folder struct {
	Dir string

	// ProviderName is the selector of the provider that made the folder.
	ProviderName string `hcl:"provider"`
	// FolderArgs distinguishes several installs of one provider, such as
	// two versions of an archive.
	FolderArgs string `hcl:"args,optional"`
	Success    bool   `hcl:"success,optional"`
}

// Name returns the folder name.
func (f *Folder) Name() string {
	return filepath.Base(f.Dir)
}

// Save writes info.hcl if it changed.
func (f *Folder) Save(nl fsutil.NewLines) (fsutil.Result, error) {
	return settings.SaveFile(filepath.Join(f.Dir, FolderInfoFile), f, nl)
}

// FolderRegistry holds every extern folder of a workspace.
type FolderRegistry struct {
	Dir     string
	Folders []*Folder
}

// LoadFolders reads the info.hcl of every folder below dir. Folders
// without a readable info.hcl are ignored.
func LoadFolders(dir string) (*FolderRegistry, error) {
	reg := &FolderRegistry{Dir: dir}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list extern folders: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(path, FolderInfoFile)); err != nil {
			continue
		}
		f := &Folder{Dir: path}
		if err := settings.LoadFile(filepath.Join(path, FolderInfoFile), f); err != nil {
			continue
		}
		reg.Folders = append(reg.Folders, f)
	}
	return reg, nil
}

// Find returns the folder made by providerName for folderArgs, or nil.
func (r *FolderRegistry) Find(providerName, folderArgs string) *Folder {
	for _, f := range r.Folders {
		if f.ProviderName == providerName && f.FolderArgs == folderArgs {
			return f
		}
	}
	return nil
}

// Create makes a new folder named after base. When base is taken, a
// numeric suffix is added: base.001, base.002 and so on.
func (r *FolderRegistry) Create(base, providerName, folderArgs string) (*Folder, error) {
	path := uniquePath(r.Dir, base)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create extern folder: %w", err)
	}
	f := &Folder{Dir: path, ProviderName: providerName, FolderArgs: folderArgs}
	r.Folders = append(r.Folders, f)
	return f, nil
}

func uniquePath(parent, prefix string) string {
	path := filepath.Join(parent, prefix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path
		}
		path = filepath.Join(parent, fmt.Sprintf("%s.%03d", prefix, n))
	}
}
