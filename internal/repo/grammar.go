// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package repo

import "github.com/goplus/plybuild/internal/script"

// Block kinds of the module script language.
const (
	KindModule script.BlockKind = iota + 1
	KindExecutable
	KindExtern
	KindProvider
	KindConfigList
	KindConfig
	KindDependencies
	KindIncludeDirectories
	KindPreprocessorDefinitions
	KindLinkLibraries
	KindCompileOptions
	KindCompilerFlags
	KindLinkerFlags
	KindConfigOptions
)

var (
	targetBlocks = []string{"module", "executable"}
	// propertyBlocks may also appear in a config block, where they apply
	// to every target in that config.
	propertyBlocks = []string{"module", "executable", "config"}
)

// Grammar returns the custom blocks of module scripts.
func Grammar() *script.Grammar {
	top := []string{script.FileScope}
	g := script.NewGrammar().
		Add("module", script.BlockRule{Kind: KindModule, Name: script.NameRequired, Parents: top}).
		Add("executable", script.BlockRule{Kind: KindExecutable, Name: script.NameRequired, Parents: top}).
		Add("extern", script.BlockRule{Kind: KindExtern, Name: script.NameRequired, Parents: top}).
		Add("provider", script.BlockRule{Kind: KindProvider, Name: script.NameRequired, Parents: []string{"extern"}}).
		Add("config_list", script.BlockRule{Kind: KindConfigList, Parents: top}).
		Add("config", script.BlockRule{Kind: KindConfig, Name: script.NameRequired, Parents: []string{"config_list"}})
	g.Add("dependencies", script.BlockRule{Kind: KindDependencies, Parents: targetBlocks})
	g.Add("config_options", script.BlockRule{Kind: KindConfigOptions, Parents: targetBlocks})
	for kw, kind := range map[string]script.BlockKind{
		"include_directories":      KindIncludeDirectories,
		"preprocessor_definitions": KindPreprocessorDefinitions,
		"link_libraries":           KindLinkLibraries,
		"compile_options":          KindCompileOptions,
		"compiler_flags":           KindCompilerFlags,
		"linker_flags":             KindLinkerFlags,
	} {
		g.Add(kw, script.BlockRule{Kind: kind, Parents: propertyBlocks})
	}
	return g
}
