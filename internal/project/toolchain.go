// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package project

import (
	"fmt"
	"strings"
)

// CompilerOptions are the flags a Toolchain produced for one
// configuration.
type CompilerOptions struct {
	Compile []string
	Link    []string
}

// Toolchain translates generic options to compiler and linker flags.
type Toolchain interface {
	Name() string
	// Translate appends the flags for opt and reports whether the option
	// is known to the toolchain.
	Translate(copts *CompilerOptions, opt *Option) bool
}

type flags struct {
	compile []string
	link    []string
}

// flagTable maps option key, then option value, to flags.
type flagTable map[string]map[string]flags

type tableToolchain struct {
	name  string
	table flagTable
	// prefix is prepended to the value of cpp_standard.
	stdPrefix string
}

func (tc *tableToolchain) Name() string {
	return tc.name
}

func (tc *tableToolchain) Translate(copts *CompilerOptions, opt *Option) bool {
	if opt.Type != Generic || opt.Value.IsErased() {
		return false
	}
	value := opt.Value.Text()
	if opt.Key == "cpp_standard" {
		if value != "" {
			copts.Compile = append(copts.Compile, tc.stdPrefix+value)
		}
		return true
	}
	values, ok := tc.table[opt.Key]
	if !ok {
		return false
	}
	f, ok := values[value]
	if !ok {
		return false
	}
	copts.Compile = append(copts.Compile, f.compile...)
	copts.Link = append(copts.Link, f.link...)
	return true
}

var gccFlags = flagTable{
	"optimization": {
		"none":  {compile: []string{"-O0"}},
		"size":  {compile: []string{"-Os"}},
		"speed": {compile: []string{"-O2"}},
		"full":  {compile: []string{"-O3"}},
	},
	"debug_info": {
		"true":  {compile: []string{"-g"}},
		"false": {},
	},
	"warnings": {
		"none":    {compile: []string{"-w"}},
		"default": {},
		"all":     {compile: []string{"-Wall"}},
		"extra":   {compile: []string{"-Wall", "-Wextra"}},
		"error":   {compile: []string{"-Wall", "-Werror"}},
	},
	"exceptions": {
		"true":  {},
		"false": {compile: []string{"-fno-exceptions"}},
	},
	"rtti": {
		"true":  {},
		"false": {compile: []string{"-fno-rtti"}},
	},
	"pic": {
		"true":  {compile: []string{"-fPIC"}},
		"false": {},
	},
}

var msvcFlags = flagTable{
	"optimization": {
		"none":  {compile: []string{"/Od"}},
		"size":  {compile: []string{"/O1"}},
		"speed": {compile: []string{"/O2"}},
		"full":  {compile: []string{"/Ox"}},
	},
	"debug_info": {
		"true":  {compile: []string{"/Zi"}, link: []string{"/DEBUG"}},
		"false": {},
	},
	"warnings": {
		"none":    {compile: []string{"/W0"}},
		"default": {compile: []string{"/W3"}},
		"all":     {compile: []string{"/W4"}},
		"extra":   {compile: []string{"/W4"}},
		"error":   {compile: []string{"/W4", "/WX"}},
	},
	"exceptions": {
		"true":  {compile: []string{"/EHsc"}},
		"false": {},
	},
	"rtti": {
		"true":  {},
		"false": {compile: []string{"/GR-"}},
	},
	"pic": {
		"true":  {},
		"false": {},
	},
}

// GCC returns the toolchain for gcc and clang style drivers.
func GCC() Toolchain {
	return &tableToolchain{name: "gcc", table: gccFlags, stdPrefix: "-std="}
}

// MSVC returns the toolchain for the Microsoft compiler.
func MSVC() Toolchain {
	return &tableToolchain{name: "msvc", table: msvcFlags, stdPrefix: "/std:"}
}

// ToolchainByName returns gcc, clang or msvc.
func ToolchainByName(name string) (Toolchain, error) {
	switch strings.ToLower(name) {
	case "gcc", "clang":
		return GCC(), nil
	case "msvc":
		return MSVC(), nil
	}
	return nil, fmt.Errorf("unknown toolchain %q", name)
}

// ToolchainForGenerator guesses the toolchain a CMake generator uses.
func ToolchainForGenerator(generator string) Toolchain {
	if strings.HasPrefix(generator, "Visual Studio") {
		return MSVC()
	}
	return GCC()
}

// Translate collects the flags of every option enabled in configuration i.
// Generic options go through tc; compiler and linker flags are passed
// through unchanged.
func Translate(tc Toolchain, options []Option, i int) CompilerOptions {
	var copts CompilerOptions
	for _, o := range options {
		if !o.Enabled.Has(i) || o.Value.IsErased() {
			continue
		}
		switch o.Type {
		case Generic:
			tc.Translate(&copts, &o)
		case CompilerSpecific:
			copts.Compile = append(copts.Compile, o.Key)
		case LinkerSpecific:
			copts.Link = append(copts.Link, o.Key)
		}
	}
	return copts
}
