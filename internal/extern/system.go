// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extern

import (
	"context"
	"path/filepath"
	"strings"
)

// Providers backed by a system package manager: apt, homebrew and vcpkg.
// They share the settings
//
//	package      = "name";              package to install
//	include_dirs = ["include/foo"];     relative to the package prefix
//	libs         = ["foo"];             libraries to link
//	pkg_config   = "foo";               query pkg-config for flags

func runApt(ctx context.Context, cmd Command, a *ProviderArgs) Result {
	h := a.Toolchain.Host
	if h.OS != "linux" || !h.IsDebianLike() {
		return result(UnsupportedHost, "apt needs a Debian based Linux host")
	}
	if a.Toolchain.Compiler != "gcc" {
		return result(UnsupportedToolchain, "apt packages need a gcc compatible toolchain")
	}
	pkg := a.Value("package")
	if pkg == "" {
		return result(BadArgs, "package is required")
	}
	dpkg, err := a.Env.Runner.LookPath("dpkg-query")
	if err != nil {
		return result(MissingPackageManager, "dpkg-query not found")
	}
	out, err := a.Env.Runner.Output(ctx, dpkg, "-W", "-f=${Status}", pkg)
	installed := err == nil && strings.Contains(out, "install ok installed")

	switch cmd {
	case Status:
		return installedResult(installed)
	case Install:
		if installed {
			return Result{Code: Installed}
		}
		aptGet, err := a.Env.Runner.LookPath("apt-get")
		if err != nil {
			return result(MissingPackageManager, "apt-get not found")
		}
		if _, err := a.Env.Runner.Output(ctx, aptGet, "install", "-y", pkg); err != nil {
			return result(InstallFailed, "%v", err)
		}
		return Result{Code: Installed}
	}
	if !installed {
		return installedResult(false)
	}
	return instantiateSystem(ctx, a, "")
}

func runHomebrew(ctx context.Context, cmd Command, a *ProviderArgs) Result {
	if a.Toolchain.Host.OS == "windows" {
		return result(UnsupportedHost, "homebrew is not available on windows")
	}
	if a.Toolchain.Compiler != "gcc" {
		return result(UnsupportedToolchain, "homebrew packages need a gcc compatible toolchain")
	}
	pkg := a.Value("package")
	if pkg == "" {
		return result(BadArgs, "package is required")
	}
	brew, err := a.Env.Runner.LookPath("brew")
	if err != nil {
		return result(MissingPackageManager, "brew not found")
	}
	out, err := a.Env.Runner.Output(ctx, brew, "list", "--versions", pkg)
	installed := err == nil && strings.TrimSpace(out) != ""

	switch cmd {
	case Status:
		return installedResult(installed)
	case Install:
		if installed {
			return Result{Code: Installed}
		}
		if _, err := a.Env.Runner.Output(ctx, brew, "install", pkg); err != nil {
			return result(InstallFailed, "%v", err)
		}
		return Result{Code: Installed}
	}
	if !installed {
		return installedResult(false)
	}
	prefix, err := a.Env.Runner.Output(ctx, brew, "--prefix", pkg)
	if err != nil {
		return result(Unknown, "brew --prefix %s: %v", pkg, err)
	}
	prefix = strings.TrimSpace(prefix)
	a.AddIncludeDir(filepath.Join(prefix, "include"))
	a.AddLinkerFlag("-L" + filepath.Join(prefix, "lib"))
	return instantiateSystem(ctx, a, prefix)
}

func runVcpkg(ctx context.Context, cmd Command, a *ProviderArgs) Result {
	h := a.Toolchain.Host
	triplet := vcpkgTriplet(h.OS, h.Arch)
	if triplet == "" {
		return result(UnsupportedHost, "no vcpkg triplet for %s/%s", h.OS, h.Arch)
	}
	if (h.OS == "windows") != (a.Toolchain.Compiler == "msvc") {
		return result(UnsupportedToolchain, "triplet %s does not match toolchain %s", triplet, a.Toolchain.Compiler)
	}
	pkg := a.Value("package")
	if pkg == "" {
		return result(BadArgs, "package is required")
	}
	vcpkg, err := a.Env.Runner.LookPath("vcpkg")
	if err != nil {
		return result(MissingPackageManager, "vcpkg not found")
	}
	spec := pkg + ":" + triplet
	out, err := a.Env.Runner.Output(ctx, vcpkg, "list", spec)
	installed := err == nil && strings.Contains(out, spec)

	switch cmd {
	case Status:
		return installedResult(installed)
	case Install:
		if installed {
			return Result{Code: Installed}
		}
		if _, err := a.Env.Runner.Output(ctx, vcpkg, "install", spec); err != nil {
			return result(InstallFailed, "%v", err)
		}
		return Result{Code: Installed}
	}
	if !installed {
		return installedResult(false)
	}
	root := a.Value("root")
	if root == "" {
		root = filepath.Dir(vcpkg)
	}
	prefix := filepath.Join(root, "installed", triplet)
	a.AddIncludeDir(filepath.Join(prefix, "include"))
	for _, lib := range a.List("libs") {
		a.AddLinkerInput(filepath.Join(prefix, "lib", staticLibName(h.OS, lib)))
	}
	return Result{Code: Instantiated}
}

func vcpkgTriplet(goos, goarch string) string {
	arch := map[string]string{"amd64": "x64", "386": "x86", "arm64": "arm64", "arm": "arm"}[goarch]
	sys := map[string]string{"windows": "windows", "darwin": "osx", "linux": "linux", "freebsd": "freebsd"}[goos]
	if arch == "" || sys == "" {
		return ""
	}
	return arch + "-" + sys
}

func staticLibName(goos, lib string) string {
	if goos == "windows" {
		return lib + ".lib"
	}
	return "lib" + lib + ".a"
}

func installedResult(installed bool) Result {
	if installed {
		return Result{Code: Installed}
	}
	return Result{Code: SupportedButNotInstalled}
}

// instantiateSystem exports the include dirs, libraries and pkg-config
// flags named by the provider settings.
func instantiateSystem(ctx context.Context, a *ProviderArgs, prefix string) Result {
	for _, dir := range a.List("include_dirs") {
		if prefix != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(prefix, dir)
		}
		a.AddIncludeDir(dir)
	}
	for _, lib := range a.List("libs") {
		a.AddLinkerInput(lib)
	}
	if pc := a.Value("pkg_config"); pc != "" {
		if err := applyPkgConfig(ctx, a, pc); err != nil {
			return result(Unknown, "%v", err)
		}
	}
	return Result{Code: Instantiated}
}
