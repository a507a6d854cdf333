// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package extern

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/goplus/plybuild/internal/ctxlog"
	"github.com/goplus/plybuild/internal/hosttools"
)

// The prebuilt provider downloads an archive into an extern folder with
// cmake and unpacks it there. Settings:
//
//	url          = ["https://..."];   mirrors, tried in order
//	version      = "1.3";             distinguishes extern folders
//	archive      = "zlib.tar.gz";     defaults to the last URL path element
//	root         = "zlib-1.3";        directory inside the archive
//	include_dirs = ["include"];       relative to root
//	libs         = ["lib/libz.a"];    relative to root
func runPrebuilt(ctx context.Context, cmd Command, a *ProviderArgs) Result {
	urls := a.List("url")
	if len(urls) == 0 {
		return result(BadArgs, "url is required")
	}
	version := a.Value("version")
	res, folder := a.FindExistingFolder(version)

	switch cmd {
	case Status:
		return res
	case Install:
		if res.Code == Installed {
			return res
		}
		return installPrebuilt(ctx, a, folder, version, urls)
	}
	if res.Code != Installed {
		return res
	}
	root := filepath.Join(folder.Dir, filepath.FromSlash(a.Value("root")))
	for _, dir := range a.List("include_dirs") {
		a.AddIncludeDir(filepath.Join(root, filepath.FromSlash(dir)))
	}
	for _, lib := range a.List("libs") {
		a.AddLinkerInput(filepath.Join(root, filepath.FromSlash(lib)))
	}
	return Result{Code: Instantiated}
}

func installPrebuilt(ctx context.Context, a *ProviderArgs, folder *Folder, version string, urls []string) Result {
	cmake, err := hosttools.Require(ctx, a.Env.Runner, hosttools.CMake)
	if err != nil {
		return result(MissingPackageManager, "%v", err)
	}
	archive := a.Value("archive")
	if archive == "" {
		archive = archiveName(urls[len(urls)-1])
	}
	if archive == "" {
		return result(BadArgs, "cannot derive an archive name from %s", urls[len(urls)-1])
	}
	if folder == nil {
		if folder, err = a.CreateFolder(version); err != nil {
			return result(InstallFailed, "%v", err)
		}
	}

	logger := ctxlog.FromContext(ctx)
	local := filepath.Join(folder.Dir, archive)
	var downloadErr error
	for _, u := range urls {
		logger.Info("downloading", "url", u, "to", local)
		if downloadErr = download(ctx, a.Env.Runner, cmake, u, local); downloadErr == nil {
			break
		}
		logger.Warn("download failed", "url", u, "error", downloadErr)
	}
	if downloadErr == nil {
		downloadErr = extract(ctx, a.Env.Runner, cmake, folder.Dir, archive)
	}

	folder.Success = downloadErr == nil
	if _, err := folder.Save(a.Env.NewLines); err != nil {
		return result(InstallFailed, "%v", err)
	}
	if downloadErr != nil {
		return result(InstallFailed, "%v", downloadErr)
	}
	return Result{Code: Installed}
}

// download fetches src into dst by running a cmake script.
func download(ctx context.Context, r hosttools.Runner, cmake, src, dst string) error {
	script := fmt.Sprintf(`file(DOWNLOAD "%s" "%s" STATUS st)
list(GET st 0 code)
if(NOT code EQUAL 0)
  message(FATAL_ERROR "${st}")
endif()
`, cmakeString(src), cmakeString(filepath.ToSlash(dst)))
	scriptPath := dst + ".cmake"
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return err
	}
	defer os.Remove(scriptPath)
	_, err := r.Output(ctx, cmake, "-P", scriptPath)
	return err
}

func extract(ctx context.Context, r hosttools.Runner, cmake, dir, archive string) error {
	_, err := r.Output(ctx, cmake, "-E", "chdir", dir, cmake, "-E", "tar", "xf", archive)
	if err != nil {
		return fmt.Errorf("extract %s: %w", archive, err)
	}
	return nil
}

func archiveName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func cmakeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`)
	return r.Replace(s)
}
