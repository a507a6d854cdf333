// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hosttools

import (
	"os"
	"runtime"
	"strings"
)

// Host describes the machine the build runs on.
type Host struct {
	OS     string
	Arch   string
	Kernel string
	// Distro is the ID from /etc/os-release on Linux.
	Distro string
}

// DetectHost inspects the running machine.
func DetectHost() Host {
	h := Host{OS: runtime.GOOS, Arch: runtime.GOARCH, Kernel: kernelRelease()}
	if h.OS == "linux" {
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			h.Distro = osReleaseID(string(data))
		}
	}
	return h
}

// osReleaseID returns the ID field of an os-release file.
func osReleaseID(data string) string {
	for _, line := range strings.Split(data, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "ID="); ok {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}

// IsDebianLike reports whether apt is the native package manager.
func (h Host) IsDebianLike() bool {
	switch h.Distro {
	case "debian", "ubuntu", "linuxmint", "pop", "raspbian":
		return true
	}
	return false
}

// Toolchain returns the default compiler family of the host.
func (h Host) Toolchain() string {
	if h.OS == "windows" {
		return "msvc"
	}
	return "gcc"
}
