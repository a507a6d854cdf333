package hosttools

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeRunner struct {
	mu      sync.Mutex
	paths   map[string]string
	outputs map[string]string
	calls   []string
}

var _ Runner = (*fakeRunner)(nil)

func (f *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeRunner) Output(_ context.Context, path string, args ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()
	if out, ok := f.outputs[path]; ok {
		return out, nil
	}
	return "", errors.New("exit status 1")
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		out  string
		want string
	}{
		{"cmake version 3.28.1\n\nCMake suite maintained and supported by Kitware", "3.28.1"},
		{"1.11.1.git.kitware.jobserver-1\n", "1.11.1"},
		{"git version 2.43.0", "2.43.0"},
		{"Homebrew 4.2.5", "4.2.5"},
		{"vcpkg package management program version 2024-01-11-710a3116", "2024-01-11-710a3116"},
		{"no digits here", ""},
	}
	for _, tt := range tests {
		if got := ParseVersion(tt.out); got != tt.want {
			t.Errorf("ParseVersion(%q) = %q, want %q", tt.out, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"3.12", "3.12.0", 0},
		{"3.28.1", "3.12", 1},
		{"3.9.6", "3.12", -1},
		{"v1.2.3", "1.2.3", 0},
		{"2024-01-11-aaa", "2023-12-01-bbb", 1},
		{"2024-01-11", "2024-01-11", 0},
		{"1.0~rc1", "1.0", -1},
		{"1.0a", "1.0", 1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDetectAll(t *testing.T) {
	r := &fakeRunner{
		paths: map[string]string{
			"cmake":   "/usr/bin/cmake",
			"pkgconf": "/usr/bin/pkgconf",
			"ninja":   "/usr/bin/ninja",
		},
		outputs: map[string]string{
			"/usr/bin/cmake":   "cmake version 3.10.2\n",
			"/usr/bin/pkgconf": "1.8.1\n",
		},
	}
	got := DetectAll(context.Background(), r, []Tool{CMake, PkgConfig, Ninja, Conan})

	names := make([]string, len(got))
	for i, st := range got {
		names[i] = st.Tool.Name
	}
	if diff := cmp.Diff([]string{"cmake", "pkg-config", "ninja", "conan"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	if got[0].Version != "3.10.2" || !errors.Is(got[0].Err, ErrTooOld) {
		t.Errorf("cmake = %+v, want too old 3.10.2", got[0])
	}
	if !got[1].Found() || got[1].Path != "/usr/bin/pkgconf" || got[1].Version != "1.8.1" {
		t.Errorf("pkg-config = %+v", got[1])
	}
	if got[2].Found() || got[2].Path != "/usr/bin/ninja" {
		t.Errorf("ninja = %+v, want found path with a failing version query", got[2])
	}
	if !errors.Is(got[3].Err, exec.ErrNotFound) {
		t.Errorf("conan error = %v, want ErrNotFound", got[3].Err)
	}
	if len(r.calls) != 3 {
		t.Errorf("ran %d version queries, want 3", len(r.calls))
	}
}

func TestRequire(t *testing.T) {
	r := &fakeRunner{
		paths:   map[string]string{"cmake": "/opt/cmake/bin/cmake"},
		outputs: map[string]string{"/opt/cmake/bin/cmake": "cmake version 3.29.0"},
	}
	path, err := Require(context.Background(), r, CMake)
	if err != nil || path != "/opt/cmake/bin/cmake" {
		t.Errorf("Require = %q, %v", path, err)
	}
}

func TestOSReleaseID(t *testing.T) {
	data := "NAME=\"Ubuntu\"\nVERSION_ID=\"22.04\"\nID=ubuntu\nID_LIKE=debian\n"
	if got := osReleaseID(data); got != "ubuntu" {
		t.Errorf("osReleaseID = %q", got)
	}
	if !(Host{OS: "linux", Distro: "ubuntu"}).IsDebianLike() {
		t.Error("ubuntu is debian like")
	}
	if (Host{OS: "linux", Distro: "fedora"}).IsDebianLike() {
		t.Error("fedora is not debian like")
	}
	if got := (Host{OS: "windows"}).Toolchain(); got != "msvc" {
		t.Errorf("windows toolchain = %q", got)
	}
}
