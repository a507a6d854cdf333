package cmake

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/goplus/plybuild/internal/settings"
)

type call struct {
	bin  string
	args []string
	env  []string
}

type recordRunner struct {
	calls []call
	err   error
}

var _ Runner = (*recordRunner)(nil)

func (r *recordRunner) Run(_ context.Context, bin string, args, env []string) error {
	r.calls = append(r.calls, call{bin, args, env})
	return r.err
}

func TestConfigureArgs(t *testing.T) {
	c := New("/ws/data/build/app", "/ws/data/build/app/build").
		Generator("Ninja").
		Toolchain("/tc.cmake").
		BuildType("Release").
		Define("FOO", "BAR").
		DefineBool("ENABLE", true).
		DefineBool("DISABLE", false)
	want := []string{
		"-S", "/ws/data/build/app", "-B", "/ws/data/build/app/build",
		"-G", "Ninja",
		"-DCMAKE_BUILD_TYPE:STRING=Release",
		"-DCMAKE_TOOLCHAIN_FILE:FILEPATH=/tc.cmake",
		"-DDISABLE:BOOL=OFF",
		"-DENABLE:BOOL=ON",
		"-DFOO:STRING=BAR",
		"--fresh",
	}
	if diff := cmp.Diff(want, c.ConfigureArgs("--fresh")); diff != "" {
		t.Errorf("ConfigureArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestFromOptions(t *testing.T) {
	tests := []struct {
		name string
		opts *settings.CMakeOptions
		want []string
	}{
		{
			name: "nil",
			want: []string{"-S", "src", "-B", "out"},
		},
		{
			name: "single config",
			opts: &settings.CMakeOptions{Generator: "Unix Makefiles", BuildType: "Debug"},
			want: []string{"-S", "src", "-B", "out", "-G", "Unix Makefiles", "-DCMAKE_BUILD_TYPE:STRING=Debug"},
		},
		{
			name: "multi config ignores build type",
			opts: &settings.CMakeOptions{Generator: "Visual Studio 17 2022", Platform: "x64", Toolset: "v143", BuildType: "Debug"},
			want: []string{"-S", "src", "-B", "out", "-G", "Visual Studio 17 2022", "-A", "x64", "-T", "v143"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromOptions("src", "out", tt.opts).ConfigureArgs()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildTarget(t *testing.T) {
	r := &recordRunner{}
	multi := New("src", "out").Runner(r).Bin("/usr/bin/cmake")
	if err := multi.BuildTarget(context.Background(), "app", "Release"); err != nil {
		t.Fatal(err)
	}
	single := New("src", "out").Runner(r).BuildType("Debug")
	if err := single.BuildTarget(context.Background(), "", "Release"); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("got %d calls", len(r.calls))
	}
	if r.calls[0].bin != "/usr/bin/cmake" {
		t.Errorf("bin = %q", r.calls[0].bin)
	}
	if diff := cmp.Diff([]string{"--build", "out", "--target", "app", "--config", "Release"}, r.calls[0].args); diff != "" {
		t.Errorf("multi config build (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"--build", "out", "--config", "Debug"}, r.calls[1].args); diff != "" {
		t.Errorf("single config build (-want +got):\n%s", diff)
	}
}

func TestEnvAndErrors(t *testing.T) {
	r := &recordRunner{err: errors.New("exit status 1")}
	c := New("src", filepath.Join(t.TempDir(), "build")).Runner(r)
	c.Env("PLY_TEST_VAR", "on")
	err := c.Configure(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cmake -S: exit status 1") {
		t.Fatalf("Configure error = %v", err)
	}
	if _, err := os.Stat(c.OutputDir()); err != nil {
		t.Errorf("build dir not created: %v", err)
	}
	found := false
	for _, kv := range r.calls[0].env {
		if kv == "PLY_TEST_VAR=on" {
			found = true
		}
	}
	if !found {
		t.Error("environment override not passed")
	}
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"B=1", "A=2"}, map[string]string{"A": "3", "C": "4"})
	if diff := cmp.Diff([]string{"A=3", "B=1", "C=4"}, got); diff != "" {
		t.Errorf("mergeEnv (-want +got):\n%s", diff)
	}
}

func TestConfigureBuildE2E(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}
	src := t.TempDir()
	cmakeLists := "cmake_minimum_required(VERSION 3.13)\nproject(dummy C)\nadd_library(dummy STATIC dummy.c)\n"
	if err := os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte(cmakeLists), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "dummy.c"), []byte("int dummy(void) { return 1; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	build := filepath.Join(src, "build")
	c := New(src, build).Runner(ExecRunner(nil, nil)).Generator("Unix Makefiles").BuildType("Release").Define("FOO", "BAR")
	if err := c.Configure(context.Background()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := c.BuildTarget(context.Background(), "dummy", ""); err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(build, "CMakeCache.txt"))
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	for _, snippet := range []string{"FOO:STRING=BAR", "CMAKE_BUILD_TYPE:STRING=Release"} {
		if !strings.Contains(string(data), snippet) {
			t.Errorf("cache missing %q", snippet)
		}
	}
}
