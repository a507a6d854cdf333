package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/plybuild/internal/build"
	"github.com/goplus/plybuild/internal/extern"
	"github.com/goplus/plybuild/internal/hosttools"
	"github.com/goplus/plybuild/internal/settings"
	"github.com/goplus/plybuild/internal/vcs"
	"github.com/goplus/plybuild/pkgs/buildsys/cmake"
)

type mockCMake struct {
	calls []string
}

var _ cmake.Runner = (*mockCMake)(nil)

func (m *mockCMake) Run(_ context.Context, _ string, args, _ []string) error {
	m.calls = append(m.calls, strings.Join(args, " "))
	if len(args) > 3 && args[0] == "-S" {
		return os.WriteFile(filepath.Join(args[3], "CMakeCache.txt"), nil, 0o644)
	}
	return nil
}

type noTools struct{}

var _ hosttools.Runner = noTools{}

func (noTools) LookPath(string) (string, error) {
	return "", exec.ErrNotFound
}

func (noTools) Output(context.Context, string, ...string) (string, error) {
	return "", exec.ErrNotFound
}

type mockVCS struct {
	synced []string
	latest string
}

var _ vcs.VCS = (*mockVCS)(nil)

func (m *mockVCS) Sync(_ context.Context, remote, ref, dir string) error {
	m.synced = append(m.synced, remote+"@"+ref)
	return os.MkdirAll(dir, 0o755)
}

func (m *mockVCS) Latest(context.Context, string, string) (string, error) {
	if m.latest != "" {
		return m.latest, nil
	}
	return "0123456789abcdef", nil
}

func (m *mockVCS) Revision(context.Context, string) (string, error) {
	return "0123456789abcdef", nil
}

const testScript = `
module "app" {
	dependencies {
		"lib.core";
		"lib.zlib";
	}
}
module "core" {
	source_files("src");
}
extern "zlib" {
	provider "fake" {
		libs = "z";
	}
}
`

// setup points the commands at fresh mocks and returns them.
func setup(t *testing.T) (*mockCMake, *mockVCS) {
	t.Helper()
	cm, v := &mockCMake{}, &mockVCS{}
	fake := extern.ProviderFunc(func(_ context.Context, cmd extern.Command, a *extern.ProviderArgs) extern.Result {
		if cmd == extern.Instantiate {
			for _, lib := range a.List("libs") {
				a.AddLinkerInput(lib)
			}
			return extern.Result{Code: extern.Instantiated}
		}
		return extern.Result{Code: extern.Installed}
	})
	sessionOptions = []build.Option{
		build.WithHost(hosttools.Host{OS: "linux", Arch: "amd64"}),
		build.WithRunner(noTools{}),
		build.WithCMakeRunner(cm),
		build.WithProviders(extern.Providers{"fake": fake}),
	}
	newVCS = func() vcs.VCS { return v }
	toolRunner = noTools{}
	t.Cleanup(func() { sessionOptions = nil })
	return cm, v
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	targetShared, generateForce, generateNoConfigure, moduleCheck = false, false, false, false
	generateConfig, buildConfig = "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("plytool %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustExecute(t, "--workspace", dir, "bootstrap")
	writeFile(t, filepath.Join(dir, "repos", "lib", "Plyfile"), testScript)
	writeFile(t, filepath.Join(dir, "repos", "lib", "src", "core.cpp"), "int core;\n")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func expectContains(t *testing.T, out string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(out, p) {
			t.Errorf("output lacks %q:\n%s", p, out)
		}
	}
}

func TestBootstrap(t *testing.T) {
	setup(t)
	dir := newWorkspace(t)
	for _, p := range []string{settings.WorkspaceFile, "repos", filepath.Join("data", "build"), filepath.Join("data", "extern")} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("bootstrap did not create %s: %v", p, err)
		}
	}
}

func TestWorkflow(t *testing.T) {
	cm, _ := setup(t)
	dir := newWorkspace(t)
	ws := []string{"--workspace", dir}
	run := func(args ...string) string {
		t.Helper()
		return mustExecute(t, append(ws, args...)...)
	}

	if _, err := execute(t, append(ws, "generate")...); !errors.Is(err, settings.ErrNoBuildFolder) {
		t.Fatalf("generate without folder = %v", err)
	}

	expectContains(t, run("folder", "create", "main"), "Created build folder main")
	run("folder", "create", "other")
	expectContains(t, run("folder", "list"), "  main\n", "* other\n")
	run("folder", "set", "main")

	expectContains(t, run("target", "add", "lib.app"), "Added root target lib.app")
	if _, err := execute(t, append(ws, "target", "add", "lib.nope")...); err == nil {
		t.Error("adding an unknown target succeeded")
	}
	run("target", "add", "--shared", "lib.core")
	expectContains(t, run("target", "list"), "* lib.app\n", "  lib.core (shared)\n")

	// The extern has no selected provider yet.
	out, err := execute(t, append(ws, "generate", "--no-configure")...)
	if err == nil {
		t.Fatal("generate with an unselected extern succeeded")
	}
	expectContains(t, out, "no selected provider: lib.zlib", "Generated")

	expectContains(t, run("extern", "select", "lib.zlib.fake"), "Selected fake for extern lib.zlib in main")
	expectContains(t, run("extern", "list"), "lib.zlib\n  * fake\n")
	expectContains(t, run("extern", "info", "lib.zlib"), "* lib.zlib.fake: installed")

	out = run("generate")
	expectContains(t, out, "Generated "+filepath.Join(dir, "data", "build", "main", "CMakeLists.txt"))
	expectContains(t, run("generate"), "Build system of main is up to date")
	lists, err := os.ReadFile(filepath.Join(dir, "data", "build", "main", "CMakeLists.txt"))
	if err != nil {
		t.Fatal(err)
	}
	expectContains(t, string(lists), "add_library(core SHARED", "target_link_libraries(app INTERFACE zlib)")

	expectContains(t, run("describe"),
		"name: main",
		"- name: lib.app",
		"type: dll",
		"option: linker_input z",
	)

	run("build")
	run("build", "--config", "Release", "lib.core")
	debug := filepath.Join(dir, "data", "build", "main", "build", "Debug")
	release := filepath.Join(dir, "data", "build", "main", "build", "Release")
	want := []string{
		"--build " + debug + " --config Debug --target app",
		"-S " + filepath.Join(dir, "data", "build", "main") + " -B " + release + " -G Unix Makefiles -DCMAKE_BUILD_TYPE:STRING=Release",
		"--build " + release + " --config Release --target core",
	}
	if len(cm.calls) < len(want) {
		t.Fatalf("cmake calls = %q", cm.calls)
	}
	got := cm.calls[len(cm.calls)-len(want):]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cmake call %d = %q, want %q", i, got[i], want[i])
		}
	}

	run("target", "remove", "lib.core")
	expectContains(t, run("target", "list"), "* lib.app\n")
	expectContains(t, run("folder", "delete", "main"), "Deleted build folder main")
	if _, err := execute(t, append(ws, "target", "list")...); !errors.Is(err, settings.ErrNoBuildFolder) {
		t.Errorf("target list after delete = %v", err)
	}
}

func TestModuleCommands(t *testing.T) {
	_, v := setup(t)
	dir := newWorkspace(t)
	writeFile(t, filepath.Join(dir, "repos", "lib", "repo-info.hcl"), "remote = \"https://example.com/lib.git\"\nref = \"main\"\n")

	out := mustExecute(t, "--workspace", dir, "module", "list")
	expectContains(t, out, "lib @ 0123456789ab\n", "  module app\n", "  extern zlib\n")

	out = mustExecute(t, "--workspace", dir, "module", "update", "--check")
	expectContains(t, out, "lib is up to date at 0123456789ab\n")
	v.latest = "fedcba9876543210"
	out = mustExecute(t, "--workspace", dir, "module", "update", "--check")
	expectContains(t, out, "lib can be updated: 0123456789ab -> fedcba987654\n")
	if len(v.synced) != 0 {
		t.Errorf("--check synced %q", v.synced)
	}

	out = mustExecute(t, "--workspace", dir, "module", "update")
	expectContains(t, out, "Updated lib to 0123456789ab")

	out = mustExecute(t, "--workspace", dir, "module", "add", "extra", "https://example.com/extra.git")
	expectContains(t, out, "Added repo extra")
	want := []string{"https://example.com/lib.git@main", "https://example.com/extra.git@"}
	if strings.Join(v.synced, " ") != strings.Join(want, " ") {
		t.Errorf("synced %q, want %q", v.synced, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "repos", "extra", "repo-info.hcl")); err != nil {
		t.Errorf("repo info not written: %v", err)
	}
}

func TestHosttools(t *testing.T) {
	setup(t)
	out := mustExecute(t, "hosttools")
	expectContains(t, out, "host: ", "cmake", "not found")
}
