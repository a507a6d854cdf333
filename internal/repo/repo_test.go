package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
)

// writeFiles creates files below dir from a path to content map.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func scan(t *testing.T, files map[string]string) *Registry {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	reg, err := Scan(context.Background(), Options{Dir: dir})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return reg
}

var workspace = map[string]string{
	"base/Plyfile": `
fn default_opt() { return "size"; }

module "core" {
	config_options {
		optimization = default_opt();
		enable_asserts = true;
	}
}
module "runtime" { }
`,
	"base/extras/more.modules": `
module "extra" { }
`,
	"base/media/repo-info.hcl": `remote = "https://example.com/media.git"
ref = "v2"
`,
	"base/media/Plyfile": `
module "png" { }
`,
	"base/media/codecs/repo-info.hcl": ``,
	"base/media/codecs/Plyfile": `
module "jpeg" { }
`,
	"other/Plyfile": `
module "core" { }
extern "zlib" {
	provider "apt" {
		package = "zlib1g-dev";
		libs = ["z"];
	}
	provider "prebuilt" {
		dir = "zlib-1.3";
	}
}
config_list {
	config "Debug" { optimization = "none"; }
}
`,
	"bad-name/Plyfile": `module "x" { }`,
	"base/README.md":   `not a script`,
}

func TestScanLayout(t *testing.T) {
	reg := scan(t, workspace)
	if len(reg.Diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", reg.Diags)
	}
	if diff := cmp.Diff([]string{"base", "other"}, reg.RepoNames()); diff != "" {
		t.Errorf("repos mismatch (-want +got):\n%s", diff)
	}
	base := reg.Repos["base"]
	if diff := cmp.Diff([]string{"core", "extra", "runtime"}, base.TargetNames()); diff != "" {
		t.Errorf("base targets mismatch (-want +got):\n%s", diff)
	}
	media := base.Children["media"]
	if media == nil {
		t.Fatal("child repo media not found")
	}
	if media.QualifiedName() != "base.media" || media.Remote != "https://example.com/media.git" || media.Ref != "v2" {
		t.Errorf("media = %s %q %q", media.QualifiedName(), media.Remote, media.Ref)
	}
	if got := media.Children["codecs"].QualifiedName(); got != "base.media.codecs" {
		t.Errorf("codecs qualified name = %q", got)
	}
	if len(reg.ScriptPaths) != 5 {
		t.Errorf("scanned %d scripts, want 5: %v", len(reg.ScriptPaths), reg.ScriptPaths)
	}
	if reg.ConfigList == nil || reg.ConfigList.Repo.Name != "other" {
		t.Errorf("config list = %+v", reg.ConfigList)
	}

	var walked []string
	reg.Walk(func(r *Repo) error {
		walked = append(walked, r.QualifiedName())
		return nil
	})
	want := []string{"base", "base.media", "base.media.codecs", "other"}
	if diff := cmp.Diff(want, walked); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	reg := scan(t, workspace)
	base := reg.Repos["base"]
	media := base.Children["media"]

	tests := []struct {
		name string
		from *Repo
		in   string
		want string
	}{
		{"local", base, "runtime", "base.runtime"},
		{"own repo prefix", base, "base.core", "base.core"},
		{"child repo", base, "media.png", "base.media.png"},
		{"grandchild", base, "media.codecs.jpeg", "base.media.codecs.jpeg"},
		{"top level", media, "other.core", "other.core"},
		{"top level from nil", nil, "base.media.png", "base.media.png"},
		{"child from child", media, "codecs.jpeg", "base.media.codecs.jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.FindTargetInstantiator(tt.from, tt.in)
			if err != nil {
				t.Fatalf("FindTargetInstantiator(%q) failed: %v", tt.in, err)
			}
			if got.QualifiedName() != tt.want {
				t.Errorf("FindTargetInstantiator(%q) = %s, want %s", tt.in, got.QualifiedName(), tt.want)
			}
		})
	}

	src, err := reg.FindSource(base, "other.zlib")
	if err != nil || src.Kind != ExternKind {
		t.Errorf("FindSource(other.zlib) = %v, %v", src, err)
	}
}

func TestResolveErrors(t *testing.T) {
	reg := scan(t, workspace)
	base := reg.Repos["base"]

	tests := []struct {
		name     string
		from     *Repo
		in       string
		notFound bool
	}{
		{"empty", base, "", false},
		{"empty component", base, "media..png", false},
		{"invalid component", base, "media.2png", false},
		{"unqualified without repo", nil, "core", false},
		{"unknown repo", base, "nowhere.core", true},
		{"unknown child", base, "media.audio.mp3", true},
		{"unknown target", base, "missing", true},
		{"target is an extern", base, "other.zlib", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.FindTargetInstantiator(tt.from, tt.in)
			var re *ResolveError
			if !errors.As(err, &re) {
				t.Fatalf("FindTargetInstantiator(%q) error = %v, want *ResolveError", tt.in, err)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.notFound {
				t.Errorf("errors.Is(ErrNotFound) = %v, want %v (%v)", got, tt.notFound, err)
			}
		})
	}
}

func TestAmbiguousDeclaration(t *testing.T) {
	reg := scan(t, map[string]string{
		"base/a.modules": "module \"core\" { }\n",
		"base/b.modules": "\nextern \"core\" { }\n",
		"base/Plyfile":   "module \"ok\" { }\n",
	})
	base := reg.Repos["base"]
	_, err := reg.FindSource(base, "core")
	if err == nil {
		t.Fatal("resolving an ambiguous name succeeded")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("ambiguous error must not be ErrNotFound: %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "declared more than once") || !strings.Contains(msg, "a.modules:1") || !strings.Contains(msg, "b.modules:2") {
		t.Errorf("error = %q", msg)
	}
	if _, err := reg.FindTargetInstantiator(base, "ok"); err != nil {
		t.Errorf("unrelated target: %v", err)
	}
}

func TestParseErrorsAttachToDeclarations(t *testing.T) {
	reg := scan(t, map[string]string{
		"base/broken.modules": `
module "first" { }
module "second" { x = ; }
`,
		"base/Plyfile": "module \"fine\" { }\n",
	})
	if !reg.Diags.HasErrors() {
		t.Fatal("expected registry diagnostics")
	}
	base := reg.Repos["base"]
	for _, name := range []string{"first", "second"} {
		ti, err := reg.FindTargetInstantiator(base, name)
		if err != nil {
			t.Fatalf("%s was not declared: %v", name, err)
		}
		if ti.Err() == nil {
			t.Errorf("%s carries no error", name)
		}
	}
	fine, _ := reg.FindTargetInstantiator(base, "fine")
	if fine.Err() != nil {
		t.Errorf("fine carries an error: %v", fine.Err())
	}
}

func TestDeclarationErrors(t *testing.T) {
	reg := scan(t, map[string]string{
		"base/Plyfile": `
x = 1;
module "bad-name" { }
fn f() { return 1; }
fn f() { return 2; }
module "m" { }
`,
		"other/Plyfile": "config_list { }\n",
		"third/Plyfile": "config_list { }\n",
	})
	var summaries []string
	for _, d := range reg.Diags {
		summaries = append(summaries, d.Summary)
	}
	want := []string{
		"only declarations and functions are allowed at file scope",
		`invalid module name "bad-name"`,
		`function "f" is already defined in repo base`,
		"config_list is already declared at",
	}
	if len(summaries) != len(want) {
		t.Fatalf("got diagnostics %q", summaries)
	}
	for i, w := range want {
		if !strings.HasPrefix(summaries[i], w) {
			t.Errorf("diag %d = %q, want prefix %q", i, summaries[i], w)
		}
	}
	m, _ := reg.FindTargetInstantiator(reg.Repos["base"], "m")
	if m == nil || m.Err() == nil {
		t.Error("declaration in a file with errors must carry them")
	}
}

func TestConfigOptionDefaults(t *testing.T) {
	reg := scan(t, workspace)
	core, err := reg.FindTargetInstantiator(nil, "base.core")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"optimization", "enable_asserts"}, core.OptionOrder); diff != "" {
		t.Errorf("option order mismatch (-want +got):\n%s", diff)
	}
	if v := core.Options["optimization"]; !v.RawEquals(cty.StringVal("size")) {
		t.Errorf("optimization = %#v", v)
	}
	if v := core.Options["enable_asserts"]; !v.RawEquals(cty.True) {
		t.Errorf("enable_asserts = %#v", v)
	}
}

func TestConfigOptionError(t *testing.T) {
	reg := scan(t, map[string]string{
		"base/Plyfile": `
module "core" {
	config_options {
		opt = undefined_fn();
	}
}
`,
	})
	core, _ := reg.FindTargetInstantiator(reg.Repos["base"], "core")
	err := core.Err()
	if err == nil {
		t.Fatal("expected an evaluation error")
	}
	if !strings.Contains(err.Error(), "Plyfile:4") {
		t.Errorf("error = %v, want location Plyfile:4", err)
	}
}

func TestProviders(t *testing.T) {
	reg := scan(t, workspace)
	p, err := reg.FindProvider("other.zlib.apt")
	if err != nil {
		t.Fatalf("FindProvider failed: %v", err)
	}
	if p.Selector() != "other.zlib.apt" {
		t.Errorf("Selector = %q", p.Selector())
	}
	if pkg, _ := p.Setting("package"); pkg != "zlib1g-dev" {
		t.Errorf("package = %q", pkg)
	}
	if diff := cmp.Diff([]string{"z"}, p.SettingList("libs")); diff != "" {
		t.Errorf("libs mismatch (-want +got):\n%s", diff)
	}
	ext := p.Extern
	if diff := cmp.Diff([]string{"apt", "prebuilt"}, ext.ProviderOrder); diff != "" {
		t.Errorf("provider order mismatch (-want +got):\n%s", diff)
	}

	if _, err := reg.FindProvider("other.zlib.vcpkg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing provider error = %v", err)
	}
	if _, err := reg.FindProvider("zlib"); err == nil {
		t.Error("FindProvider accepted a selector without dots")
	}
}

func TestScanMissingDir(t *testing.T) {
	reg, err := Scan(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "none")})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(reg.Repos) != 0 {
		t.Errorf("got repos %v", reg.RepoNames())
	}
}
