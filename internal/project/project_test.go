package project

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const (
	debug   = ConfigMask(1)
	release = ConfigMask(2)
	both    = debug | release
)

var cmpOptions = cmp.AllowUnexported(OptionValue{})

func newTarget(name string) *Target {
	return &Target{Name: name, QualifiedName: "lib." + name, Enabled: both}
}

func newProject(t *testing.T, targets ...*Target) *Project {
	t.Helper()
	p, err := New("test", []string{"Debug", "Release"})
	if err != nil {
		t.Fatal(err)
	}
	p.Targets = targets
	return p
}

func find(options []Option, typ OptionType, key string) []Option {
	var out []Option
	for _, o := range options {
		if o.Type == typ && o.Key == key {
			out = append(out, o)
		}
	}
	return out
}

func TestConfigMask(t *testing.T) {
	if got := AllConfigs(3); got != 7 {
		t.Errorf("AllConfigs(3) = %b", got)
	}
	if got := AllConfigs(64); got != ^ConfigMask(0) {
		t.Errorf("AllConfigs(64) = %x", got)
	}
	m := Bit(0) | Bit(2)
	if !m.HasAllBitsIn(Bit(2)) || m.HasAllBitsIn(Bit(1)|Bit(2)) {
		t.Errorf("HasAllBitsIn is wrong for %b", m)
	}
	if !m.Has(2) || m.Has(1) || !m.HasAnyBit() || ConfigMask(0).HasAnyBit() {
		t.Errorf("bit tests are wrong for %b", m)
	}
	if got := m.Format([]string{"Debug", "Release", "Shipping"}); got != "Debug,Shipping" {
		t.Errorf("Format = %q", got)
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d", m.Count())
	}
}

func TestNewRejectsConfigs(t *testing.T) {
	if _, err := New("p", nil); err == nil {
		t.Error("New with no configs succeeded")
	}
	if _, err := New("p", make([]string, 65)); !errors.Is(err, ErrTooManyConfigs) {
		t.Errorf("New with 65 configs: %v", err)
	}
}

// effective returns the options of type typ enabled in configuration i,
// skipping Erased entries.
func effective(options []Option, typ OptionType, i int) []Option {
	var out []Option
	for _, o := range options {
		if o.Type == typ && o.Enabled.Has(i) && !o.Value.IsErased() {
			out = append(out, o)
		}
	}
	return out
}

func TestAppendOption(t *testing.T) {
	var opts []Option
	opts = AppendOption(opts, Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("1"), Enabled: both, Public: both})
	opts = AppendOption(opts, Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("2"), Enabled: release})
	opts = AppendOption(opts, Option{Type: IncludeDir, Key: "/inc", Enabled: debug})
	opts = AppendOption(opts, Option{Type: IncludeDir, Key: "/inc", Enabled: release, Public: release})

	want := []Option{
		{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("1"), Enabled: debug, Public: debug},
		{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("2"), Enabled: release},
		{Type: IncludeDir, Key: "/inc", Enabled: both, Public: release},
	}
	if diff := cmp.Diff(want, opts, cmpOptions); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}

	opts = AppendOption(opts, Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("3"), Enabled: debug})
	if got := find(opts, PreprocessorDef, "LEVEL"); len(got) != 2 || got[0].Value.Text() != "2" || got[1].Value.Text() != "3" {
		t.Errorf("override in debug left %v", got)
	}

	opts = AppendOption(opts, Option{Type: PreprocessorDef, Key: "LEVEL", Value: Erased, Enabled: release})
	opts = AppendOption(opts, Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("4"), Enabled: release})
	want = []Option{
		{Type: IncludeDir, Key: "/inc", Enabled: both, Public: release},
		{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("3"), Enabled: debug},
		{Type: PreprocessorDef, Key: "LEVEL", Value: Erased, Enabled: release},
		{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("4"), Enabled: release},
	}
	if diff := cmp.Diff(want, opts, cmpOptions); diff != "" {
		t.Errorf("options after erase mismatch (-want +got):\n%s", diff)
	}
}

// A depends privately on B which exports /b/inc and links b.lib.
// C depends publicly on A.
func TestVisibility(t *testing.T) {
	b := newTarget("B")
	b.AddOption(Option{Type: IncludeDir, Key: "/b/inc", Enabled: both, Public: both})
	b.AddOption(Option{Type: IncludeDir, Key: "/b/src", Enabled: both})
	b.AddOption(Option{Type: LinkerInput, Key: "b.lib", Enabled: both})
	a := newTarget("A")
	a.AddDependency(b, both, 0)
	c := newTarget("C")
	c.AddDependency(a, both, both)

	p := newProject(t, c, a, b)
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}

	if got := find(a.Options, IncludeDir, "/b/inc"); len(got) != 1 || got[0].Enabled != both || got[0].Public != 0 {
		t.Errorf("A sees /b/inc as %+v, want enabled privately", got)
	}
	if got := find(a.Options, IncludeDir, "/b/src"); len(got) != 0 {
		t.Errorf("private include of B leaked into A: %+v", got)
	}
	if got := find(c.Options, IncludeDir, "/b/inc"); len(got) != 0 {
		t.Errorf("C sees /b/inc through a private edge: %+v", got)
	}
	if got := find(c.Options, LinkerInput, "b.lib"); len(got) != 1 || got[0].Enabled != both {
		t.Errorf("C links %+v, want b.lib in both configs", got)
	}

	var names []string
	for _, d := range c.LinkDeps {
		names = append(names, d.Target.Name)
	}
	if strings.Join(names, ",") != "B,A" {
		t.Errorf("C link deps = %v, want [B A]", names)
	}
	var order []string
	for _, tg := range p.Ordered() {
		order = append(order, tg.Name)
	}
	if strings.Join(order, ",") != "B,A,C" {
		t.Errorf("order = %v, want [B A C]", order)
	}
}

// Z -> Y enabled in Debug only, Y -> X in both, X exports O in both.
func TestMaskComposition(t *testing.T) {
	x := newTarget("X")
	x.AddOption(Option{Type: PreprocessorDef, Key: "O", Enabled: both, Public: both})
	x.AddOption(Option{Type: LinkerSpecific, Key: "-lx", Enabled: both})
	y := newTarget("Y")
	y.AddDependency(x, both, both)
	z := newTarget("Z")
	z.AddDependency(y, debug, debug)

	p := newProject(t, z)
	p.Targets = append(p.Targets, y, x)
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}
	if got := find(z.Options, PreprocessorDef, "O"); len(got) != 1 || got[0].Enabled != debug {
		t.Errorf("Z sees O as %+v, want Debug only", got)
	}
	if got := find(z.Options, LinkerSpecific, "-lx"); len(got) != 1 || got[0].Enabled != debug {
		t.Errorf("Z links -lx as %+v, want Debug only", got)
	}
	for _, d := range z.LinkDeps {
		if d.Enabled != debug {
			t.Errorf("link dep %s enabled in %b, want Debug only", d.Target.Name, d.Enabled)
		}
	}
}

func TestConflictingValuesStaySeparate(t *testing.T) {
	l := newTarget("L")
	l.AddOption(Option{Type: PreprocessorDef, Key: "MODE", Value: Concrete("left"), Enabled: both, Public: both})
	r := newTarget("R")
	r.AddOption(Option{Type: PreprocessorDef, Key: "MODE", Value: Concrete("right"), Enabled: debug, Public: debug})
	top := newTarget("Top")
	top.AddDependency(l, both, both)
	top.AddDependency(r, both, both)

	p := newProject(t, top, l, r)
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}
	got := find(top.Options, PreprocessorDef, "MODE")
	want := []Option{
		{Type: PreprocessorDef, Key: "MODE", Value: Concrete("left"), Enabled: both, Public: both},
		{Type: PreprocessorDef, Key: "MODE", Value: Concrete("right"), Enabled: debug, Public: debug},
	}
	if diff := cmp.Diff(want, got, cmpOptions); diff != "" {
		t.Errorf("MODE entries mismatch (-want +got):\n%s", diff)
	}
}

// A has its own LEVEL=2 and a public dependency exporting LEVEL=1. C gets
// LEVEL=1 and LEVEL=2 from two dependencies. Both keep both values.
func TestOwnOptionsDoNotReplaceInherited(t *testing.T) {
	one := newTarget("One")
	one.AddOption(Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("1"), Enabled: both, Public: both})
	two := newTarget("Two")
	two.AddOption(Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("2"), Enabled: both, Public: both})
	a := newTarget("A")
	a.AddDependency(one, both, both)
	a.AddOption(Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("2"), Enabled: both})
	c := newTarget("C")
	c.AddDependency(one, both, both)
	c.AddDependency(two, both, both)
	replaced := newTarget("Replaced")
	replaced.AddDependency(one, both, both)
	replaced.AddOption(Option{Type: PreprocessorDef, Key: "LEVEL", Value: Erased, Enabled: release})
	replaced.AddOption(Option{Type: PreprocessorDef, Key: "LEVEL", Value: Concrete("2"), Enabled: release})

	p := newProject(t, a, c, replaced, one, two)
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}
	values := func(tg *Target, i int) []string {
		var out []string
		for _, o := range effective(tg.Options, PreprocessorDef, i) {
			out = append(out, o.Value.Text())
		}
		return out
	}
	tests := []struct {
		target *Target
		config int
		want   []string
	}{
		{a, 0, []string{"1", "2"}},
		{a, 1, []string{"1", "2"}},
		{c, 0, []string{"1", "2"}},
		{replaced, 0, []string{"1"}},
		{replaced, 1, []string{"2"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, values(tt.target, tt.config)); diff != "" {
			t.Errorf("%s config %d LEVEL mismatch (-want +got):\n%s", tt.target.Name, tt.config, diff)
		}
	}
	// A does not export its own private value.
	for _, o := range find(a.Options, PreprocessorDef, "LEVEL") {
		if o.Value.Text() == "2" && o.Public != 0 {
			t.Errorf("A exports LEVEL=2: %+v", o)
		}
	}
}

func TestErased(t *testing.T) {
	base := newTarget("Base")
	base.AddOption(Option{Type: PreprocessorDef, Key: "NDEBUG", Enabled: both, Public: both})
	mid := newTarget("Mid")
	mid.AddDependency(base, both, both)
	mid.AddOption(Option{Type: PreprocessorDef, Key: "NDEBUG", Value: Erased, Enabled: debug, Public: debug})
	top := newTarget("Top")
	top.AddDependency(mid, both, both)
	top.AddOption(Option{Type: PreprocessorDef, Key: "NDEBUG", Enabled: debug})

	p := newProject(t, top, mid, base)
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}

	if got := effective(mid.Options, PreprocessorDef, 0); len(got) != 0 {
		t.Errorf("Mid Debug defines = %+v, want NDEBUG erased", got)
	}
	if got := effective(mid.Options, PreprocessorDef, 1); len(got) != 1 {
		t.Errorf("Mid Release defines = %+v, want NDEBUG", got)
	}
	// Top erases through Mid, then adds NDEBUG back for Debug.
	for i, name := range []string{"Debug", "Release"} {
		if got := effective(top.Options, PreprocessorDef, i); len(got) != 1 || got[0].Key != "NDEBUG" {
			t.Errorf("Top %s defines = %+v, want NDEBUG", name, got)
		}
	}
}

func TestExecutableDependencyNotInherited(t *testing.T) {
	tool := newTarget("tool")
	tool.Type = Executable
	tool.AddOption(Option{Type: IncludeDir, Key: "/tool", Enabled: both, Public: both})
	lib := newTarget("lib")
	lib.AddDependency(tool, both, both)

	p := newProject(t, lib, tool)
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}
	if len(lib.Options) != 0 || len(lib.LinkDeps) != 0 {
		t.Errorf("lib inherited from an executable: %+v %+v", lib.Options, lib.LinkDeps)
	}
}

func TestPerConfigOptions(t *testing.T) {
	a := newTarget("A")
	b := newTarget("B")
	a.AddDependency(b, both, both)
	p := newProject(t, a, b)
	p.PerConfigOptions = []Option{
		{Type: Generic, Key: "optimization", Value: Concrete("none"), Enabled: debug},
		{Type: Generic, Key: "optimization", Value: Concrete("full"), Enabled: release},
	}
	a.AddOption(Option{Type: Generic, Key: "optimization", Value: Erased, Enabled: release})
	a.AddOption(Option{Type: Generic, Key: "optimization", Value: Concrete("size"), Enabled: release})
	if err := p.Propagate(); err != nil {
		t.Fatal(err)
	}
	if got := find(b.Options, Generic, "optimization"); len(got) != 2 || got[0].Public != 0 {
		t.Errorf("B optimization = %+v", got)
	}
	// Per config options are not exported, and A erases Release before
	// setting its own value.
	got := find(a.Options, Generic, "optimization")
	want := []Option{
		{Type: Generic, Key: "optimization", Value: Concrete("none"), Enabled: debug},
		{Type: Generic, Key: "optimization", Value: Erased, Enabled: release},
		{Type: Generic, Key: "optimization", Value: Concrete("size"), Enabled: release},
	}
	if diff := cmp.Diff(want, got, cmpOptions); diff != "" {
		t.Errorf("A optimization mismatch (-want +got):\n%s", diff)
	}
}

func TestPropagateCycle(t *testing.T) {
	a := newTarget("A")
	b := newTarget("B")
	a.AddDependency(b, both, both)
	b.AddDependency(a, both, both)
	p := newProject(t, a, b)
	err := p.Propagate()
	if !errors.Is(err, ErrInternalCycle) {
		t.Fatalf("Propagate = %v, want ErrInternalCycle", err)
	}
	if !strings.Contains(err.Error(), "lib.A -> lib.B -> lib.A") {
		t.Errorf("error %q does not name the cycle", err)
	}
}

func TestDropConfig(t *testing.T) {
	a := newTarget("A")
	b := newTarget("B")
	a.HasBuildStep = both
	a.AddOption(Option{Type: IncludeDir, Key: "/a", Enabled: both, Public: both})
	a.AddOption(Option{Type: PreprocessorDef, Key: "ONLY_RELEASE", Enabled: release})
	a.AddDependency(b, release, release)
	a.AddSourceFile("/src", "a.cpp", both)
	a.AddSourceFile("/src", "r.cpp", release)
	a.AddSourceFile("/gen", "g.cpp", release)

	a.DropConfig(release)

	if a.Enabled != debug || a.HasBuildStep != debug {
		t.Errorf("masks = %b %b", a.Enabled, a.HasBuildStep)
	}
	want := []Option{{Type: IncludeDir, Key: "/a", Enabled: debug, Public: debug}}
	if diff := cmp.Diff(want, a.Options, cmpOptions); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if len(a.Dependencies) != 0 {
		t.Errorf("dependencies = %v", a.Dependencies)
	}
	wantSources := []SourceGroup{{AbsPath: "/src", Files: []SourceFile{{RelPath: "a.cpp", Enabled: debug}}}}
	if diff := cmp.Diff(wantSources, a.SourceGroups); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate(t *testing.T) {
	options := []Option{
		{Type: Generic, Key: "optimization", Value: Concrete("full"), Enabled: release},
		{Type: Generic, Key: "optimization", Value: Concrete("none"), Enabled: debug},
		{Type: Generic, Key: "debug_info", Value: Concrete("true"), Enabled: both},
		{Type: Generic, Key: "cpp_standard", Value: Concrete("c++17"), Enabled: both},
		{Type: Generic, Key: "custom", Value: Concrete("x"), Enabled: both},
		{Type: CompilerSpecific, Key: "-march=native", Enabled: release},
		{Type: LinkerSpecific, Key: "-pthread", Enabled: both},
	}
	tests := []struct {
		tc     Toolchain
		config int
		want   CompilerOptions
	}{
		{GCC(), 0, CompilerOptions{Compile: []string{"-O0", "-g", "-std=c++17"}, Link: []string{"-pthread"}}},
		{GCC(), 1, CompilerOptions{Compile: []string{"-O3", "-g", "-std=c++17", "-march=native"}, Link: []string{"-pthread"}}},
		{MSVC(), 0, CompilerOptions{Compile: []string{"/Od", "/Zi", "/std:c++17"}, Link: []string{"/DEBUG", "-pthread"}}},
	}
	for _, tt := range tests {
		got := Translate(tt.tc, options, tt.config)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s config %d (-want +got):\n%s", tt.tc.Name(), tt.config, diff)
		}
	}
	if tc := ToolchainForGenerator("Visual Studio 17 2022"); tc.Name() != "msvc" {
		t.Errorf("Visual Studio toolchain = %s", tc.Name())
	}
	if _, err := ToolchainByName("tcc"); err == nil {
		t.Error("ToolchainByName(tcc) succeeded")
	}
}
