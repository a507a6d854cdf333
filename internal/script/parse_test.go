package script

import (
	"strings"
	"testing"

	"github.com/goplus/plybuild/pkgs/label"
	"github.com/hashicorp/hcl/v2"
)

const (
	kindModule BlockKind = iota + 1
	kindDependencies
	kindConfigOptions
)

func testGrammar() *Grammar {
	return NewGrammar().
		Add("module", BlockRule{Kind: kindModule, Name: NameRequired, Parents: []string{FileScope}}).
		Add("dependencies", BlockRule{Kind: kindDependencies, Parents: []string{"module"}}).
		Add("config_options", BlockRule{Kind: kindConfigOptions, Parents: []string{"module"}})
}

func parseString(t *testing.T, labels *label.Table, src string) (*File, hcl.Diagnostics) {
	t.Helper()
	return Parse("test.modules", []byte(src), labels, testGrammar())
}

func TestParseModule(t *testing.T) {
	labels := label.NewTable()
	f, diags := parseString(t, labels, `
// helpers
fn helper(x) { return x + 1; }

module "A" {
	dependencies {
		public: "lib.B";
		private runtime;
		math;
	}
}
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(f.Body.Stmts) != 2 {
		t.Fatalf("got %d top level statements, want 2", len(f.Body.Stmts))
	}
	fn, ok := f.Body.Stmts[0].(*FuncDef)
	if !ok {
		t.Fatalf("stmt 0 is %T, want *FuncDef", f.Body.Stmts[0])
	}
	if got := labels.View(fn.Name); got != "helper" {
		t.Errorf("function name = %q, want helper", got)
	}
	if len(fn.Params) != 1 || labels.View(fn.Params[0]) != "x" {
		t.Errorf("function params = %v, want [x]", fn.Params)
	}

	mod, ok := f.Body.Stmts[1].(*CustomBlock)
	if !ok {
		t.Fatalf("stmt 1 is %T, want *CustomBlock", f.Body.Stmts[1])
	}
	if mod.Kind != kindModule {
		t.Errorf("module kind = %d, want %d", mod.Kind, kindModule)
	}
	if name, ok := mod.NameText(); !ok || name != "A" {
		t.Errorf("module name = %q, %v; want A", name, ok)
	}

	deps := mod.Body.Stmts[0].(*CustomBlock)
	if deps.Kind != kindDependencies || deps.Name != nil {
		t.Fatalf("dependencies block = %+v", deps)
	}
	wantVis := []Visibility{VisPublic, VisPrivate, VisDefault}
	if len(deps.Body.Stmts) != len(wantVis) {
		t.Fatalf("got %d dependency statements, want %d", len(deps.Body.Stmts), len(wantVis))
	}
	for i, s := range deps.Body.Stmts {
		ev, ok := s.(*EvaluateStmt)
		if !ok {
			t.Fatalf("dependency %d is %T, want *EvaluateStmt", i, s)
		}
		if ev.Attrs.Visibility != wantVis[i] {
			t.Errorf("dependency %d visibility = %v, want %v", i, ev.Attrs.Visibility, wantVis[i])
		}
	}
	if text, ok := LiteralText(deps.Body.Stmts[0].(*EvaluateStmt).X); !ok || text != "lib.B" {
		t.Errorf("first dependency = %q, want lib.B", text)
	}
	if name, ok := DottedName(labels, deps.Body.Stmts[1].(*EvaluateStmt).X); !ok || name != "runtime" {
		t.Errorf("second dependency = %q, want runtime", name)
	}
	if r := mod.Range(); r.Start.Line != 5 || r.End.Line != 11 {
		t.Errorf("module range = %v, want lines 5-11", r)
	}
}

func TestParseCollectsErrors(t *testing.T) {
	labels := label.NewTable()
	f, diags := parseString(t, labels, `module "A" { x = ; }
module "B" { y = 1 }
widget "C" { }
module "D" { }
`)
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2: %v", len(diags), diags)
	}
	if !strings.Contains(diags[0].Summary, "unexpected ';'") || diags[0].Subject.Start.Line != 1 {
		t.Errorf("diag 0 = %q at line %d", diags[0].Summary, diags[0].Subject.Start.Line)
	}
	if diags[1].Summary != `unknown block type "widget"` || diags[1].Subject.Start.Line != 3 {
		t.Errorf("diag 1 = %q at line %d", diags[1].Summary, diags[1].Subject.Start.Line)
	}
	// the unknown block is dropped, every module survives
	var names []string
	for _, s := range f.Body.Stmts {
		if cb, ok := s.(*CustomBlock); ok {
			name, _ := cb.NameText()
			names = append(names, name)
		}
	}
	if strings.Join(names, ",") != "A,B,D" {
		t.Errorf("recovered modules = %v, want [A B D]", names)
	}
}

func TestParseMalformedInterpolation(t *testing.T) {
	labels := label.NewTable()
	f, diags := parseString(t, labels, `module "A" {
	x = "lib${name";
	y = "${}";
	z = 1 +;
	w = "ok ${name}.a";
}
`)
	if len(diags) != 3 {
		t.Fatalf("got %d diagnostics, want 3: %v", len(diags), diags)
	}
	wantLines := []int{2, 3, 4}
	for i, d := range diags {
		if d.Subject.Start.Line != wantLines[i] {
			t.Errorf("diag %d (%s) at line %d, want %d", i, d.Summary, d.Subject.Start.Line, wantLines[i])
		}
	}

	body := f.Body.Stmts[0].(*CustomBlock).Body
	if len(body.Stmts) != 4 {
		t.Fatalf("got %d statements, want 4", len(body.Stmts))
	}
	x := body.Stmts[0].(*AssignStmt).Value.(*StringExpr)
	if len(x.Parts) != 2 || x.Parts[0].Text != "lib" {
		t.Fatalf("x parts = %+v", x.Parts)
	}
	if _, ok := x.Parts[1].X.(*ErrorExpr); !ok {
		t.Errorf("x part 1 = %T, want *ErrorExpr", x.Parts[1].X)
	}
	w := body.Stmts[3].(*AssignStmt).Value.(*StringExpr)
	if len(w.Parts) != 3 || w.Parts[0].Text != "ok " || w.Parts[2].Text != ".a" {
		t.Fatalf("w parts = %+v", w.Parts)
	}
	if n, ok := w.Parts[1].X.(*NameExpr); !ok || labels.View(n.Name) != "name" {
		t.Errorf("w part 1 = %#v, want name lookup", w.Parts[1].X)
	}
	if got := w.Parts[1].X.Range().Start.Column; got != 12 {
		t.Errorf("interpolated expression column = %d, want 12", got)
	}
}

func TestParseBlockContext(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"file scope", `dependencies { }`, `"dependencies" block is not allowed at file scope`},
		{"nested module", `module "A" { module "B" { } }`, `"module" block is not allowed inside "module"`},
		{"missing name", `module { }`, `"module" block requires a name`},
		{"unexpected name", `module "A" { dependencies "x" { } }`, `"dependencies" block does not take a name`},
		{"nested fn", `module "A" { fn f() { } }`, "functions can only be defined at file scope"},
		{"else without if", `else { }`, "else without if"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := parseString(t, label.NewTable(), tt.src)
			if len(diags) == 0 {
				t.Fatalf("no diagnostics, want %q", tt.want)
			}
			if diags[0].Summary != tt.want {
				t.Errorf("diag = %q, want %q", diags[0].Summary, tt.want)
			}
		})
	}
}

func TestParseFunctionBodyAcceptsBlocks(t *testing.T) {
	_, diags := parseString(t, label.NewTable(), `fn addDeps() { dependencies { "x"; } }`)
	if diags.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestParseExpressions(t *testing.T) {
	labels := label.NewTable()
	f, diags := parseString(t, labels, `x = 1 + 2 * 3 == 7 && !false;
if a { } else if b { } else { }
y = obj.prop.call(1, [2, 3],);
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	and := f.Body.Stmts[0].(*AssignStmt).Value.(*BinaryExpr)
	if and.Op != OpAnd {
		t.Fatalf("root op = %s, want &&", and.Op)
	}
	eq := and.L.(*BinaryExpr)
	if eq.Op != OpEq {
		t.Fatalf("left op = %s, want ==", eq.Op)
	}
	add := eq.L.(*BinaryExpr)
	if add.Op != OpAdd || add.R.(*BinaryExpr).Op != OpMul {
		t.Errorf("precedence of + and * is wrong: %+v", add)
	}
	if u, ok := and.R.(*UnaryExpr); !ok || u.Op != OpNot {
		t.Errorf("right operand = %#v, want !false", and.R)
	}

	ifs := f.Body.Stmts[1].(*IfStmt)
	elseIf, ok := ifs.Else.(*IfStmt)
	if !ok {
		t.Fatalf("else branch = %T, want *IfStmt", ifs.Else)
	}
	if _, ok := elseIf.Else.(*Block); !ok {
		t.Errorf("final else = %T, want *Block", elseIf.Else)
	}

	call := f.Body.Stmts[2].(*AssignStmt).Value.(*CallExpr)
	if len(call.Args) != 2 {
		t.Errorf("call has %d args, want 2", len(call.Args))
	}
	if name, ok := DottedName(labels, call.Fn); !ok || name != "obj.prop.call" {
		t.Errorf("callee = %q, want obj.prop.call", name)
	}
}

func TestParseTooManyErrors(t *testing.T) {
	src := strings.Repeat("x = ;\n", maxErrors+20)
	_, diags := parseString(t, label.NewTable(), src)
	if len(diags) != maxErrors+1 {
		t.Fatalf("got %d diagnostics, want %d", len(diags), maxErrors+1)
	}
	if diags[len(diags)-1].Summary != "too many errors" {
		t.Errorf("last diagnostic = %q", diags[len(diags)-1].Summary)
	}
}
