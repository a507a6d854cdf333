// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"errors"
	"fmt"

	"github.com/goplus/plybuild/pkgs/label"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

const (
	defaultMaxDepth = 200
	defaultMaxLoop  = 1 << 20
)

// Interpreter evaluates parsed scripts. It holds no per-run state, so one
// interpreter can serve every frame of a CLI invocation.
type Interpreter struct {
	Labels   *label.Table
	Builtins map[label.Label]cty.Value
	MaxDepth int
	MaxLoop  int
}

// New creates an interpreter without builtins.
func New(labels *label.Table) *Interpreter {
	return &Interpreter{
		Labels:   labels,
		Builtins: make(map[label.Label]cty.Value),
		MaxDepth: defaultMaxDepth,
		MaxLoop:  defaultMaxLoop,
	}
}

// SetBuiltin binds name in every frame run by in.
func (in *Interpreter) SetBuiltin(name string, v cty.Value) {
	in.Builtins[in.Labels.InsertOrFind(name)] = v
}

// Result is the outcome of a block that did not fail: either it ran to
// the end or it executed a return statement.
type Result struct {
	Returned bool
	Value    cty.Value
}

// Hooks are the host extension points. Nil hooks use the default
// behaviour: custom blocks are rejected, evaluated values are dropped and
// assignments bind locals.
type Hooks struct {
	CustomBlock func(fr *Frame, cb *CustomBlock) error
	Evaluate    func(fr *Frame, attrs Attributes, v cty.Value, stmt *EvaluateStmt) error
	// LocalAssign reports whether it consumed the assignment.
	LocalAssign func(fr *Frame, attrs Attributes, name label.Label, v cty.Value) (bool, error)
}

// Frame is one activation: a function call, a module body or the body of
// a custom block.
type Frame struct {
	Interp      *Interpreter
	Locals      map[label.Label]cty.Value
	CustomBlock *CustomBlock
	Outer       *Frame
	Hooks       Hooks
	// Resolve looks up names not bound in the locals of this frame chain.
	Resolve func(name label.Label) (cty.Value, bool)

	depth int
}

// NewFrame creates a top level frame.
func (in *Interpreter) NewFrame(hooks Hooks, resolve func(label.Label) (cty.Value, bool)) *Frame {
	return &Frame{
		Interp:  in,
		Locals:  make(map[label.Label]cty.Value),
		Hooks:   hooks,
		Resolve: resolve,
	}
}

// Error is a runtime error with the location of the failing statement or
// expression.
type Error struct {
	Range hcl.Range
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Range.Filename, e.Range.Start.Line, e.Range.Start.Column, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Diagnostic converts e for reporting alongside parse diagnostics.
func (e *Error) Diagnostic() *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  e.Msg,
		Subject:  e.Range.Ptr(),
	}
}

func errorf(rng hcl.Range, format string, args ...any) error {
	return &Error{Range: rng, Msg: fmt.Sprintf(format, args...)}
}

// wrap attaches rng to err unless err already carries a location.
func wrap(err error, rng hcl.Range) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Range: rng, Msg: err.Error(), Err: err}
}

// Lookup resolves name through the locals of the frame chain, then the
// nearest Resolve function, then the interpreter builtins.
func (fr *Frame) Lookup(name label.Label) (cty.Value, bool) {
	for f := fr; f != nil; f = f.Outer {
		if v, ok := f.Locals[name]; ok {
			return v, true
		}
	}
	for f := fr; f != nil; f = f.Outer {
		if f.Resolve != nil {
			if v, ok := f.Resolve(name); ok {
				return v, true
			}
			break
		}
	}
	v, ok := fr.Interp.Builtins[name]
	return v, ok
}

// Set assigns to an existing local in the frame chain or creates one in fr.
func (fr *Frame) Set(name label.Label, v cty.Value) {
	for f := fr; f != nil; f = f.Outer {
		if _, ok := f.Locals[name]; ok {
			f.Locals[name] = v
			return
		}
	}
	fr.Locals[name] = v
}

// ExecCustomBlock runs the body of cb in a child frame with its own hooks.
// Locals of fr stay visible.
func (fr *Frame) ExecCustomBlock(cb *CustomBlock, hooks Hooks) error {
	child := &Frame{
		Interp:      fr.Interp,
		Locals:      make(map[label.Label]cty.Value),
		CustomBlock: cb,
		Outer:       fr,
		Hooks:       hooks,
		depth:       fr.depth,
	}
	res, err := child.ExecBlock(cb.Body)
	if err != nil {
		return err
	}
	if res.Returned {
		return errorf(cb.SrcRange, "return is not allowed inside a %s block", cb.Keyword)
	}
	return nil
}

// ExecBlock interprets the statements of b in order.
func (fr *Frame) ExecBlock(b *Block) (Result, error) {
	for _, s := range b.Stmts {
		res, err := fr.exec(s)
		if err != nil || res.Returned {
			return res, err
		}
	}
	return Result{}, nil
}

func (fr *Frame) exec(s Stmt) (Result, error) {
	switch s := s.(type) {
	case *Block:
		return fr.ExecBlock(s)

	case *IfStmt:
		cond, err := fr.evalCond(s.Cond)
		if err != nil {
			return Result{}, err
		}
		if cond {
			return fr.ExecBlock(s.Then)
		}
		if s.Else != nil {
			return fr.exec(s.Else)
		}
		return Result{}, nil

	case *WhileStmt:
		for i := 0; ; i++ {
			if i >= fr.Interp.MaxLoop {
				return Result{}, errorf(s.SrcRange, "loop exceeded %d iterations", fr.Interp.MaxLoop)
			}
			cond, err := fr.evalCond(s.Cond)
			if err != nil || !cond {
				return Result{}, err
			}
			res, err := fr.ExecBlock(s.Body)
			if err != nil || res.Returned {
				return res, err
			}
		}

	case *AssignStmt:
		v, err := fr.Eval(s.Value)
		if err != nil {
			return Result{}, err
		}
		return Result{}, fr.assign(s, v)

	case *EvaluateStmt:
		v, err := fr.Eval(s.X)
		if err != nil {
			return Result{}, err
		}
		if fr.Hooks.Evaluate != nil {
			if err := fr.Hooks.Evaluate(fr, s.Attrs, v, s); err != nil {
				return Result{}, wrap(err, s.SrcRange)
			}
		}
		return Result{}, nil

	case *ReturnStmt:
		if s.Value == nil {
			return Result{Returned: true, Value: None}, nil
		}
		v, err := fr.Eval(s.Value)
		if err != nil {
			return Result{}, err
		}
		return Result{Returned: true, Value: v}, nil

	case *FuncDef:
		fr.Locals[s.Name] = CallableVal(&Function{Def: s, Scope: fr})
		return Result{}, nil

	case *CustomBlock:
		hook := fr.customBlockHook()
		if hook == nil {
			return Result{}, errorf(s.SrcRange, "%s block is not allowed here", s.Keyword)
		}
		if err := hook(fr, s); err != nil {
			return Result{}, wrap(err, s.SrcRange)
		}
		return Result{}, nil
	}
	return Result{}, errorf(s.Range(), "unsupported statement %T", s)
}

func (fr *Frame) customBlockHook() func(*Frame, *CustomBlock) error {
	for f := fr; f != nil; f = f.Outer {
		if f.Hooks.CustomBlock != nil {
			return f.Hooks.CustomBlock
		}
	}
	return nil
}

func (fr *Frame) assign(s *AssignStmt, v cty.Value) error {
	switch t := s.Target.(type) {
	case *NameExpr:
		if fr.Hooks.LocalAssign != nil {
			handled, err := fr.Hooks.LocalAssign(fr, s.Attrs, t.Name, v)
			if err != nil {
				return wrap(err, s.SrcRange)
			}
			if handled {
				return nil
			}
		}
		fr.Set(t.Name, v)
		return nil
	case *PropertyExpr:
		objVal, err := fr.Eval(t.X)
		if err != nil {
			return err
		}
		name := fr.Interp.Labels.View(t.Name)
		obj, ok := AsObject(objVal)
		if !ok {
			return errorf(t.SrcRange, "cannot set property %q on %s", name, TypeName(objVal))
		}
		setter, ok := obj.(PropertySetter)
		if !ok {
			return errorf(t.SrcRange, "property %q is read-only", name)
		}
		if err := setter.SetProperty(name, v); err != nil {
			return wrap(err, s.SrcRange)
		}
		return nil
	}
	return errorf(s.SrcRange, "invalid assignment target")
}

func (fr *Frame) evalCond(x Expr) (bool, error) {
	v, err := fr.Eval(x)
	if err != nil {
		return false, err
	}
	b, ok := AsBool(v)
	if !ok {
		return false, errorf(x.Range(), "condition must be a bool, got %s", TypeName(v))
	}
	return b, nil
}

// Function is a script defined function. Scope is the frame the
// definition was executed in, or nil for functions the host binds.
type Function struct {
	Def   *FuncDef
	Scope *Frame
}

// Call runs the function body in a fresh frame. Names the caller's host
// resolves stay resolvable, and custom blocks inside the body are handed
// to the caller's custom block hook.
func (f *Function) Call(caller *Frame, args []cty.Value) (cty.Value, error) {
	in := caller.Interp
	name := in.Labels.View(f.Def.Name)
	if len(args) != len(f.Def.Params) {
		return None, fmt.Errorf("%s expects %d arguments, got %d", name, len(f.Def.Params), len(args))
	}
	if caller.depth+1 > in.MaxDepth {
		return None, fmt.Errorf("call depth exceeded calling %s", name)
	}
	fr := &Frame{
		Interp: in,
		Locals: make(map[label.Label]cty.Value, len(args)),
		Outer:  f.Scope,
		Hooks:  Hooks{CustomBlock: caller.customBlockHook()},
		depth:  caller.depth + 1,
	}
	for f := caller; f != nil; f = f.Outer {
		if f.Resolve != nil {
			fr.Resolve = f.Resolve
			break
		}
	}
	for i, p := range f.Def.Params {
		fr.Locals[p] = args[i]
	}
	res, err := fr.ExecBlock(f.Def.Body)
	if err != nil {
		return None, err
	}
	if res.Returned {
		return res.Value, nil
	}
	return None, nil
}
