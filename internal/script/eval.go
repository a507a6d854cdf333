// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Eval evaluates an expression in fr.
func (fr *Frame) Eval(x Expr) (cty.Value, error) {
	switch x := x.(type) {
	case *NameExpr:
		v, ok := fr.Lookup(x.Name)
		if !ok {
			return None, errorf(x.SrcRange, "unknown name %q", fr.Interp.Labels.View(x.Name))
		}
		return v, nil

	case *IntLit:
		return cty.NumberIntVal(x.Value), nil

	case *StringExpr:
		var b strings.Builder
		for _, p := range x.Parts {
			if p.X == nil {
				b.WriteString(p.Text)
				continue
			}
			v, err := fr.Eval(p.X)
			if err != nil {
				return None, err
			}
			text, err := ToText(v)
			if err != nil {
				return None, wrap(err, p.X.Range())
			}
			b.WriteString(text)
		}
		return cty.StringVal(b.String()), nil

	case *PropertyExpr:
		objVal, err := fr.Eval(x.X)
		if err != nil {
			return None, err
		}
		name := fr.Interp.Labels.View(x.Name)
		obj, ok := AsObject(objVal)
		if !ok {
			return None, errorf(x.SrcRange, "%s has no property %q", TypeName(objVal), name)
		}
		v, ok := obj.Property(name)
		if !ok {
			return None, errorf(x.SrcRange, "unknown property %q", name)
		}
		return v, nil

	case *BinaryExpr:
		return fr.binary(x)

	case *UnaryExpr:
		v, err := fr.Eval(x.X)
		if err != nil {
			return None, err
		}
		switch {
		case x.Op == OpNot && !v.IsNull() && v.Type().Equals(cty.Bool):
			return v.Not(), nil
		case x.Op == OpNeg && !v.IsNull() && v.Type().Equals(cty.Number):
			return v.Negate(), nil
		}
		op := string(x.Op)
		if x.Op == OpNeg {
			op = "-"
		}
		return None, errorf(x.SrcRange, "operator %s is not defined for %s", op, TypeName(v))

	case *CallExpr:
		fnVal, err := fr.Eval(x.Fn)
		if err != nil {
			return None, err
		}
		c, ok := AsCallable(fnVal)
		if !ok {
			return None, errorf(x.Fn.Range(), "cannot call %s", TypeName(fnVal))
		}
		args := make([]cty.Value, len(x.Args))
		for i, a := range x.Args {
			if args[i], err = fr.Eval(a); err != nil {
				return None, err
			}
		}
		v, err := c.Call(fr, args)
		if err != nil {
			return None, wrap(err, x.SrcRange)
		}
		return v, nil

	case *ListExpr:
		if len(x.Elems) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x.Elems))
		for i, e := range x.Elems {
			v, err := fr.Eval(e)
			if err != nil {
				return None, err
			}
			elems[i] = v
		}
		return cty.TupleVal(elems), nil

	case *ErrorExpr:
		return None, errorf(x.SrcRange, "invalid expression: %s", x.Msg)
	}
	return None, errorf(x.Range(), "unsupported expression %T", x)
}

func (fr *Frame) binary(x *BinaryExpr) (cty.Value, error) {
	l, err := fr.Eval(x.L)
	if err != nil {
		return None, err
	}
	if x.Op == OpAnd || x.Op == OpOr {
		lb, ok := AsBool(l)
		if !ok {
			return None, errorf(x.L.Range(), "operand of %s must be a bool, got %s", x.Op, TypeName(l))
		}
		if (x.Op == OpAnd && !lb) || (x.Op == OpOr && lb) {
			return cty.BoolVal(lb), nil
		}
		r, err := fr.Eval(x.R)
		if err != nil {
			return None, err
		}
		rb, ok := AsBool(r)
		if !ok {
			return None, errorf(x.R.Range(), "operand of %s must be a bool, got %s", x.Op, TypeName(r))
		}
		return cty.BoolVal(rb), nil
	}

	r, err := fr.Eval(x.R)
	if err != nil {
		return None, err
	}
	switch x.Op {
	case OpEq:
		return cty.BoolVal(equal(l, r)), nil
	case OpNe:
		return cty.BoolVal(!equal(l, r)), nil
	}

	if !l.IsNull() && !r.IsNull() {
		switch {
		case l.Type().Equals(cty.Number) && r.Type().Equals(cty.Number):
			switch x.Op {
			case OpAdd:
				return l.Add(r), nil
			case OpSub:
				return l.Subtract(r), nil
			case OpMul:
				return l.Multiply(r), nil
			case OpDiv:
				if isZero(r) {
					return None, errorf(x.SrcRange, "division by zero")
				}
				return truncate(l.Divide(r)), nil
			case OpMod:
				if isZero(r) {
					return None, errorf(x.SrcRange, "division by zero")
				}
				return l.Modulo(r), nil
			case OpLt:
				return l.LessThan(r), nil
			case OpLe:
				return l.LessThanOrEqualTo(r), nil
			case OpGt:
				return l.GreaterThan(r), nil
			case OpGe:
				return l.GreaterThanOrEqualTo(r), nil
			}
		case l.Type().Equals(cty.String) && r.Type().Equals(cty.String):
			ls, rs := l.AsString(), r.AsString()
			switch x.Op {
			case OpAdd:
				return cty.StringVal(ls + rs), nil
			case OpLt:
				return cty.BoolVal(ls < rs), nil
			case OpLe:
				return cty.BoolVal(ls <= rs), nil
			case OpGt:
				return cty.BoolVal(ls > rs), nil
			case OpGe:
				return cty.BoolVal(ls >= rs), nil
			}
		case l.Type().IsTupleType() && r.Type().IsTupleType() && x.Op == OpAdd:
			elems := append(l.AsValueSlice(), r.AsValueSlice()...)
			if len(elems) == 0 {
				return cty.EmptyTupleVal, nil
			}
			return cty.TupleVal(elems), nil
		}
	}
	return None, errorf(x.SrcRange, "operator %s is not defined for %s and %s", x.Op, TypeName(l), TypeName(r))
}

func equal(l, r cty.Value) bool {
	if l.IsNull() || r.IsNull() {
		return l.IsNull() && r.IsNull()
	}
	if lo, ok := AsObject(l); ok {
		ro, ok := AsObject(r)
		return ok && lo == ro
	}
	if !l.Type().Equals(r.Type()) {
		return false
	}
	return l.RawEquals(r)
}
