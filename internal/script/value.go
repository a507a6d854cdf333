// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// None is the value of expressions that produce nothing, such as a call
// to a function without a return statement.
var None = cty.NullVal(cty.DynamicPseudoType)

// Object is a host value scripts can look properties up on.
type Object interface {
	Property(name string) (cty.Value, bool)
}

// PropertySetter is implemented by objects that accept `obj.name = value`.
type PropertySetter interface {
	SetProperty(name string, v cty.Value) error
}

// Callable is anything a script can call.
type Callable interface {
	Call(fr *Frame, args []cty.Value) (cty.Value, error)
}

var (
	objectType   = cty.Capsule("object", reflect.TypeOf((*Object)(nil)).Elem())
	callableType = cty.Capsule("function", reflect.TypeOf((*Callable)(nil)).Elem())
)

// ObjectVal wraps o as a script value.
func ObjectVal(o Object) cty.Value {
	return cty.CapsuleVal(objectType, &o)
}

// AsObject unwraps a value created by ObjectVal.
func AsObject(v cty.Value) (Object, bool) {
	if v.IsNull() || !v.Type().Equals(objectType) {
		return nil, false
	}
	return *(v.EncapsulatedValue().(*Object)), true
}

// CallableVal wraps c as a script value.
func CallableVal(c Callable) cty.Value {
	return cty.CapsuleVal(callableType, &c)
}

// AsCallable unwraps a value created by CallableVal or FunctionVal.
func AsCallable(v cty.Value) (Callable, bool) {
	if v.IsNull() || !v.Type().Equals(callableType) {
		return nil, false
	}
	return *(v.EncapsulatedValue().(*Callable)), true
}

// FunctionVal exposes a cty function to scripts.
func FunctionVal(f function.Function) cty.Value {
	return CallableVal(ctyFunc{f})
}

type ctyFunc struct {
	f function.Function
}

// Call converts the arguments to the parameter types first, so list
// literals can be passed where a list(string) is expected.
func (c ctyFunc) Call(_ *Frame, args []cty.Value) (cty.Value, error) {
	params := c.f.Params()
	varParam := c.f.VarParam()
	conv := make([]cty.Value, len(args))
	for i, arg := range args {
		var param *function.Parameter
		switch {
		case i < len(params):
			param = &params[i]
		case varParam != nil:
			param = varParam
		}
		if param == nil {
			conv[i] = arg
			continue
		}
		v, err := convert.Convert(arg, param.Type)
		if err != nil {
			return None, fmt.Errorf("argument %d (%s): %w", i+1, param.Name, err)
		}
		conv[i] = v
	}
	return c.f.Call(conv)
}

// HostFunc adapts a Go function to Callable.
type HostFunc func(fr *Frame, args []cty.Value) (cty.Value, error)

func (f HostFunc) Call(fr *Frame, args []cty.Value) (cty.Value, error) {
	return f(fr, args)
}

// AsString returns the Go string held by v.
func AsString(v cty.Value) (string, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.String) {
		return "", false
	}
	return v.AsString(), true
}

// AsBool returns the Go bool held by v.
func AsBool(v cty.Value) (bool, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(cty.Bool) {
		return false, false
	}
	return v.True(), true
}

// AsStrings flattens a string or a tuple/list of strings.
func AsStrings(v cty.Value) ([]string, bool) {
	if s, ok := AsString(v); ok {
		return []string{s}, true
	}
	if v.IsNull() || !v.IsKnown() {
		return nil, false
	}
	ty := v.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, false
	}
	var out []string
	for _, e := range v.AsValueSlice() {
		s, ok := AsString(e)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// TypeName describes the type of v for error messages.
func TypeName(v cty.Value) string {
	if v.IsNull() {
		return "none"
	}
	switch {
	case v.Type().Equals(objectType):
		return "object"
	case v.Type().Equals(callableType):
		return "function"
	case v.Type().IsTupleType(), v.Type().IsListType():
		return "list"
	}
	return v.Type().FriendlyName()
}

// ToText formats a value for string interpolation.
func ToText(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("cannot use none in a string")
	}
	switch {
	case v.Type().Equals(cty.String):
		return v.AsString(), nil
	case v.Type().Equals(cty.Bool):
		if v.True() {
			return "true", nil
		}
		return "false", nil
	case v.Type().Equals(cty.Number):
		return v.AsBigFloat().Text('f', -1), nil
	}
	return "", fmt.Errorf("cannot use %s in a string", TypeName(v))
}

func truncate(v cty.Value) cty.Value {
	i, _ := v.AsBigFloat().Int(nil)
	return cty.NumberVal(new(big.Float).SetInt(i))
}

func isZero(v cty.Value) bool {
	return v.AsBigFloat().Sign() == 0
}
