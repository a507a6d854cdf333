// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// InstallStdlib binds the general purpose builtins: true, false and the
// string and list helpers from the cty standard library.
func (in *Interpreter) InstallStdlib() {
	in.SetBuiltin("true", cty.True)
	in.SetBuiltin("false", cty.False)

	in.SetBuiltin("upper", FunctionVal(stdlib.UpperFunc))
	in.SetBuiltin("lower", FunctionVal(stdlib.LowerFunc))
	in.SetBuiltin("trimspace", FunctionVal(stdlib.TrimSpaceFunc))
	in.SetBuiltin("replace", FunctionVal(stdlib.ReplaceFunc))
	in.SetBuiltin("join", FunctionVal(stdlib.JoinFunc))
	in.SetBuiltin("split", FunctionVal(stdlib.SplitFunc))
	in.SetBuiltin("format", FunctionVal(stdlib.FormatFunc))
	in.SetBuiltin("contains", FunctionVal(stdlib.ContainsFunc))
	in.SetBuiltin("length", FunctionVal(stdlib.LengthFunc))
	in.SetBuiltin("str", CallableVal(HostFunc(toStr)))
}

func toStr(_ *Frame, args []cty.Value) (cty.Value, error) {
	if len(args) != 1 {
		return None, fmt.Errorf("str expects 1 argument, got %d", len(args))
	}
	text, err := ToText(args[0])
	if err != nil {
		return None, err
	}
	return cty.StringVal(text), nil
}
