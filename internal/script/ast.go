// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"github.com/goplus/plybuild/pkgs/label"
	"github.com/hashicorp/hcl/v2"
)

// File is a parsed module script.
type File struct {
	Name  string
	Body  *Block
	Diags hcl.Diagnostics
}

// Node is implemented by every statement and expression.
type Node interface {
	Range() hcl.Range
}

// Visibility is the leading public/private marker of a statement.
type Visibility int

const (
	VisDefault Visibility = iota
	VisPublic
	VisPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisPublic:
		return "public"
	case VisPrivate:
		return "private"
	}
	return ""
}

// Attributes is per-statement metadata handed to hooks.
type Attributes struct {
	Visibility Visibility
}

// IsPublic reports whether the statement was marked public.
func (a Attributes) IsPublic() bool {
	return a.Visibility == VisPublic
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Block is a sequence of statements.
type Block struct {
	Stmts    []Stmt
	SrcRange hcl.Range
}

func (b *Block) Range() hcl.Range { return b.SrcRange }

type IfStmt struct {
	Cond Expr
	Then *Block
	// Else is nil, a *Block or an *IfStmt.
	Else     Stmt
	SrcRange hcl.Range
}

type WhileStmt struct {
	Cond     Expr
	Body     *Block
	SrcRange hcl.Range
}

// AssignStmt assigns to a local name (*NameExpr) or a property (*PropertyExpr).
type AssignStmt struct {
	Attrs    Attributes
	Target   Expr
	Value    Expr
	SrcRange hcl.Range
}

// EvaluateStmt is a bare expression statement.
type EvaluateStmt struct {
	Attrs    Attributes
	X        Expr
	SrcRange hcl.Range
}

type ReturnStmt struct {
	// Value is nil for a bare return.
	Value    Expr
	SrcRange hcl.Range
}

type FuncDef struct {
	Name     label.Label
	Params   []label.Label
	Body     *Block
	SrcRange hcl.Range
}

// BlockKind identifies a custom block keyword registered in a Grammar.
type BlockKind int

// CustomBlock is a host defined block of the form <keyword> ["name"] { ... }.
type CustomBlock struct {
	Attrs   Attributes
	Kind    BlockKind
	Keyword string
	// Name is nil when the block has no name.
	Name     Expr
	Body     *Block
	SrcRange hcl.Range
}

// NameText returns the block name when it is a plain string literal.
func (cb *CustomBlock) NameText() (string, bool) {
	if cb.Name == nil {
		return "", false
	}
	return LiteralText(cb.Name)
}

func (*Block) stmtNode()        {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*AssignStmt) stmtNode()   {}
func (*EvaluateStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*FuncDef) stmtNode()      {}
func (*CustomBlock) stmtNode()  {}

func (s *IfStmt) Range() hcl.Range       { return s.SrcRange }
func (s *WhileStmt) Range() hcl.Range    { return s.SrcRange }
func (s *AssignStmt) Range() hcl.Range   { return s.SrcRange }
func (s *EvaluateStmt) Range() hcl.Range { return s.SrcRange }
func (s *ReturnStmt) Range() hcl.Range   { return s.SrcRange }
func (s *FuncDef) Range() hcl.Range      { return s.SrcRange }
func (s *CustomBlock) Range() hcl.Range  { return s.SrcRange }

type NameExpr struct {
	Name     label.Label
	SrcRange hcl.Range
}

type IntLit struct {
	Value    int64
	SrcRange hcl.Range
}

// StringPart is either literal text or an interpolated expression.
type StringPart struct {
	Text string
	X    Expr
}

// StringExpr is a possibly interpolated string.
type StringExpr struct {
	Parts    []StringPart
	SrcRange hcl.Range
}

type PropertyExpr struct {
	X        Expr
	Name     label.Label
	SrcRange hcl.Range
}

// Op is a unary or binary operator.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpMod Op = "%"
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLe  Op = "<="
	OpGt  Op = ">"
	OpGe  Op = ">="
	OpAnd Op = "&&"
	OpOr  Op = "||"
	OpNot Op = "!"
	OpNeg Op = "neg"
)

type BinaryExpr struct {
	Op       Op
	L, R     Expr
	SrcRange hcl.Range
}

type UnaryExpr struct {
	Op       Op
	X        Expr
	SrcRange hcl.Range
}

type CallExpr struct {
	Fn       Expr
	Args     []Expr
	SrcRange hcl.Range
}

type ListExpr struct {
	Elems    []Expr
	SrcRange hcl.Range
}

// ErrorExpr stands in for an expression that failed to parse. Evaluating
// it is an error.
type ErrorExpr struct {
	Msg      string
	SrcRange hcl.Range
}

func (*NameExpr) exprNode()     {}
func (*IntLit) exprNode()       {}
func (*StringExpr) exprNode()   {}
func (*PropertyExpr) exprNode() {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*ListExpr) exprNode()     {}
func (*ErrorExpr) exprNode()    {}

func (x *NameExpr) Range() hcl.Range     { return x.SrcRange }
func (x *IntLit) Range() hcl.Range       { return x.SrcRange }
func (x *StringExpr) Range() hcl.Range   { return x.SrcRange }
func (x *PropertyExpr) Range() hcl.Range { return x.SrcRange }
func (x *BinaryExpr) Range() hcl.Range   { return x.SrcRange }
func (x *UnaryExpr) Range() hcl.Range    { return x.SrcRange }
func (x *CallExpr) Range() hcl.Range     { return x.SrcRange }
func (x *ListExpr) Range() hcl.Range     { return x.SrcRange }
func (x *ErrorExpr) Range() hcl.Range    { return x.SrcRange }

// LiteralText returns the text of a string expression without
// interpolations.
func LiteralText(x Expr) (string, bool) {
	s, ok := x.(*StringExpr)
	if !ok {
		return "", false
	}
	text := ""
	for _, p := range s.Parts {
		if p.X != nil {
			return "", false
		}
		text += p.Text
	}
	return text, true
}

// DottedName returns "a.b.c" for a chain of name and property lookups.
func DottedName(labels *label.Table, x Expr) (string, bool) {
	switch x := x.(type) {
	case *NameExpr:
		return labels.View(x.Name), true
	case *PropertyExpr:
		prefix, ok := DottedName(labels, x.X)
		if !ok {
			return "", false
		}
		return prefix + "." + labels.View(x.Name), true
	}
	return "", false
}
