// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/goplus/plybuild/pkgs/label"
	"github.com/hashicorp/hcl/v2"
)

const maxErrors = 50

// two character operators
const (
	tokEq = -(iota + 100)
	tokNe
	tokLe
	tokGe
	tokAndAnd
	tokOrOr
)

// funcScope marks a function body on the parent stack. Custom blocks are
// accepted anywhere inside a function and checked when the function runs.
const funcScope = "\x00fn"

var reserved = map[string]bool{
	"if": true, "else": true, "while": true, "fn": true,
	"return": true, "public": true, "private": true,
}

// Parse parses a module script. Diagnostics are collected instead of
// stopping at the first error; the returned File holds whatever could be
// recovered and is never nil.
func Parse(filename string, src []byte, labels *label.Table, g *Grammar) (*File, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	p := newParser(filename, string(src), hcl.InitialPos, labels, g, &diags)
	body := p.parseStmts(scanner.EOF)
	body.SrcRange.Start = hcl.InitialPos
	return &File{Name: filename, Body: body, Diags: diags}, diags
}

type parser struct {
	sc      scanner.Scanner
	file    string
	labels  *label.Table
	grammar *Grammar
	// base is the file position of the first byte of the input
	base hcl.Pos

	tok     rune
	prevTok rune
	text    string
	pos     hcl.Pos // start of tok
	end     hcl.Pos // end of the last consumed token

	parents []string
	diags   *hcl.Diagnostics
	aborted bool
}

func newParser(filename, src string, base hcl.Pos, labels *label.Table, g *Grammar, diags *hcl.Diagnostics) *parser {
	p := &parser{
		file:    filename,
		labels:  labels,
		grammar: g,
		base:    base,
		diags:   diags,
		end:     base,
	}
	p.sc.Init(strings.NewReader(src))
	p.sc.Filename = filename
	p.sc.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanStrings |
		scanner.ScanRawStrings | scanner.ScanComments | scanner.SkipComments
	p.sc.Error = func(sc *scanner.Scanner, msg string) {
		pos := p.toPos(sc.Pos())
		p.errorf(hcl.Range{Filename: filename, Start: pos, End: pos}, "%s", msg)
	}
	p.next()
	return p
}

func (p *parser) toPos(sp scanner.Position) hcl.Pos {
	col := sp.Column
	if sp.Line <= 1 {
		col += p.base.Column - 1
	}
	return hcl.Pos{
		Line:   p.base.Line + sp.Line - 1,
		Column: col,
		Byte:   p.base.Byte + sp.Offset,
	}
}

func (p *parser) next() {
	p.prevTok = p.tok
	p.end = p.toPos(p.sc.Pos())
	if p.aborted {
		p.tok = scanner.EOF
		return
	}
	p.tok = p.sc.Scan()
	p.pos = p.toPos(p.sc.Position)
	p.text = p.sc.TokenText()
	switch p.tok {
	case '=':
		p.combine('=', tokEq, "==")
	case '!':
		p.combine('=', tokNe, "!=")
	case '<':
		p.combine('=', tokLe, "<=")
	case '>':
		p.combine('=', tokGe, ">=")
	case '&':
		p.combine('&', tokAndAnd, "&&")
	case '|':
		p.combine('|', tokOrOr, "||")
	}
}

func (p *parser) combine(follow, tok rune, text string) {
	if p.sc.Peek() == follow {
		p.sc.Next()
		p.tok = tok
		p.text = text
	}
}

func (p *parser) tokRange() hcl.Range {
	return hcl.Range{Filename: p.file, Start: p.pos, End: p.toPos(p.sc.Pos())}
}

func (p *parser) rangeFrom(start hcl.Pos) hcl.Range {
	return hcl.Range{Filename: p.file, Start: start, End: p.end}
}

func (p *parser) tokDesc() string {
	switch p.tok {
	case scanner.EOF:
		return "end of file"
	case scanner.Ident, scanner.Int, scanner.String, scanner.RawString:
		return strconv.Quote(p.text)
	}
	return "'" + p.text + "'"
}

func (p *parser) errorf(rng hcl.Range, format string, args ...any) {
	if p.aborted {
		return
	}
	if len(*p.diags) >= maxErrors {
		*p.diags = append(*p.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "too many errors",
			Subject:  rng.Ptr(),
		})
		p.aborted = true
		p.tok = scanner.EOF
		return
	}
	*p.diags = append(*p.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	})
}

func (p *parser) expect(tok rune, what string) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	p.errorf(p.tokRange(), "expected %s, found %s", what, p.tokDesc())
	return false
}

// sync skips the rest of a broken statement: up to and including the next
// ';' or balanced '}', or up to the '}' closing the enclosing block.
func (p *parser) sync() {
	depth := 0
	for {
		switch p.tok {
		case scanner.EOF:
			return
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.next()
				return
			}
		case ';':
			if depth == 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

func (p *parser) parent() string {
	if len(p.parents) == 0 {
		return FileScope
	}
	return p.parents[len(p.parents)-1]
}

func (p *parser) inFunc() bool {
	for _, k := range p.parents {
		if k == funcScope {
			return true
		}
	}
	return false
}

func (p *parser) parseStmts(end rune) *Block {
	b := &Block{SrcRange: hcl.Range{Filename: p.file, Start: p.pos}}
	for p.tok != end && p.tok != scanner.EOF {
		before := len(*p.diags)
		start := p.pos.Byte
		if s := p.parseStmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
		if len(*p.diags) > before && p.prevTok != ';' && p.prevTok != '}' {
			p.sync()
		}
		if p.pos.Byte == start && p.tok != end && p.tok != scanner.EOF {
			p.next()
		}
	}
	b.SrcRange.End = p.end
	return b
}

func (p *parser) parseBraced() *Block {
	if !p.expect('{', "'{'") {
		return &Block{SrcRange: p.tokRange()}
	}
	b := p.parseStmts('}')
	p.expect('}', "'}'")
	return b
}

func (p *parser) parseStmt() Stmt {
	start := p.pos
	var attrs Attributes
	if p.tok == scanner.Ident && (p.text == "public" || p.text == "private") {
		attrs.Visibility = VisPrivate
		if p.text == "public" {
			attrs.Visibility = VisPublic
		}
		p.next()
		if p.tok == ':' {
			p.next()
		}
	}

	if p.tok == scanner.Ident {
		switch p.text {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "fn":
			return p.parseFunc()
		case "return":
			return p.parseReturn()
		case "else":
			p.errorf(p.tokRange(), "else without if")
			p.next()
			return nil
		case "public", "private":
			p.errorf(p.tokRange(), "duplicate visibility marker")
			return nil
		}
		word, wordRange := p.text, p.tokRange()
		p.next()
		if p.tok == '{' || p.tok == scanner.String || p.tok == scanner.RawString {
			return p.parseCustomBlock(word, wordRange, attrs)
		}
		x := p.parsePostfix(&NameExpr{Name: p.labels.InsertOrFind(word), SrcRange: wordRange})
		x = p.parseBinaryRHS(1, x)
		return p.finishSimpleStmt(start, attrs, x)
	}
	x := p.parseExpr()
	return p.finishSimpleStmt(start, attrs, x)
}

func (p *parser) finishSimpleStmt(start hcl.Pos, attrs Attributes, x Expr) Stmt {
	if p.tok == '=' {
		switch x.(type) {
		case *NameExpr, *PropertyExpr:
		default:
			p.errorf(x.Range(), "cannot assign to this expression")
		}
		p.next()
		v := p.parseExpr()
		p.endStmt()
		return &AssignStmt{Attrs: attrs, Target: x, Value: v, SrcRange: p.rangeFrom(start)}
	}
	p.endStmt()
	return &EvaluateStmt{Attrs: attrs, X: x, SrcRange: p.rangeFrom(start)}
}

// endStmt accepts the terminating ';'. It may be omitted before '}'.
func (p *parser) endStmt() {
	switch p.tok {
	case ';':
		p.next()
	case '}', scanner.EOF:
	default:
		p.errorf(p.tokRange(), "expected ';', found %s", p.tokDesc())
	}
}

func (p *parser) parseIf() Stmt {
	start := p.pos
	p.next()
	s := &IfStmt{Cond: p.parseExpr()}
	s.Then = p.parseBraced()
	if p.tok == scanner.Ident && p.text == "else" {
		p.next()
		if p.tok == scanner.Ident && p.text == "if" {
			s.Else = p.parseIf()
		} else {
			s.Else = p.parseBraced()
		}
	}
	s.SrcRange = p.rangeFrom(start)
	return s
}

func (p *parser) parseWhile() Stmt {
	start := p.pos
	p.next()
	s := &WhileStmt{Cond: p.parseExpr()}
	s.Body = p.parseBraced()
	s.SrcRange = p.rangeFrom(start)
	return s
}

func (p *parser) parseFunc() Stmt {
	start := p.pos
	if len(p.parents) > 0 {
		p.errorf(p.tokRange(), "functions can only be defined at file scope")
	}
	p.next()
	if p.tok != scanner.Ident || reserved[p.text] {
		p.errorf(p.tokRange(), "expected function name, found %s", p.tokDesc())
		return nil
	}
	def := &FuncDef{Name: p.labels.InsertOrFind(p.text)}
	p.next()
	if !p.expect('(', "'('") {
		return nil
	}
	for p.tok == scanner.Ident {
		def.Params = append(def.Params, p.labels.InsertOrFind(p.text))
		p.next()
		if p.tok != ',' {
			break
		}
		p.next()
	}
	if !p.expect(')', "')'") {
		return nil
	}
	p.parents = append(p.parents, funcScope)
	def.Body = p.parseBraced()
	p.parents = p.parents[:len(p.parents)-1]
	def.SrcRange = p.rangeFrom(start)
	return def
}

func (p *parser) parseReturn() Stmt {
	start := p.pos
	p.next()
	s := &ReturnStmt{}
	if p.tok != ';' && p.tok != '}' && p.tok != scanner.EOF {
		s.Value = p.parseExpr()
	}
	p.endStmt()
	s.SrcRange = p.rangeFrom(start)
	return s
}

func (p *parser) parseCustomBlock(word string, wordRange hcl.Range, attrs Attributes) Stmt {
	rule, known := p.grammar.Lookup(word)
	switch {
	case !known:
		p.errorf(wordRange, "unknown block type %q", word)
	case p.inFunc():
	case !rule.allowedIn(p.parent()):
		if p.parent() == FileScope {
			p.errorf(wordRange, "%q block is not allowed at file scope", word)
		} else {
			p.errorf(wordRange, "%q block is not allowed inside %q", word, p.parent())
		}
	}

	cb := &CustomBlock{Attrs: attrs, Keyword: word}
	if known {
		cb.Kind = rule.Kind
	}
	if p.tok == scanner.String || p.tok == scanner.RawString {
		cb.Name = p.parsePrimary()
		if known && rule.Name == NoName {
			p.errorf(cb.Name.Range(), "%q block does not take a name", word)
		}
	} else if known && rule.Name == NameRequired {
		p.errorf(wordRange, "%q block requires a name", word)
	}

	p.parents = append(p.parents, word)
	cb.Body = p.parseBraced()
	p.parents = p.parents[:len(p.parents)-1]
	cb.SrcRange = p.rangeFrom(wordRange.Start)
	if !known {
		return nil
	}
	return cb
}

func (p *parser) parseExpr() Expr {
	return p.parseBinaryRHS(1, p.parseUnary())
}

func binaryOp(tok rune) (Op, int) {
	switch tok {
	case tokOrOr:
		return OpOr, 1
	case tokAndAnd:
		return OpAnd, 2
	case tokEq:
		return OpEq, 3
	case tokNe:
		return OpNe, 3
	case '<':
		return OpLt, 3
	case tokLe:
		return OpLe, 3
	case '>':
		return OpGt, 3
	case tokGe:
		return OpGe, 3
	case '+':
		return OpAdd, 4
	case '-':
		return OpSub, 4
	case '*':
		return OpMul, 5
	case '/':
		return OpDiv, 5
	case '%':
		return OpMod, 5
	}
	return "", 0
}

func (p *parser) parseBinaryRHS(minPrec int, lhs Expr) Expr {
	for {
		op, prec := binaryOp(p.tok)
		if prec == 0 || prec < minPrec {
			return lhs
		}
		p.next()
		rhs := p.parseUnary()
		for {
			_, next := binaryOp(p.tok)
			if next <= prec {
				break
			}
			rhs = p.parseBinaryRHS(prec+1, rhs)
		}
		lhs = &BinaryExpr{Op: op, L: lhs, R: rhs, SrcRange: hcl.RangeBetween(lhs.Range(), rhs.Range())}
	}
}

func (p *parser) parseUnary() Expr {
	start := p.pos
	switch p.tok {
	case '-':
		p.next()
		x := p.parseUnary()
		return &UnaryExpr{Op: OpNeg, X: x, SrcRange: p.rangeFrom(start)}
	case '!':
		p.next()
		x := p.parseUnary()
		return &UnaryExpr{Op: OpNot, X: x, SrcRange: p.rangeFrom(start)}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(x Expr) Expr {
	for {
		switch p.tok {
		case '.':
			p.next()
			if p.tok != scanner.Ident {
				p.errorf(p.tokRange(), "expected property name, found %s", p.tokDesc())
				return x
			}
			rng := hcl.RangeBetween(x.Range(), p.tokRange())
			x = &PropertyExpr{X: x, Name: p.labels.InsertOrFind(p.text), SrcRange: rng}
			p.next()
		case '(':
			p.next()
			var args []Expr
			for p.tok != ')' && p.tok != scanner.EOF {
				args = append(args, p.parseExpr())
				if p.tok != ',' {
					break
				}
				p.next()
			}
			p.expect(')', "')'")
			x = &CallExpr{Fn: x, Args: args, SrcRange: hcl.Range{Filename: p.file, Start: x.Range().Start, End: p.end}}
		default:
			return x
		}
	}
}

func (p *parser) parsePrimary() Expr {
	rng := p.tokRange()
	switch p.tok {
	case scanner.Ident:
		if reserved[p.text] {
			break
		}
		x := &NameExpr{Name: p.labels.InsertOrFind(p.text), SrcRange: rng}
		p.next()
		return x
	case scanner.Int:
		v, err := strconv.ParseInt(p.text, 0, 64)
		if err != nil {
			p.errorf(rng, "invalid integer literal %s", p.text)
		}
		p.next()
		return &IntLit{Value: v, SrcRange: rng}
	case scanner.String:
		x := p.parseInterpolated(p.text, rng)
		p.next()
		return x
	case scanner.RawString:
		text := strings.TrimSuffix(strings.TrimPrefix(p.text, "`"), "`")
		p.next()
		return &StringExpr{Parts: []StringPart{{Text: text}}, SrcRange: rng}
	case '(':
		p.next()
		x := p.parseExpr()
		p.expect(')', "')'")
		return x
	case '[':
		start := p.pos
		p.next()
		l := &ListExpr{}
		for p.tok != ']' && p.tok != scanner.EOF {
			l.Elems = append(l.Elems, p.parseExpr())
			if p.tok != ',' {
				break
			}
			p.next()
		}
		p.expect(']', "']'")
		l.SrcRange = p.rangeFrom(start)
		return l
	}
	msg := "unexpected " + p.tokDesc()
	p.errorf(rng, "%s", msg)
	return &ErrorExpr{Msg: msg, SrcRange: rng}
}

// parseInterpolated splits a quoted literal into text and ${expr} parts.
// "$${" stands for a literal "${". A malformed interpolation becomes an
// ErrorExpr part so the rest of the file is still parsed.
func (p *parser) parseInterpolated(lit string, rng hcl.Range) Expr {
	raw := strings.TrimSuffix(strings.TrimPrefix(lit, `"`), `"`)
	s := &StringExpr{SrcRange: rng}
	base := rng.Start
	at := func(i int) hcl.Pos {
		// string literals never span lines
		return hcl.Pos{Line: base.Line, Column: base.Column + 1 + i, Byte: base.Byte + 1 + i}
	}
	flush := func(from, to int) {
		if from >= to {
			return
		}
		text, err := strconv.Unquote(`"` + raw[from:to] + `"`)
		if err != nil {
			p.errorf(hcl.Range{Filename: p.file, Start: at(from), End: at(to)}, "invalid escape sequence in string")
			text = raw[from:to]
		}
		s.Parts = append(s.Parts, StringPart{Text: text})
	}

	chunk := 0
	for i := 0; i < len(raw); {
		switch {
		case raw[i] == '\\':
			i += 2
		case strings.HasPrefix(raw[i:], "$${"):
			flush(chunk, i)
			s.Parts = append(s.Parts, StringPart{Text: "${"})
			i += 3
			chunk = i
		case strings.HasPrefix(raw[i:], "${"):
			flush(chunk, i)
			end := matchBrace(raw, i+2)
			if end < 0 {
				r := hcl.Range{Filename: p.file, Start: at(i), End: rng.End}
				p.errorf(r, "unterminated interpolation in string")
				s.Parts = append(s.Parts, StringPart{X: &ErrorExpr{Msg: "unterminated interpolation", SrcRange: r}})
				return s
			}
			inner := raw[i+2 : end]
			if strings.TrimSpace(inner) == "" {
				r := hcl.Range{Filename: p.file, Start: at(i), End: at(end + 1)}
				p.errorf(r, "empty interpolation in string")
				s.Parts = append(s.Parts, StringPart{X: &ErrorExpr{Msg: "empty interpolation", SrcRange: r}})
			} else {
				s.Parts = append(s.Parts, StringPart{X: p.subExpr(inner, at(i+2))})
			}
			i = end + 1
			chunk = i
		default:
			i++
		}
	}
	flush(chunk, len(raw))
	return s
}

func matchBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *parser) subExpr(text string, base hcl.Pos) Expr {
	sub := newParser(p.file, text, base, p.labels, p.grammar, p.diags)
	x := sub.parseExpr()
	if sub.tok != scanner.EOF {
		msg := "unexpected " + sub.tokDesc() + " in interpolation"
		sub.errorf(sub.tokRange(), "%s", msg)
		return &ErrorExpr{Msg: msg, SrcRange: hcl.Range{Filename: p.file, Start: base, End: sub.end}}
	}
	return x
}
