// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package script

// NameMode says whether a custom block takes a name.
type NameMode int

const (
	NoName NameMode = iota
	NameRequired
	NameOptional
)

// FileScope is the parent keyword of blocks that may appear at the top
// level of a script.
const FileScope = ""

// BlockRule describes one custom block keyword.
type BlockRule struct {
	Kind BlockKind
	Name NameMode
	// Parents lists the keywords of the enclosing custom blocks this block
	// may appear in. FileScope stands for the top level. An empty list
	// allows the block anywhere.
	Parents []string
}

// Grammar is the set of custom blocks a host understands.
type Grammar struct {
	rules map[string]*BlockRule
}

// NewGrammar creates a grammar with no custom blocks.
func NewGrammar() *Grammar {
	return &Grammar{rules: make(map[string]*BlockRule)}
}

// Add registers keyword. A later registration replaces an earlier one.
func (g *Grammar) Add(keyword string, rule BlockRule) *Grammar {
	r := rule
	g.rules[keyword] = &r
	return g
}

// Lookup returns the rule for keyword.
func (g *Grammar) Lookup(keyword string) (*BlockRule, bool) {
	if g == nil {
		return nil, false
	}
	r, ok := g.rules[keyword]
	return r, ok
}

func (r *BlockRule) allowedIn(parent string) bool {
	if len(r.Parents) == 0 {
		return true
	}
	for _, p := range r.Parents {
		if p == parent {
			return true
		}
	}
	return false
}
