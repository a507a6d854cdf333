// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package label interns identifier strings into small integer handles.
package label

import "sync"

// Label is an interned identifier. The zero Label is invalid.
type Label uint32

// Invalid is returned by Find for text that was never interned.
const Invalid Label = 0

// IsValid reports whether l was produced by a Table.
func (l Label) IsValid() bool {
	return l != Invalid
}

// Table maps identifier text to labels. Entries are never removed, so a
// label stays valid for the lifetime of its table.
type Table struct {
	mu    sync.RWMutex
	index map[string]Label
	texts []string
}

// NewTable creates an empty intern table.
func NewTable() *Table {
	return &Table{
		index: make(map[string]Label),
		// slot 0 backs Invalid
		texts: []string{""},
	}
}

// InsertOrFind returns the label for text, allocating one on first use.
func (t *Table) InsertOrFind(text string) Label {
	t.mu.RLock()
	l, ok := t.index[text]
	t.mu.RUnlock()
	if ok {
		return l
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.index[text]; ok {
		return l
	}
	l = Label(len(t.texts))
	t.texts = append(t.texts, text)
	t.index[text] = l
	return l
}

// Find returns the label for text, or Invalid if text was never inserted.
func (t *Table) Find(text string) Label {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.index[text]
}

// View returns the text of l. It panics if l does not belong to t.
func (t *Table) View(l Label) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.texts[l]
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.texts) - 1
}
