// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qname validates the dotted names that identify repos, targets
// and externs, such as "lib.core" or "media.codecs.png".
package qname

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned by Split for an empty name.
var ErrEmpty = errors.New("empty name")

// IsIdent reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Split splits name on dots and checks every component.
func Split(name string) ([]string, error) {
	if name == "" {
		return nil, ErrEmpty
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("empty component %d in %q", i+1, name)
		}
		if !IsIdent(p) {
			return nil, fmt.Errorf("invalid component %q in %q", p, name)
		}
	}
	return parts, nil
}

// Join joins components with dots.
func Join(parts ...string) string {
	return strings.Join(parts, ".")
}

// Last returns the final component of name.
func Last(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
