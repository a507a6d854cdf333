// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hosttools

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var versionRE = regexp.MustCompile(`\b(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the first dotted version number from the output
// of a --version command, such as "3.28.1" from "cmake version 3.28.1".
// When there is none, the first word containing a digit is returned.
func ParseVersion(out string) string {
	if m := versionRE.FindString(out); m != "" {
		return m
	}
	for _, word := range strings.Fields(out) {
		if strings.ContainsAny(word, "0123456789") {
			return word
		}
	}
	return ""
}

// Compare compares two tool versions. Dotted numeric versions compare
// as semantic versions; anything else, such as the date stamped versions
// of vcpkg, falls back to a digit aware string comparison.
func Compare(a, b string) int {
	va, vb := canonical(a), canonical(b)
	if va != "" && vb != "" {
		return semver.Compare(va, vb)
	}
	return compareMixed(a, b)
}

func canonical(v string) string {
	v = "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// compareMixed compares runs of digits by value and other characters by
// byte, the way version sort orders file names. '~' sorts before
// everything, including the end of the string.
func compareMixed(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ca, cb := rank(a, i), rank(b, j)
			if ca != cb {
				return sign(ca - cb)
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		diff := 0
		for i < len(a) && j < len(b) && isDigit(a[i]) && isDigit(b[j]) {
			if diff == 0 {
				diff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if diff != 0 {
			return sign(diff)
		}
	}
	return 0
}

func rank(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	switch c := s[i]; {
	case isDigit(c):
		return 0
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
