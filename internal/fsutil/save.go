// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fsutil

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Result reports what SaveIfDifferent did.
type Result int

const (
	// OK means the file was written.
	OK Result = iota
	// Unchanged means the file already held the same bytes and was left alone.
	Unchanged
)

func (r Result) String() string {
	if r == Unchanged {
		return "Unchanged"
	}
	return "OK"
}

// SaveIfDifferent writes data to path unless the file already contains
// exactly data. Missing parent directories are created.
func SaveIfDifferent(path string, data []byte) (Result, error) {
	old, err := os.ReadFile(path)
	if err == nil && bytes.Equal(old, data) {
		return Unchanged, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return OK, fmt.Errorf("read %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return OK, err
	}
	// write to a sibling temp file first so readers never see a torn file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return OK, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return OK, fmt.Errorf("write %s: %w", path, err)
	}
	return OK, nil
}

// NewLines is the line ending convention for generated text files.
type NewLines string

const (
	LF   NewLines = "lf"
	CRLF NewLines = "crlf"
)

// Convert rewrites the LF line endings of text to nl.
func (nl NewLines) Convert(text []byte) []byte {
	if nl != CRLF {
		return text
	}
	text = bytes.ReplaceAll(text, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(text, []byte("\n"), []byte("\r\n"))
}
