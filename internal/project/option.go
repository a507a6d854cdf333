// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package project

import "fmt"

// OptionType classifies an Option.
type OptionType int

const (
	IncludeDir OptionType = iota
	PreprocessorDef
	LinkerInput
	// Generic options are toolchain independent (optimization, debug_info,
	// ...) and are translated to flags by a Toolchain.
	Generic
	CompilerSpecific
	LinkerSpecific
)

var optionTypeNames = [...]string{
	IncludeDir:       "include_dir",
	PreprocessorDef:  "define",
	LinkerInput:      "linker_input",
	Generic:          "generic",
	CompilerSpecific: "compiler_flag",
	LinkerSpecific:   "linker_flag",
}

func (t OptionType) String() string {
	if t >= 0 && int(t) < len(optionTypeNames) {
		return optionTypeNames[t]
	}
	return fmt.Sprintf("OptionType(%d)", int(t))
}

// linksTransitively reports whether options of type t reach every
// dependent, whatever the visibility of the edges in between.
func (t OptionType) linksTransitively() bool {
	return t == LinkerInput || t == LinkerSpecific
}

// OptionValue is either a concrete string or Erased.
type OptionValue struct {
	text   string
	erased bool
}

// Erased cancels earlier values of the same option key.
var Erased = OptionValue{erased: true}

// Concrete returns the value s.
func Concrete(s string) OptionValue {
	return OptionValue{text: s}
}

// IsErased reports whether v is Erased.
func (v OptionValue) IsErased() bool {
	return v.erased
}

// Text returns the concrete value, or "" for Erased.
func (v OptionValue) Text() string {
	return v.text
}

func (v OptionValue) String() string {
	if v.erased {
		return "<erased>"
	}
	return v.text
}

// Option is one build setting with the configurations it applies to.
// Public holds the configurations in which the option is exported to
// dependents.
type Option struct {
	Type    OptionType
	Key     string
	Value   OptionValue
	Enabled ConfigMask
	Public  ConfigMask
}

// Same reports whether o and other are the same setting, ignoring masks.
func (o *Option) Same(other *Option) bool {
	return o.Type == other.Type && o.Key == other.Key && o.Value == other.Value
}

func (o *Option) sameKey(other *Option) bool {
	return o.Type == other.Type && o.Key == other.Key
}

func (o Option) String() string {
	if o.Value == (OptionValue{}) {
		return fmt.Sprintf("%s %s", o.Type, o.Key)
	}
	return fmt.Sprintf("%s %s=%s", o.Type, o.Key, o.Value)
}

// AppendOption adds src to the options declared by one owner. A concrete
// src replaces entries of the same type and key with a different value in
// the configurations src is enabled in; entries left with no
// configuration are dropped. An Erased src removes the concrete entries of
// its key in those configurations. Identical entries absorb the masks of
// src.
func AppendOption(options []Option, src Option) []Option {
	found := false
	out := options[:0]
	for _, dst := range options {
		if dst.sameKey(&src) {
			switch {
			case dst.Value == src.Value:
				found = true
				dst.Enabled |= src.Enabled
				dst.Public |= src.Public
			case !dst.Value.IsErased():
				dst.Enabled &^= src.Enabled
				dst.Public &^= src.Enabled
				if dst.Enabled == 0 {
					continue
				}
			}
		}
		out = append(out, dst)
	}
	if !found {
		out = append(out, src)
	}
	return out
}

// inheritOption merges src into options. visible is the set of
// configurations in which src reaches the owner of options and public the
// set in which the owner exports it again. Identical entries are merged;
// an Erased src removes earlier values of its key for the visible
// configurations and is kept so that it also applies further up.
func inheritOption(options []Option, src *Option, visible, public ConfigMask) []Option {
	if visible == 0 {
		return options
	}
	public &= visible
	if src.Value.IsErased() {
		out := options[:0]
		for _, dst := range options {
			if dst.sameKey(src) && !dst.Value.IsErased() {
				dst.Enabled &^= visible
				dst.Public &^= visible
				if dst.Enabled == 0 {
					continue
				}
			}
			out = append(out, dst)
		}
		options = out
	}
	for i := range options {
		if options[i].Same(src) {
			options[i].Enabled |= visible
			options[i].Public |= public
			return options
		}
	}
	return append(options, Option{
		Type:    src.Type,
		Key:     src.Key,
		Value:   src.Value,
		Enabled: visible,
		Public:  public,
	})
}
