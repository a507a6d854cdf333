// Copyright (c) 2026 The XGo Authors (xgo.dev). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package project

import (
	"math/bits"
	"strings"
)

// MaxConfigs is the number of configurations a ConfigMask can hold.
const MaxConfigs = 64

// ConfigMask has bit i set when configuration i is selected.
type ConfigMask uint64

// Bit returns the mask holding only configuration i.
func Bit(i int) ConfigMask {
	return ConfigMask(1) << uint(i)
}

// AllConfigs returns the mask holding configurations 0 to n-1.
func AllConfigs(n int) ConfigMask {
	if n >= MaxConfigs {
		return ^ConfigMask(0)
	}
	return Bit(n) - 1
}

// HasAllBitsIn reports whether every bit of want is set in m.
func (m ConfigMask) HasAllBitsIn(want ConfigMask) bool {
	return m&want == want
}

// HasAnyBit reports whether m selects at least one configuration.
func (m ConfigMask) HasAnyBit() bool {
	return m != 0
}

// Has reports whether configuration i is selected.
func (m ConfigMask) Has(i int) bool {
	return m&Bit(i) != 0
}

// Count returns the number of selected configurations.
func (m ConfigMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Names returns the names of the selected configurations, in order.
func (m ConfigMask) Names(configs []string) []string {
	var names []string
	for i, name := range configs {
		if m.Has(i) {
			names = append(names, name)
		}
	}
	return names
}

// Format renders m as a comma separated list of configuration names.
func (m ConfigMask) Format(configs []string) string {
	return strings.Join(m.Names(configs), ",")
}
