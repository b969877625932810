// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/bitmark-inc/assetcommit/fault"
)

// Capabilities - set of write operations a delegate may perform
type Capabilities uint8

// all possible capabilities
const (
	CapabilityUpdate Capabilities = 1 << iota
	CapabilityDelete

	allCapabilities = CapabilityUpdate | CapabilityDelete
)

var capabilityNames = map[Capabilities]string{
	CapabilityUpdate: "update",
	CapabilityDelete: "delete",
}

// ParseCapabilities - convert names to a set
func ParseCapabilities(names []string) (Capabilities, error) {
	c := Capabilities(0)
next:
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		for flag, n := range capabilityNames {
			if n == name {
				c |= flag
				continue next
			}
		}
		return 0, fault.Wrap(fault.ErrCapabilityInvalid, "%q", name)
	}
	return c, nil
}

// Has - true if every capability in want is present
func (c Capabilities) Has(want Capabilities) bool {
	return 0 != want && want == c&want
}

// Valid - non-empty and only known bits
func (c Capabilities) Valid() bool {
	return 0 != c && 0 == c&^allCapabilities
}

// Names - sorted capability names
func (c Capabilities) Names() []string {
	names := make([]string, 0, len(capabilityNames))
	for flag, name := range capabilityNames {
		if c.Has(flag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// String - comma separated names
func (c Capabilities) String() string {
	return strings.Join(c.Names(), ",")
}

// MarshalJSON - as a list of names
func (c Capabilities) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Names())
}

// UnmarshalJSON - from a list of names
func (c *Capabilities) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); nil != err {
		return err
	}
	parsed, err := ParseCapabilities(names)
	if nil != err {
		return err
	}
	*c = parsed
	return nil
}
