// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asset

import (
	"github.com/google/uuid"
)

// NameKey - the critical metadata key holding the display name
const NameKey = "name"

// limits
const (
	maxAssetIDLength = 128
	maxNameLength    = 256
)

// Metadata - string keys to JSON compatible values
type Metadata map[string]interface{}

// Draft - an asset as authored by a user
type Draft struct {
	AssetID     string   `json:"assetId"`
	Owner       string   `json:"ownerAddress"`
	Critical    Metadata `json:"criticalMetadata"`
	NonCritical Metadata `json:"nonCriticalMetadata,omitempty"`
}

// Name - the display name from the critical metadata, empty if absent
func (d *Draft) Name() string {
	if s, ok := d.Critical[NameKey].(string); ok {
		return s
	}
	return ""
}

// NewID - generate an asset id for drafts that arrive without one
func NewID() string {
	return uuid.New().String()
}

// Action - the kind of change recorded in the transaction log
type Action string

// all possible actions
const (
	Create Action = "CREATE"
	Update Action = "UPDATE"
	Delete Action = "DELETE"
)

// Valid - check for a known action
func (a Action) Valid() bool {
	switch a {
	case Create, Update, Delete:
		return true
	default:
		return false
	}
}
