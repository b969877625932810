// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/assetcommit/fault"
)

// command line errors - keep in alphabetic order
const (
	ErrAssetIDRequired   = fault.ValidationError("asset id is required")
	ErrDelegateRequired  = fault.ValidationError("delegate address is required")
	ErrDraftConflict     = fault.ValidationError("use either a draft file or draft flags, not both")
	ErrFileRequired      = fault.ValidationError("file name is required")
	ErrInvalidNetwork    = fault.ValidationError("network can only be bitmark/testing/local")
	ErrKeyfileRequired   = fault.ValidationError("keyfile name is required")
	ErrMissingAPI        = fault.ValidationError("api URL is required")
	ErrNameRequired      = fault.ValidationError("display name is required")
	ErrNotAStream        = fault.ValidationError("reply is not a progress stream")
	ErrOwnerRequired     = fault.ValidationError("owner address is required")
	ErrPasswordMismatch  = fault.ValidationError("passwords do not match")
	ErrRequestIDRequired = fault.ValidationError("request id is required")
	ErrStreamIncomplete  = fault.ValidationError("progress stream ended without a result")
	ErrTooShortPassword  = fault.ValidationError("password must be at least 8 characters")
)
