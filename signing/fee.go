// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signing

import (
	"context"
	"fmt"

	"github.com/bitmark-inc/assetcommit/ledger"
)

// Fee - an estimated transaction cost
type Fee struct {
	Amount uint64 `json:"amount"`
	Unit   string `json:"unit"`
}

// String - for progress messages
func (f Fee) String() string {
	return fmt.Sprintf("%d %s", f.Amount, f.Unit)
}

// Estimator - supplies a fee estimate before signing
type Estimator interface {
	EstimateFee(ctx context.Context, tx *ledger.UnsignedTransaction) (Fee, error)
}

// FlatFee - the same fee for every transaction
type FlatFee Fee

// EstimateFee - the flat fee
func (f FlatFee) EstimateFee(ctx context.Context, tx *ledger.UnsignedTransaction) (Fee, error) {
	return Fee(f), nil
}
