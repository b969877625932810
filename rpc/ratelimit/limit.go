// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/assetcommit/fault"
)

// Limit - limiting for a single request
func Limit(ctx context.Context, limiter *rate.Limiter, maximumWait time.Duration) error {
	return LimitN(ctx, limiter, 1, maximumWait)
}

// LimitN - limiting for a request that counts as several, e.g. a batch
//
// a count above the burst is charged as a full burst; a request that
// would have to wait longer than maximumWait is refused
func LimitN(ctx context.Context, limiter *rate.Limiter, count int, maximumWait time.Duration) error {
	if count <= 0 {
		return fault.ErrInvalidCount
	}
	if burst := limiter.Burst(); burst > 0 && count > burst {
		count = burst
	}

	r := limiter.ReserveN(time.Now(), count)
	if !r.OK() {
		return fault.ErrRateLimiting
	}

	delay := r.Delay()
	if 0 == delay {
		return nil
	}
	if delay > maximumWait {
		r.Cancel()
		return fault.ErrRateLimiting
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
