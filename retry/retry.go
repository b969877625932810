// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package retry - bounded exponential backoff for transient failures
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy - shape of the retries for one stage
//
// MaxAttempts counts the first try; zero or one means a single try
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
}

// Default - policy for calls to short lived network services
var Default = Policy{
	MaxAttempts: 4,
	Initial:     200 * time.Millisecond,
	Max:         5 * time.Second,
	Multiplier:  2,
}

// Zero - a policy that retries immediately, for tests
func Zero(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
	}
}

// Permanent - wrap an error so Do stops at once
func Permanent(err error) error {
	if nil == err {
		return nil
	}
	return backoff.Permanent(err)
}

// Do - call op until it succeeds, fails permanently, the attempts
// run out or ctx ends
//
// the error returned is the one from the final attempt with any
// Permanent wrapper removed; attempt numbers start from one
func Do(ctx context.Context, policy Policy, op func(attempt int) error) error {
	attempt := 0
	operation := func() error {
		attempt += 1
		return op(attempt)
	}
	return backoff.Retry(operation, policy.backOff(ctx))
}

func (policy Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if policy.Initial <= 0 {
		b = &backoff.ZeroBackOff{}
	} else {
		e := backoff.NewExponentialBackOff()
		e.InitialInterval = policy.Initial
		e.MaxInterval = policy.Max
		if e.MaxInterval < e.InitialInterval {
			e.MaxInterval = e.InitialInterval
		}
		if policy.Multiplier > 1 {
			e.Multiplier = policy.Multiplier
		}
		e.RandomizationFactor = 0.1
		e.MaxElapsedTime = 0
		e.Reset()
		b = e
	}

	retries := policy.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
