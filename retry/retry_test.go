// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/assetcommit/retry"
)

var errTransient = errors.New("transient")

func TestSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Zero(3), func(attempt int) error {
		calls += 1
		assert.Equal(t, calls, attempt, "wrong attempt number")
		if attempt < 3 {
			return errTransient
		}
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, 3, calls)
}

func TestAttemptsExhausted(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Zero(4), func(int) error {
		calls += 1
		return errTransient
	})
	assert.Equal(t, errTransient, err)
	assert.Equal(t, 4, calls)
}

func TestSingleAttempt(t *testing.T) {
	for _, attempts := range []int{0, 1} {
		calls := 0
		_ = retry.Do(context.Background(), retry.Zero(attempts), func(int) error {
			calls += 1
			return errTransient
		})
		assert.Equal(t, 1, calls, "attempts: %d", attempts)
	}
}

func TestPermanentStops(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Zero(5), func(int) error {
		calls += 1
		return retry.Permanent(errTransient)
	})
	assert.Equal(t, errTransient, err, "permanent wrapper not removed")
	assert.Equal(t, 1, calls)
	assert.Nil(t, retry.Permanent(nil))
}

func TestContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.Policy{
		MaxAttempts: 100,
		Initial:     time.Hour,
		Max:         time.Hour,
		Multiplier:  2,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- retry.Do(ctx, policy, func(int) error {
			calls += 1
			return errTransient
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NotNil(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry ignored cancelled context")
	}
}
