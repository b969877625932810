// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferencesRemoveOnLastRelease(t *testing.T) {
	r := newReferences()
	removed := 0
	remove := func() { removed += 1 }

	r.acquire("k")
	r.acquire("k")
	assert.Equal(t, 2, r.count("k"))

	r.release("k", remove)
	assert.Equal(t, 0, removed, "removed while still held")
	assert.Equal(t, 1, r.count("k"))

	r.release("k", remove)
	assert.Equal(t, 1, removed, "not removed after last release")
	assert.Equal(t, 0, r.count("k"))

	r.acquire("other")
	r.release("other", nil)
	assert.Equal(t, 0, r.count("other"))
}
