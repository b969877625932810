// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pipeline

import (
	"sync"
)

// content objects held by running jobs
//
// a job that wrote an object and then failed may only remove it if
// no other running job has stored or found the same object
type references struct {
	sync.Mutex
	held map[string]int
}

func newReferences() *references {
	return &references{
		held: make(map[string]int),
	}
}

func (r *references) acquire(key string) {
	r.Lock()
	r.held[key] += 1
	r.Unlock()
}

// drop a reference; remove runs under the lock when it was the last
func (r *references) release(key string, remove func()) {
	r.Lock()
	defer r.Unlock()

	r.held[key] -= 1
	if r.held[key] > 0 {
		return
	}
	delete(r.held, key)
	if nil != remove {
		remove()
	}
}

func (r *references) count(key string) int {
	r.Lock()
	defer r.Unlock()
	return r.held[key]
}
