// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package delegation

import (
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/assetcommit/ledger"
)

// grant cache keyed by owner and delegate
//
// an entry with a nil grant records that the ledger had no grant;
// writes are last-writer-wins. A cache without a positive ttl holds
// nothing, every answer comes from the ledger
type grantCache struct {
	cache *cache.Cache
}

type cacheData struct {
	grant *ledger.Grant
}

func newGrantCache(ttl time.Duration) *grantCache {
	if ttl <= 0 {
		return &grantCache{}
	}
	return &grantCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func cacheKey(owner string, delegate string) string {
	return ledger.NormalizeAddress(owner) + "/" + ledger.NormalizeAddress(delegate)
}

// get - the cached grant and whether there was an entry at all
func (c *grantCache) get(owner string, delegate string) (*ledger.Grant, bool) {
	if nil == c.cache {
		return nil, false
	}
	obj, found := c.cache.Get(cacheKey(owner, delegate))
	if !found {
		return nil, false
	}
	return obj.(cacheData).grant, true
}

func (c *grantCache) set(owner string, delegate string, grant *ledger.Grant) {
	if nil == c.cache {
		return
	}
	c.cache.SetDefault(cacheKey(owner, delegate), cacheData{grant: grant})
}

func (c *grantCache) delete(owner string, delegate string) {
	if nil == c.cache {
		return
	}
	c.cache.Delete(cacheKey(owner, delegate))
}

func (c *grantCache) clear() {
	if nil == c.cache {
		return
	}
	c.cache.Flush()
}
