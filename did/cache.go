// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package did

import (
	"crypto"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedKey is a resolved key and the instant it stops being fresh.
type CachedKey struct {
	Key    crypto.PublicKey
	Expiry time.Time
}

// Cache holds resolved keys by document URL and key id. It's safe for
// concurrent use and may be shared by several Resolvers. A key is only ever
// returned for the document it was resolved against, so a Resolver never sees
// a key whose controller was checked against another document's host.
//
// Freshness is judged against the caller's clock, so entries never expire on
// their own; a refetch replaces them.
type Cache struct {
	c *cache.Cache
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{c: cache.New(cache.NoExpiration, 0)}
}

// cacheKey joins the document URL and key id. NewResolver only accepts URLs
// that url.Parse takes, and it rejects control characters.
func cacheKey(documentURL, keyID string) string {
	return documentURL + "\x00" + keyID
}

// Get returns the key if it's cached for documentURL and now is before its
// expiry.
func (c *Cache) Get(documentURL, keyID string, now time.Time) (crypto.PublicKey, bool) {
	e, ok := c.Entry(documentURL, keyID)
	if !ok || !now.Before(e.Expiry) {
		return nil, false
	}
	return e.Key, true
}

// Entry returns the cached entry whether it's fresh or not.
func (c *Cache) Entry(documentURL, keyID string) (CachedKey, bool) {
	v, ok := c.c.Get(cacheKey(documentURL, keyID))
	if !ok {
		return CachedKey{}, false
	}
	e, ok := v.(CachedKey)
	return e, ok
}

// Set stores the entry, replacing any previous one for the same document URL
// and key id.
func (c *Cache) Set(documentURL, keyID string, e CachedKey) {
	c.c.Set(cacheKey(documentURL, keyID), e, cache.NoExpiration)
}

// Len is the number of entries, fresh or stale.
func (c *Cache) Len() int { return c.c.ItemCount() }

// Flush removes every entry.
func (c *Cache) Flush() { c.c.Flush() }
