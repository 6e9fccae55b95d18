package cache

import (
	"github.com/bookgrid/book-enrichment/pkg/provider"
)

// keyNamespace prefixes every cache key so the store can be shared
// with other users of the same Redis instance.
const keyNamespace = "book"

// Key identifies one cached provider result: the query token plus the
// provider that produced the result. The cache is per-provider, not
// per-merged-record, so a merge re-run does not re-fetch every source.
type Key struct {
	// Token is the canonical query part: an ISBN-13 or a hashed
	// free-text token (see provider.Query.CacheToken).
	Token string

	// Provider is the originating provider's identifier.
	Provider provider.ID
}

// KeyFor derives the cache key for a (query, provider) pair.
func KeyFor(q provider.Query, p provider.ID) Key {
	return Key{Token: q.CacheToken(), Provider: p}
}

// String generates the deterministic store key.
// Format: book:<token>:<provider>
//
// Example:
//
//	book:9783161484100:google_books
func (k Key) String() string {
	return keyNamespace + ":" + k.Token + ":" + string(k.Provider)
}

// Prefix returns the store-key prefix covering every provider's entry
// for the given query token. Used for invalidation.
func Prefix(token string) string {
	return keyNamespace + ":" + token + ":"
}
