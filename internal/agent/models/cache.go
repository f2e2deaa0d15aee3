package models

// CacheEntry is an expiring key/value row used for API response
// memoization. Purely advisory; safe to delete at any time.
type CacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt int64
	ExpiresAt int64
}
