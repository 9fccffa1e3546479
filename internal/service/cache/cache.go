package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL. The data
// provider uses it for player and head-to-head responses; the HTTP layer for
// rendered prediction payloads.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
