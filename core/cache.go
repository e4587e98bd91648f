package core

import "time"

// Cache is a keyed store with expiry, used for OAuth state and Discord lookups
type Cache[V any] interface {
	Get(key string) (V, error)
	Set(key string, value V) error
	Delete(key string) error
	Clear() error
}

// CacheWithStats extends Cache with statistics tracking
type CacheWithStats[V any] interface {
	Cache[V]
	Stats() CacheStats
}

// CacheConfig configures cache behavior
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	Sets      int64         `json:"sets"`
	Deletes   int64         `json:"deletes"`
	Evictions int64         `json:"evictions"`
	Size      int           `json:"size"`
	TTL       time.Duration `json:"ttl"`
}
