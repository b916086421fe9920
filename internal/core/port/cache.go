package port

import "time"

// CachePort is a shared TTL cache whose values are replaced wholesale.
type CachePort interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	// Invalidate removes every key matching a glob pattern and returns how many were removed.
	Invalidate(pattern string) int
	TTL() time.Duration
}
