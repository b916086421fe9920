package cache

import (
	"path"
	"time"

	"cost-engine-service/internal/core/port"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Manager is a named TTL cache shared by the services that read from it.
// Entries expire lazily on read and are swept by the library in the background.
type Manager struct {
	name    string
	ttl     time.Duration
	lru     *expirable.LRU[string, interface{}]
	metrics port.MetricsPort
}

// NewManager creates a cache holding at most size entries (0 means unbounded).
func NewManager(name string, size int, ttl time.Duration, metrics port.MetricsPort) *Manager {
	return &Manager{
		name:    name,
		ttl:     ttl,
		lru:     expirable.NewLRU[string, interface{}](size, nil, ttl),
		metrics: metrics,
	}
}

func (m *Manager) Get(key string) (interface{}, bool) {
	v, ok := m.lru.Get(key)
	if m.metrics != nil {
		if ok {
			m.metrics.CacheHit(m.name)
		} else {
			m.metrics.CacheMiss(m.name)
		}
	}
	return v, ok
}

// Set replaces the value for key.
func (m *Manager) Set(key string, value interface{}) {
	m.lru.Add(key, value)
}

// Invalidate removes every key matching the glob pattern ("heatmap:*").
// A malformed pattern matches nothing.
func (m *Manager) Invalidate(pattern string) int {
	removed := 0
	for _, key := range m.lru.Keys() {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			if m.lru.Remove(key) {
				removed++
			}
		}
	}
	if m.metrics != nil && removed > 0 {
		m.metrics.CacheInvalidated(m.name, removed)
	}
	return removed
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Len() int { return m.lru.Len() }
