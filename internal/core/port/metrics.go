package port

import "time"

// MetricsPort records service-level measurements.
type MetricsPort interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheInvalidated(cache string, n int)
	EstimateOutcome(success bool)
	FactorSetLoaded(source string, d time.Duration, err error)
}
