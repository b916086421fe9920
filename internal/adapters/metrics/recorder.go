package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private Prometheus registry with the service's collectors.
type Recorder struct {
	registry *prometheus.Registry

	cacheLookups      *prometheus.CounterVec
	cacheInvalidated  *prometheus.CounterVec
	estimates         *prometheus.CounterVec
	factorLoads       *prometheus.CounterVec
	factorLoadSeconds *prometheus.HistogramVec
	httpDuration      *prometheus.HistogramVec
}

func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		cacheInvalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_entries_total",
			Help:      "Entries removed by pattern invalidation.",
		}, []string{"cache"}),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_estimates_total",
			Help:      "Cost estimates by outcome.",
		}, []string{"outcome"}),
		factorLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factor_set_loads_total",
			Help:      "Factor set loads from the backing store by source and outcome.",
		}, []string{"source", "outcome"}),
		factorLoadSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "factor_set_load_seconds",
			Help:      "Time spent reading and decoding a factor set.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.cacheLookups,
		r.cacheInvalidated,
		r.estimates,
		r.factorLoads,
		r.factorLoadSeconds,
		r.httpDuration,
	)
	return r
}

func (r *Recorder) CacheHit(cache string)  { r.cacheLookups.WithLabelValues(cache, "hit").Inc() }
func (r *Recorder) CacheMiss(cache string) { r.cacheLookups.WithLabelValues(cache, "miss").Inc() }

func (r *Recorder) CacheInvalidated(cache string, n int) {
	r.cacheInvalidated.WithLabelValues(cache).Add(float64(n))
}

func (r *Recorder) EstimateOutcome(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	r.estimates.WithLabelValues(outcome).Inc()
}

func (r *Recorder) FactorSetLoaded(source string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.factorLoads.WithLabelValues(source, outcome).Inc()
	r.factorLoadSeconds.WithLabelValues(source).Observe(d.Seconds())
}

func (r *Recorder) ObserveHTTP(route, method string, status int, d time.Duration) {
	r.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
