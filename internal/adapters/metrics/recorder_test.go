package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ExposesCollectors(t *testing.T) {
	r := NewRecorder("cost_engine")

	r.CacheHit("factors")
	r.CacheMiss("factors")
	r.CacheInvalidated("heatmap", 3)
	r.EstimateOutcome(true)
	r.EstimateOutcome(false)
	r.FactorSetLoaded("marshallSwift", 15*time.Millisecond, nil)
	r.FactorSetLoaded("archive", time.Millisecond, errors.New("missing"))
	r.ObserveHTTP("/api/cost-estimate", http.MethodPost, http.StatusOK, 2*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `cost_engine_cache_lookups_total{cache="factors",result="hit"} 1`)
	assert.Contains(t, body, `cost_engine_cache_invalidated_entries_total{cache="heatmap"} 3`)
	assert.Contains(t, body, `cost_engine_cost_estimates_total{outcome="failure"} 1`)
	assert.Contains(t, body, `cost_engine_factor_set_loads_total{outcome="failure",source="archive"} 1`)
	assert.Contains(t, body, `cost_engine_http_request_duration_seconds_count{method="POST",route="/api/cost-estimate",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRecorder_PrivateRegistry(t *testing.T) {
	a := NewRecorder("a")
	b := NewRecorder("a")

	a.EstimateOutcome(true)
	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.NotEqual(t, "a_cost_estimates_total", f.GetName())
	}
}
