package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cost-engine-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	factors   *stubFactors
	selected  []string
	imported  map[string]string
	importErr error
	selectErr error
	estimates *stubEstimates
	matrixReq domain.MatrixRequest
	matrixErr error
	batchReqs []domain.CostEstimateRequest
	batchErr  error
	scenarios *scenarioStore
	heatmaps  *stubHeatmaps
	observer  *recordingObserver
	handler   http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		factors:   &stubFactors{},
		imported:  map[string]string{},
		estimates: &stubEstimates{},
		scenarios: newScenarioStore(),
		heatmaps:  &stubHeatmaps{},
		observer:  &recordingObserver{},
	}

	selectUC := selectFunc(func(_ context.Context, source string) error {
		if env.selectErr != nil {
			return env.selectErr
		}
		env.selected = append(env.selected, source)
		return nil
	})
	importUC := importFunc(func(_ context.Context, source string, raw []byte) (*domain.CostFactorSet, error) {
		if env.importErr != nil {
			return nil, env.importErr
		}
		env.imported[source] = string(raw)
		return &domain.CostFactorSet{Source: source, Year: 2025}, nil
	})
	matrixUC := matrixFunc(func(_ context.Context, req domain.MatrixRequest) (*domain.MatrixResult, error) {
		env.matrixReq = req
		if env.matrixErr != nil {
			return nil, env.matrixErr
		}
		return &domain.MatrixResult{}, nil
	})
	batchUC := batchFunc(func(_ context.Context, reqs []domain.CostEstimateRequest) (*domain.BatchEstimateResult, error) {
		env.batchReqs = reqs
		if env.batchErr != nil {
			return nil, env.batchErr
		}
		out := &domain.BatchEstimateResult{Summary: domain.BatchSummary{Requested: len(reqs)}}
		for _, req := range reqs {
			if math.IsNaN(req.Area) {
				out.Results = append(out.Results, domain.FailedEstimate(req.Source, "area must be a finite number"))
				out.Summary.Failed++
				continue
			}
			out.Results = append(out.Results, domain.CostEstimateResult{Success: true, TotalCost: req.Area * 100})
			out.Summary.Successful++
		}
		return out, nil
	})

	env.handler = NewRouter(
		ServerConfig{AllowedOrigins: []string{"*"}},
		Handlers{
			CostFactors: NewCostFactorHandler(env.factors, env.factors, selectUC, importUC, env.factors),
			Estimates:   NewEstimateHandler(env.estimates, matrixUC, batchUC),
			Scenarios:   NewScenarioHandler(env.scenarios.useCases()),
			Heatmaps:    NewHeatmapHandler(env.heatmaps),
			Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				io.WriteString(w, "# metrics")
			}),
		},
		env.observer,
		quietLogger(),
	)
	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	decodeBody(t, rec, &health)
	assert.Equal(t, "ok", health.Status)

	rec = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestTraceIDHeader(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/health", "")
	_, err := uuid.Parse(rec.Header().Get("X-Trace-ID"))
	assert.NoError(t, err)

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", given)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Header().Get("X-Trace-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Trace-ID"))
}

func TestMetricsMiddleware_LabelsRoutePattern(t *testing.T) {
	env := newTestEnv()
	env.do(t, http.MethodGet, "/api/heatmaps/region", "")

	require.Len(t, env.observer.calls, 1)
	call := env.observer.calls[0]
	assert.Equal(t, "/api/heatmaps/{level}", call.route)
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, http.StatusOK, call.status)
}

func TestGetCostFactors(t *testing.T) {
	env := newTestEnv()
	env.factors.view = &domain.CostFactorView{
		Source:   "marshallSwift",
		Year:     2025,
		BaseRate: &domain.FactorLookup{Value: 150, Found: true},
	}

	rec := env.do(t, http.MethodGet, "/api/cost-factors?source=marshallSwift&propertyType=R1&region=North", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.CostFactorQuery{Source: "marshallSwift", PropertyType: "R1", Region: "North"}, env.factors.query)

	var view domain.CostFactorView
	decodeBody(t, rec, &view)
	assert.Equal(t, 2025, view.Year)
	require.NotNil(t, view.BaseRate)
	assert.Equal(t, 150.0, view.BaseRate.Value)
}

func TestGetCostFactors_ConfigurationErrorIs503(t *testing.T) {
	env := newTestEnv()
	env.factors.err = domain.NewConfigurationError("archive", domain.ErrSourceNotConfigured, nil)

	rec := env.do(t, http.MethodGet, "/api/cost-factors?source=archive", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "CONFIGURATION_ERROR", body.Code)
	assert.Contains(t, body.Error, "archive")
}

func TestGetCostFactors_UnexpectedErrorIs500(t *testing.T) {
	env := newTestEnv()
	env.factors.err = errors.New("disk on fire")

	rec := env.do(t, http.MethodGet, "/api/cost-factors", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "Failed to load cost factors", body.Error)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestActiveSourceEndpoints(t *testing.T) {
	env := newTestEnv()
	env.factors.active = "marshallSwift"
	env.factors.interval = 10
	env.factors.sources = []domain.SourceInfo{{Name: "marshallSwift", Label: "Marshall & Swift", Active: true, Enabled: true}}

	rec := env.do(t, http.MethodGet, "/api/cost-factors/source", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var active ActiveSourceResponse
	decodeBody(t, rec, &active)
	assert.Equal(t, ActiveSourceResponse{Source: "marshallSwift", RefreshIntervalMinutes: 10}, active)

	rec = env.do(t, http.MethodGet, "/api/cost-factors/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sources []domain.SourceInfo
	decodeBody(t, rec, &sources)
	require.Len(t, sources, 1)
	assert.True(t, sources[0].Active)

	rec = env.do(t, http.MethodPut, "/api/cost-factors/source", `{"source":"countyCustom"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"countyCustom"}, env.selected)

	rec = env.do(t, http.MethodPut, "/api/cost-factors/source", `{"source":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.selectErr = domain.ValidationError("source is required")
	rec = env.do(t, http.MethodPut, "/api/cost-factors/source", `{"source":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportDatasetAndClearCache(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPut, "/api/cost-factors/sources/countyCustom/dataset", `{"baseRates":{"R1":150}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"baseRates":{"R1":150}}`, env.imported["countyCustom"])

	env.importErr = domain.NewConfigurationError("countyCustom", domain.ErrMalformedFactorSet, errors.New("baseRates missing"))
	rec = env.do(t, http.MethodPut, "/api/cost-factors/sources/countyCustom/dataset", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/cost-factors/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, env.factors.cleared)
}

func TestEstimate(t *testing.T) {
	env := newTestEnv()
	env.estimates.result = domain.CostEstimateResult{Success: true, CostPerSqFt: 142.5, TotalCost: 285000, Source: "marshallSwift"}

	rec := env.do(t, http.MethodPost, "/api/cost-estimates",
		`{"buildingType":"R1","region":"CB","quality":"A","condition":"A","yearBuilt":2010,"area":"2000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2000.0, env.estimates.last.Area)
	assert.Equal(t, "R1", env.estimates.last.BuildingType)

	var result domain.CostEstimateResult
	decodeBody(t, rec, &result)
	assert.True(t, result.Success)
	assert.Equal(t, 285000.0, result.TotalCost)
}

func TestEstimate_FailureIs422(t *testing.T) {
	env := newTestEnv()
	env.estimates.result = domain.FailedEstimate("marshallSwift", "area must be a positive number")

	rec := env.do(t, http.MethodPost, "/api/cost-estimates", `{"buildingType":"R1","area":"lots"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, math.IsNaN(env.estimates.last.Area))

	var result domain.CostEstimateResult
	decodeBody(t, rec, &result)
	assert.False(t, result.Success)
	assert.Equal(t, "area must be a positive number", result.Error)

	rec = env.do(t, http.MethodPost, "/api/cost-estimates", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatrix(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/cost-estimates/matrix",
		`{"baseCost":150,"squareFootage":2000,"marketFactors":[1,1.1],"locationFactors":[0.9],"percentGood":[0.8]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []float64{1, 1.1}, env.matrixReq.MarketFactors)
	assert.Equal(t, 2000.0, env.matrixReq.SquareFootage)

	env.matrixErr = domain.ValidationError("matrix would have 120 combinations")
	rec = env.do(t, http.MethodPost, "/api/cost-estimates/matrix", `{"baseCost":150}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateBatch(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/cost-estimates/batch",
		`{"estimates":[{"buildingType":"R1","area":"2000"},{"buildingType":"R1","area":"lots"},{"buildingType":"C1","area":50,"source":"countyCustom"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.batchReqs, 3)
	assert.Equal(t, 2000.0, env.batchReqs[0].Area)
	assert.True(t, math.IsNaN(env.batchReqs[1].Area))
	assert.Equal(t, "countyCustom", env.batchReqs[2].Source)

	var result domain.BatchEstimateResult
	decodeBody(t, rec, &result)
	require.Len(t, result.Results, 3)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, domain.BatchSummary{Requested: 3, Successful: 2, Failed: 1}, result.Summary)

	env.batchErr = domain.ValidationError("batch has 101 estimates, at most 100 are allowed")
	rec = env.do(t, http.MethodPost, "/api/cost-estimates/batch", `{"estimates":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/cost-estimates/batch", `[`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarioLifecycle(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/what-if-scenarios",
		`{"name":"Bigger house","parameters":{"baseCost":200000,"squareFootage":2000,"complexity":1,"region":"North"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Scenario
	decodeBody(t, rec, &created)
	assert.Equal(t, "Bigger house", created.Name)
	base := "/api/what-if-scenarios/" + created.ID.String()

	rec = env.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, base, `{"name":"Renamed","parameters":{"baseCost":210000}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Scenario
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 210000.0, updated.Parameters.BaseCost)

	rec = env.do(t, http.MethodPost, base+"/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var saved domain.Scenario
	decodeBody(t, rec, &saved)
	assert.True(t, saved.IsSaved)

	rec = env.do(t, http.MethodPost, base+"/variations", `{"parameterKey":"complexity","newValue":1.2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var added VariationResponse
	decodeBody(t, rec, &added)
	require.NotNil(t, added.Variation)
	require.NotNil(t, added.Scenario)
	assert.Equal(t, 1, added.Scenario.Results.VariationCount)
	assert.Equal(t, 1.2, added.Variation.NewValue.Num)

	rec = env.do(t, http.MethodGet, base+"/variations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var variations []domain.Variation
	decodeBody(t, rec, &variations)
	assert.Len(t, variations, 1)

	rec = env.do(t, http.MethodDelete, base+"/variations/"+added.Variation.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, base+"/variations/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenario_BadInput(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/what-if-scenarios", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/what-if-scenarios/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/what-if-scenarios/compare", `{"scenarioIds":["nope"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/what-if-scenarios/compare", `{"scenarioIds":["`+uuid.NewString()+`"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScenarios_Paging(t *testing.T) {
	env := newTestEnv()
	env.scenarios.put("a")
	env.scenarios.put("b")

	rec := env.do(t, http.MethodGet, "/api/what-if-scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page ScenarioListResponse
	decodeBody(t, rec, &page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Len(t, page.Data, 2)

	rec = env.do(t, http.MethodGet, "/api/what-if-scenarios?saved=true&limit=500&offset=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ScenarioFilter{SavedOnly: true, Limit: 100, Offset: 3}, env.scenarios.lastList)

	for _, q := range []string{"limit=0", "limit=x", "offset=-1", "saved=maybe"} {
		rec = env.do(t, http.MethodGet, "/api/what-if-scenarios?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}

	env.scenarios.listError = errors.New("connection reset")
	rec = env.do(t, http.MethodGet, "/api/what-if-scenarios", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPreviewImpactAndCompare(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/what-if-scenarios/impact",
		`{"parameters":{"baseCost":100000,"squareFootage":2000,"complexity":1,"region":"North"},"parameterKey":"complexity","newValue":1.2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var impact domain.Impact
	decodeBody(t, rec, &impact)
	assert.InDelta(t, 20000, impact.ImpactValue, 1e-6)

	rec = env.do(t, http.MethodPost, "/api/what-if-scenarios/impact",
		`{"parameters":{"baseCost":100000},"parameterKey":"roofPitch","newValue":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a := env.scenarios.put("low")
	a.Results.AdjustedCost = 100000
	b := env.scenarios.put("high")
	b.Results.AdjustedCost = 150000

	rec = env.do(t, http.MethodPost, "/api/what-if-scenarios/compare",
		`{"scenarioIds":["`+a.ID.String()+`","`+b.ID.String()+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, env.scenarios.compared)

	var cmp domain.ScenarioComparison
	decodeBody(t, rec, &cmp)
	assert.Equal(t, 1, cmp.BestIndex)
	assert.Equal(t, 0, cmp.WorstIndex)
	assert.Equal(t, 50000.0, cmp.Spread)
}

func TestHeatmaps(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/heatmaps/municipal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LevelMunicipality, env.heatmaps.level)

	rec = env.do(t, http.MethodGet, "/api/heatmaps/geohash", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(5), env.heatmaps.precision)

	rec = env.do(t, http.MethodGet, "/api/heatmaps/geohash?precision=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), env.heatmaps.precision)

	rec = env.do(t, http.MethodGet, "/api/heatmaps/geohash?precision=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/heatmaps/continent", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/heatmaps/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared ClearCacheResponse
	decodeBody(t, rec, &cleared)
	assert.Equal(t, 4, cleared.Cleared)
	assert.Equal(t, 1, env.heatmaps.cleared)
}

func TestHeatmaps_ServiceErrorKeepsCode(t *testing.T) {
	env := newTestEnv()
	env.heatmaps.err = domain.NewAggregationError("Failed to aggregate region values", errors.New("timeout"))

	rec := env.do(t, http.MethodGet, "/api/heatmaps/region", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, domain.CodeAggregationFailed, body.Code)
	assert.Equal(t, "Failed to aggregate region values", body.Error)
}
