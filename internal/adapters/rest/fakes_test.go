package rest

import (
	"context"
	"sync"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/google/uuid"
)

type stubFactors struct {
	view     *domain.CostFactorView
	err      error
	query    domain.CostFactorQuery
	active   string
	interval int
	sources  []domain.SourceInfo
	cleared  int
}

func (s *stubFactors) GetCostFactors(_ context.Context, q domain.CostFactorQuery) (*domain.CostFactorView, error) {
	s.query = q
	return s.view, s.err
}

func (s *stubFactors) ActiveSource(context.Context) (string, int, error) {
	return s.active, s.interval, s.err
}

func (s *stubFactors) ListSources(context.Context) ([]domain.SourceInfo, error) {
	return s.sources, s.err
}

type selectFunc func(ctx context.Context, source string) error

func (f selectFunc) Execute(ctx context.Context, source string) error { return f(ctx, source) }

type importFunc func(ctx context.Context, source string, raw []byte) (*domain.CostFactorSet, error)

func (f importFunc) Execute(ctx context.Context, source string, raw []byte) (*domain.CostFactorSet, error) {
	return f(ctx, source, raw)
}

func (s *stubFactors) ClearCache() { s.cleared++ }

type stubEstimates struct {
	last   domain.CostEstimateRequest
	result domain.CostEstimateResult
}

func (s *stubEstimates) Execute(_ context.Context, req domain.CostEstimateRequest) domain.CostEstimateResult {
	s.last = req
	return s.result
}

type matrixFunc func(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResult, error)

func (f matrixFunc) Execute(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResult, error) {
	return f(ctx, req)
}

type batchFunc func(ctx context.Context, reqs []domain.CostEstimateRequest) (*domain.BatchEstimateResult, error)

func (f batchFunc) Execute(ctx context.Context, reqs []domain.CostEstimateRequest) (*domain.BatchEstimateResult, error) {
	return f(ctx, reqs)
}

// scenarioStore backs every scenario use case with one map.
type scenarioStore struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*domain.Scenario
	lastList  domain.ScenarioFilter
	compared  []uuid.UUID
	listError error
}

func newScenarioStore() *scenarioStore {
	return &scenarioStore{items: map[uuid.UUID]*domain.Scenario{}}
}

func (s *scenarioStore) put(name string) *domain.Scenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := &domain.Scenario{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	s.items[sc.ID] = sc
	return sc
}

func (s *scenarioStore) find(id uuid.UUID) (*domain.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.items[id]
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	return sc, nil
}

func (s *scenarioStore) useCases() ScenarioUseCases {
	return ScenarioUseCases{
		Create:          createUC{s},
		Get:             getUC{s},
		List:            listUC{s},
		Update:          updateUC{s},
		Save:            saveUC{s},
		Delete:          deleteUC{s},
		AddVariation:    addVariationUC{s},
		RemoveVariation: removeVariationUC{s},
		ListVariations:  listVariationsUC{s},
		PreviewImpact:   previewUC{s},
		Compare:         compareUC{s},
	}
}

type createUC struct{ s *scenarioStore }

func (u createUC) Execute(_ context.Context, in domain.ScenarioInput) (*domain.Scenario, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sc := u.s.put(in.Name)
	sc.Parameters = in.Parameters
	sc.IsSaved = in.IsSaved
	return sc, nil
}

type getUC struct{ s *scenarioStore }

func (u getUC) Execute(_ context.Context, id uuid.UUID) (*domain.Scenario, error) {
	return u.s.find(id)
}

type listUC struct{ s *scenarioStore }

func (u listUC) Execute(_ context.Context, f domain.ScenarioFilter) ([]domain.Scenario, int, error) {
	u.s.lastList = f
	if u.s.listError != nil {
		return nil, 0, u.s.listError
	}
	out := make([]domain.Scenario, 0, len(u.s.items))
	for _, sc := range u.s.items {
		out = append(out, *sc)
	}
	return out, len(out), nil
}

type updateUC struct{ s *scenarioStore }

func (u updateUC) Execute(_ context.Context, id uuid.UUID, in domain.ScenarioInput) (*domain.Scenario, error) {
	sc, err := u.s.find(id)
	if err != nil {
		return nil, err
	}
	sc.Name = in.Name
	sc.Parameters = in.Parameters
	return sc, nil
}

type saveUC struct{ s *scenarioStore }

func (u saveUC) Execute(_ context.Context, id uuid.UUID) (*domain.Scenario, error) {
	sc, err := u.s.find(id)
	if err != nil {
		return nil, err
	}
	sc.IsSaved = true
	return sc, nil
}

type deleteUC struct{ s *scenarioStore }

func (u deleteUC) Execute(_ context.Context, id uuid.UUID) error {
	if _, err := u.s.find(id); err != nil {
		return err
	}
	delete(u.s.items, id)
	return nil
}

type addVariationUC struct{ s *scenarioStore }

func (u addVariationUC) Execute(_ context.Context, id uuid.UUID, in domain.VariationInput) (*domain.Variation, *domain.Scenario, error) {
	sc, err := u.s.find(id)
	if err != nil {
		return nil, nil, err
	}
	v := domain.Variation{ID: uuid.New(), ScenarioID: id, Name: in.Name, ParameterKey: in.ParameterKey, NewValue: in.NewValue}
	sc.Variations = append(sc.Variations, v)
	sc.Results.VariationCount = len(sc.Variations)
	return &v, sc, nil
}

type removeVariationUC struct{ s *scenarioStore }

func (u removeVariationUC) Execute(_ context.Context, id, variationID uuid.UUID) (*domain.Scenario, error) {
	sc, err := u.s.find(id)
	if err != nil {
		return nil, err
	}
	for i, v := range sc.Variations {
		if v.ID == variationID {
			sc.Variations = append(sc.Variations[:i], sc.Variations[i+1:]...)
			sc.Results.VariationCount = len(sc.Variations)
			return sc, nil
		}
	}
	return nil, domain.ErrVariationNotFound
}

type listVariationsUC struct{ s *scenarioStore }

func (u listVariationsUC) Execute(_ context.Context, id uuid.UUID) ([]domain.Variation, error) {
	sc, err := u.s.find(id)
	if err != nil {
		return nil, err
	}
	return sc.Variations, nil
}

type previewUC struct{ s *scenarioStore }

func (u previewUC) Execute(_ context.Context, baseline domain.ScenarioParameters, key string, v domain.ParamValue) (*domain.Impact, error) {
	impact, err := domain.ComputeImpact(baseline, key, v, domain.DefaultImpactRates())
	if err != nil {
		return nil, err
	}
	return &impact, nil
}

type compareUC struct{ s *scenarioStore }

func (u compareUC) Execute(_ context.Context, ids []uuid.UUID) (*domain.ScenarioComparison, error) {
	u.s.compared = ids
	list := make([]domain.Scenario, 0, len(ids))
	for _, id := range ids {
		sc, err := u.s.find(id)
		if err != nil {
			return nil, err
		}
		list = append(list, *sc)
	}
	cmp := domain.CompareScenarios(list)
	return &cmp, nil
}

type stubHeatmaps struct {
	level     domain.GeoLevel
	precision uint
	err       error
	cleared   int
}

func (s *stubHeatmaps) GetHeatmap(_ context.Context, level domain.GeoLevel) (*domain.Heatmap, error) {
	s.level = level
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Heatmap{Level: level, Entities: []domain.GeographicAggregate{}}, nil
}

func (s *stubHeatmaps) GetGeohashHeatmap(_ context.Context, precision uint) (*domain.Heatmap, error) {
	s.precision = precision
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Heatmap{Level: domain.LevelGeohash, Entities: []domain.GeographicAggregate{}}, nil
}

func (s *stubHeatmaps) ClearCaches(context.Context) int {
	s.cleared++
	return 4
}

type observed struct {
	route, method string
	status        int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (o *recordingObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{route: route, method: method, status: status})
}

func quietLogger() port.LoggerPort {
	return contextkeys.LoggerFromContext(context.Background())
}
