package usecase

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"time"

	"cost-engine-service/internal/core/domain"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]interface{})} }

func (c *mapCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

func (c *mapCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *mapCache) TTL() time.Duration { return time.Hour }

func (c *mapCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type fakeConfig struct {
	cfg      domain.CostFactorConfig
	loadErr  error
	setErr   error
	setCalls []string
}

func (f *fakeConfig) Load(ctx context.Context) (domain.CostFactorConfig, error) {
	if f.loadErr != nil {
		return domain.CostFactorConfig{}, f.loadErr
	}
	return f.cfg, nil
}

func (f *fakeConfig) SetActiveSource(ctx context.Context, source string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setCalls = append(f.setCalls, source)
	f.cfg.ActiveSource = source
	return nil
}

type fakeReader struct {
	docs  map[string][]byte
	err   error
	calls int
}

func (r *fakeReader) ReadFactorSet(ctx context.Context, name string, desc domain.SourceDescriptor) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	raw, ok := r.docs[name]
	if !ok {
		return nil, domain.ErrSourceNotConfigured
	}
	return raw, nil
}

type fakeValidator struct{ err error }

func (v fakeValidator) ValidateFactorSet(raw []byte) error { return v.err }

type fakeMetrics struct {
	mu        sync.Mutex
	estimates map[bool]int
	loads     int
	loadErrs  int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{estimates: make(map[bool]int)} }

func (m *fakeMetrics) CacheHit(string)              {}
func (m *fakeMetrics) CacheMiss(string)             {}
func (m *fakeMetrics) CacheInvalidated(string, int) {}

func (m *fakeMetrics) EstimateOutcome(success bool) {
	m.mu.Lock()
	m.estimates[success]++
	m.mu.Unlock()
}

func (m *fakeMetrics) FactorSetLoaded(source string, d time.Duration, err error) {
	m.mu.Lock()
	m.loads++
	if err != nil {
		m.loadErrs++
	}
	m.mu.Unlock()
}

type fakeLoader struct {
	set     *domain.CostFactorSet
	err     error
	cleared int
}

func (l *fakeLoader) Load(ctx context.Context, source string) (*domain.CostFactorSet, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.set, nil
}

func (l *fakeLoader) ClearCache() { l.cleared++ }

type publishedChange struct{ previous, current string }

type fakePublisher struct {
	err       error
	published []publishedChange
}

func (p *fakePublisher) PublishSourceChanged(ctx context.Context, previous, current string) error {
	p.published = append(p.published, publishedChange{previous, current})
	return p.err
}

type fakeSettings struct {
	rows    map[string][]byte
	saveErr error
}

func newFakeSettings() *fakeSettings { return &fakeSettings{rows: make(map[string][]byte)} }

func (s *fakeSettings) GetSetting(ctx context.Context, category, key string) ([]byte, bool, error) {
	v, ok := s.rows[category+"/"+key]
	return v, ok, nil
}

func (s *fakeSettings) SaveSetting(ctx context.Context, category, key string, value []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.rows[category+"/"+key] = value
	return nil
}

// fakeScenarioRepo keeps scenarios and variations in memory with the same
// not-found semantics as the postgres repository.
type fakeScenarioRepo struct {
	mu         sync.Mutex
	scenarios  map[uuid.UUID]domain.Scenario
	variations map[uuid.UUID][]domain.Variation
	failWith   error
	// readGate, when set, holds every GetScenario caller until all of them
	// have read, so concurrent writers start from the same snapshot.
	readGate *sync.WaitGroup
}

func newFakeScenarioRepo() *fakeScenarioRepo {
	return &fakeScenarioRepo{
		scenarios:  make(map[uuid.UUID]domain.Scenario),
		variations: make(map[uuid.UUID][]domain.Variation),
	}
}

func (r *fakeScenarioRepo) CreateScenario(ctx context.Context, s *domain.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	c := *s
	c.Variations = nil
	r.scenarios[s.ID] = c
	return nil
}

func (r *fakeScenarioRepo) GetScenario(ctx context.Context, id uuid.UUID) (*domain.Scenario, error) {
	r.mu.Lock()
	s, ok := r.scenarios[id]
	gate := r.readGate
	r.mu.Unlock()
	if gate != nil {
		gate.Done()
		gate.Wait()
	}
	if !ok {
		return nil, domain.ErrScenarioNotFound
	}
	return &s, nil
}

func (r *fakeScenarioRepo) ListScenarios(ctx context.Context, filter domain.ScenarioFilter) ([]domain.Scenario, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Scenario
	for _, s := range r.scenarios {
		if filter.SavedOnly && !s.IsSaved {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if filter.Offset >= total {
		return []domain.Scenario{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return all[filter.Offset:end], total, nil
}

func (r *fakeScenarioRepo) UpdateScenario(ctx context.Context, s *domain.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[s.ID]; !ok {
		return domain.ErrScenarioNotFound
	}
	stored := r.variations[s.ID]
	for _, v := range s.Variations {
		for i := range stored {
			if stored[i].ID == v.ID {
				stored[i].OriginalValue = v.OriginalValue
				stored[i].ImpactValue = v.ImpactValue
				stored[i].ImpactPercentage = v.ImpactPercentage
			}
		}
	}
	c := *s
	c.Variations = nil
	r.scenarios[s.ID] = c
	return nil
}

func (r *fakeScenarioRepo) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[id]; !ok {
		return domain.ErrScenarioNotFound
	}
	delete(r.scenarios, id)
	delete(r.variations, id)
	return nil
}

func (r *fakeScenarioRepo) AddVariation(ctx context.Context, v *domain.Variation) (*domain.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	if _, ok := r.scenarios[v.ScenarioID]; !ok {
		return nil, domain.ErrScenarioNotFound
	}
	r.variations[v.ScenarioID] = append(r.variations[v.ScenarioID], *v)
	return r.refreshLocked(v.ScenarioID, v.CreatedAt), nil
}

func (r *fakeScenarioRepo) RemoveVariation(ctx context.Context, scenarioID, variationID uuid.UUID, at time.Time) (*domain.Scenario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[scenarioID]; !ok {
		return nil, domain.ErrScenarioNotFound
	}
	list := r.variations[scenarioID]
	for i, v := range list {
		if v.ID == variationID {
			r.variations[scenarioID] = append(list[:i:i], list[i+1:]...)
			return r.refreshLocked(scenarioID, at), nil
		}
	}
	return nil, domain.ErrVariationNotFound
}

func (r *fakeScenarioRepo) refreshLocked(id uuid.UUID, at time.Time) *domain.Scenario {
	s := r.scenarios[id]
	s.Results = domain.RecalculateResults(s.Parameters, r.variations[id])
	s.UpdatedAt = at
	r.scenarios[id] = s

	out := s
	out.Variations = make([]domain.Variation, len(r.variations[id]))
	copy(out.Variations, r.variations[id])
	return &out
}

func (r *fakeScenarioRepo) ListVariations(ctx context.Context, scenarioID uuid.UUID) ([]domain.Variation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Variation, len(r.variations[scenarioID]))
	copy(out, r.variations[scenarioID])
	return out, nil
}

type fakeGeoRepo struct {
	groups     map[domain.GeoLevel][]domain.GroupStats
	prior      map[domain.GeoLevel][]domain.PriorAverage
	points     []domain.PropertyPoint
	aggErr     error
	priorErr   error
	aggCalls   int
	priorCalls int
	from, to   time.Time
}

func (r *fakeGeoRepo) AggregateByLevel(ctx context.Context, level domain.GeoLevel) ([]domain.GroupStats, error) {
	r.aggCalls++
	if r.aggErr != nil {
		return nil, r.aggErr
	}
	return r.groups[level], nil
}

func (r *fakeGeoRepo) PriorAverages(ctx context.Context, level domain.GeoLevel, from, to time.Time) ([]domain.PriorAverage, error) {
	r.priorCalls++
	r.from, r.to = from, to
	if r.priorErr != nil {
		return nil, r.priorErr
	}
	return r.prior[level], nil
}

func (r *fakeGeoRepo) ListPropertyPoints(ctx context.Context, since time.Time) ([]domain.PropertyPoint, error) {
	if r.aggErr != nil {
		return nil, r.aggErr
	}
	return r.points, nil
}

var errStorage = errors.New("connection refused")
