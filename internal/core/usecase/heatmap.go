package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/mmcloughlin/geohash"
)

const (
	heatmapCachePrefix = "heatmap:"
	trendCachePrefix   = "trend:"
)

// HeatmapService aggregates property values per geographic level and caches
// the result until the cache TTL expires or ClearCaches is called.
type HeatmapService struct {
	repo  port.GeographyRepositoryPort
	cache port.CachePort
	now   func() time.Time
}

func NewHeatmapService(repo port.GeographyRepositoryPort, cache port.CachePort, now func() time.Time) *HeatmapService {
	if now == nil {
		now = time.Now
	}
	return &HeatmapService{repo: repo, cache: cache, now: now}
}

func (s *HeatmapService) GetRegionalHeatmap(ctx context.Context) (*domain.Heatmap, error) {
	return s.GetHeatmap(ctx, domain.LevelRegion)
}

func (s *HeatmapService) GetMunicipalHeatmap(ctx context.Context) (*domain.Heatmap, error) {
	return s.GetHeatmap(ctx, domain.LevelMunicipality)
}

func (s *HeatmapService) GetNeighborhoodHeatmap(ctx context.Context) (*domain.Heatmap, error) {
	return s.GetHeatmap(ctx, domain.LevelNeighborhood)
}

// GetHeatmap builds the heatmap for one level of the region -> municipality ->
// neighborhood hierarchy.
func (s *HeatmapService) GetHeatmap(ctx context.Context, level domain.GeoLevel) (*domain.Heatmap, error) {
	if level == domain.LevelGeohash {
		return nil, domain.ValidationError("geohash heatmaps need a precision")
	}

	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "GetHeatmap",
		"level":    level,
	})

	key := heatmapCachePrefix + string(level)
	if v, ok := s.cache.Get(key); ok {
		if hm, ok := v.(*domain.Heatmap); ok {
			return hm, nil
		}
	}

	ucLogger.Info("Aggregating heatmap", nil)

	groups, err := s.repo.AggregateByLevel(ctx, level)
	if err != nil {
		ucLogger.Error("Aggregation query failed", err, nil)
		return nil, domain.NewAggregationError(fmt.Sprintf("failed to aggregate %s values", level), err)
	}

	prior, err := s.priorAverages(ctx, level)
	if err != nil {
		ucLogger.Error("Trend query failed", err, nil)
		return nil, domain.NewAggregationError(fmt.Sprintf("failed to compute %s value trends", level), err)
	}

	entities := make([]domain.GeographicAggregate, 0, len(groups))
	for _, g := range groups {
		entities = append(entities, g.ToAggregate(domain.ValueTrend(g.AvgAppraisedValue, prior[g.ID])))
	}

	hm := s.newHeatmap(level, entities)
	s.cache.Set(key, hm)

	ucLogger.Info("Heatmap aggregated", port.Fields{"entities": len(entities)})
	return hm, nil
}

// priorAverages returns group id -> average appraised value over the prior window.
func (s *HeatmapService) priorAverages(ctx context.Context, level domain.GeoLevel) (map[string]float64, error) {
	key := trendCachePrefix + string(level)
	if v, ok := s.cache.Get(key); ok {
		if m, ok := v.(map[string]float64); ok {
			return m, nil
		}
	}

	to := s.now()
	from := to.Add(-domain.TrendWindow)
	rows, err := s.repo.PriorAverages(ctx, level, from, to)
	if err != nil {
		return nil, err
	}

	m := make(map[string]float64, len(rows))
	for _, r := range rows {
		m[r.GroupID] = r.AvgValue
	}
	s.cache.Set(key, m)
	return m, nil
}

// GetGeohashHeatmap buckets geolocated properties into geohash cells of the
// given precision.
func (s *HeatmapService) GetGeohashHeatmap(ctx context.Context, precision uint) (*domain.Heatmap, error) {
	if err := domain.ValidateGeohashPrecision(precision); err != nil {
		return nil, err
	}

	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":  "GetGeohashHeatmap",
		"precision": precision,
	})

	key := fmt.Sprintf("%s%s:%d", heatmapCachePrefix, domain.LevelGeohash, precision)
	if v, ok := s.cache.Get(key); ok {
		if hm, ok := v.(*domain.Heatmap); ok {
			return hm, nil
		}
	}

	points, err := s.repo.ListPropertyPoints(ctx, s.now().Add(-domain.TrendWindow))
	if err != nil {
		ucLogger.Error("Property point query failed", err, nil)
		return nil, domain.NewAggregationError("failed to load property locations", err)
	}

	hm := s.newHeatmap(domain.LevelGeohash, bucketByGeohash(points, precision))
	s.cache.Set(key, hm)

	ucLogger.Info("Heatmap aggregated", port.Fields{"entities": len(hm.Entities), "points": len(points)})
	return hm, nil
}

type geohashBucket struct {
	count      int
	appraised  float64
	assessed   float64
	min, max   float64
	priorSum   float64
	priorCount int
}

func bucketByGeohash(points []domain.PropertyPoint, precision uint) []domain.GeographicAggregate {
	buckets := make(map[string]*geohashBucket)
	for _, p := range points {
		cell := geohash.EncodeWithPrecision(p.Latitude, p.Longitude, precision)
		b, ok := buckets[cell]
		if !ok {
			b = &geohashBucket{min: math.Inf(1), max: math.Inf(-1)}
			buckets[cell] = b
		}
		b.count++
		b.appraised += p.AppraisedValue
		b.assessed += p.AssessedValue
		b.min = math.Min(b.min, p.AppraisedValue)
		b.max = math.Max(b.max, p.AppraisedValue)
		if p.PriorValue != nil {
			b.priorSum += *p.PriorValue
			b.priorCount++
		}
	}

	cells := make([]string, 0, len(buckets))
	for cell := range buckets {
		cells = append(cells, cell)
	}
	sort.Strings(cells)

	out := make([]domain.GeographicAggregate, 0, len(cells))
	for _, cell := range cells {
		b := buckets[cell]
		n := float64(b.count)
		var prior float64
		if b.priorCount > 0 {
			prior = b.priorSum / float64(b.priorCount)
		}
		avg := b.appraised / n
		out = append(out, domain.GeographicAggregate{
			ID:                cell,
			Code:              cell,
			Name:              cell,
			PropertyCount:     b.count,
			AvgAppraisedValue: avg,
			AvgAssessedValue:  b.assessed / n,
			MinValue:          b.min,
			MaxValue:          b.max,
			TotalValue:        b.appraised,
			ValueTrend:        domain.ValueTrend(avg, prior),
		})
	}
	return out
}

func (s *HeatmapService) newHeatmap(level domain.GeoLevel, entities []domain.GeographicAggregate) *domain.Heatmap {
	averages := make([]float64, len(entities))
	for i, e := range entities {
		averages[i] = e.AvgAppraisedValue
	}
	return &domain.Heatmap{
		Level:       level,
		Entities:    entities,
		ValueRange:  domain.CalculateValueRange(averages),
		LastUpdated: s.now().UTC(),
	}
}

// ClearCaches drops every cached heatmap and trend and returns how many entries went.
func (s *HeatmapService) ClearCaches(ctx context.Context) int {
	n := s.cache.Invalidate(heatmapCachePrefix + "*")
	n += s.cache.Invalidate(trendCachePrefix + "*")
	contextkeys.LoggerFromContext(ctx).Info("Heatmap caches cleared", port.Fields{"entries": n})
	return n
}
