package usecase

import (
	"context"
	"fmt"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

// FactorTableService exposes typed lookups over the loaded factor sets.
// Configuration problems degrade to an empty set so every lookup defaults.
type FactorTableService struct {
	loader port.CostFactorLoaderPort
}

func NewFactorTableService(loader port.CostFactorLoaderPort) *FactorTableService {
	return &FactorTableService{loader: loader}
}

// FactorSet returns the set for source. Only I/O failures are returned as errors.
func (s *FactorTableService) FactorSet(ctx context.Context, source string) (*domain.CostFactorSet, error) {
	set, err := s.loader.Load(ctx, source)
	if err == nil {
		return set, nil
	}
	if domain.IsConfigurationError(err) {
		contextkeys.LoggerFromContext(ctx).Warn("Using default cost factors", port.Fields{
			"source": source,
			"reason": err.Error(),
		})
		return domain.EmptyFactorSet(source), nil
	}
	return nil, err
}

func (s *FactorTableService) Lookup(ctx context.Context, source string, t domain.FactorType, code string) (domain.FactorLookup, error) {
	set, err := s.FactorSet(ctx, source)
	if err != nil {
		return domain.FactorLookup{Type: t, Code: code, Value: t.Default()}, err
	}
	return set.Resolve(t, code), nil
}

func (s *FactorTableService) GetBaseRate(ctx context.Context, source, buildingType string) (float64, error) {
	l, err := s.Lookup(ctx, source, domain.FactorBaseRate, buildingType)
	return l.Value, err
}

func (s *FactorTableService) GetRegionalFactor(ctx context.Context, source, region string) (float64, error) {
	l, err := s.Lookup(ctx, source, domain.FactorRegion, region)
	return l.Value, err
}

func (s *FactorTableService) GetQualityFactor(ctx context.Context, source, quality string) (float64, error) {
	l, err := s.Lookup(ctx, source, domain.FactorQuality, quality)
	return l.Value, err
}

func (s *FactorTableService) GetConditionFactor(ctx context.Context, source, condition string) (float64, error) {
	l, err := s.Lookup(ctx, source, domain.FactorCondition, condition)
	return l.Value, err
}

func (s *FactorTableService) GetComplexityFactor(ctx context.Context, source, complexity string) (float64, error) {
	l, err := s.Lookup(ctx, source, domain.FactorComplexity, complexity)
	return l.Value, err
}

// GetAgeFactor maps a building age to its bracket before the lookup.
func (s *FactorTableService) GetAgeFactor(ctx context.Context, source string, age int) (float64, error) {
	l, err := s.Lookup(ctx, source, domain.FactorAging, domain.AgeBracketFor(age))
	return l.Value, err
}

// GetCostFactors answers GET /cost-factors: the full set, or just the lookups
// for the requested property type and region. Unlike the lookups it does not
// degrade: a configuration problem is returned so callers can report it.
func (s *FactorTableService) GetCostFactors(ctx context.Context, q domain.CostFactorQuery) (*domain.CostFactorView, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":      "GetCostFactors",
		"source":        q.Source,
		"property_type": q.PropertyType,
		"region":        q.Region,
	})

	ucLogger.Info("Use case started", nil)

	set, err := s.loader.Load(ctx, q.Source)
	if err != nil {
		ucLogger.Error("Failed to load factor set", err, nil)
		return nil, fmt.Errorf("get cost factors: %w", err)
	}

	view := &domain.CostFactorView{Source: set.Source, Year: set.Year}
	if q.PropertyType == "" && q.Region == "" {
		view.Factors = set
	}
	if q.PropertyType != "" {
		l := set.Resolve(domain.FactorBaseRate, q.PropertyType)
		view.BaseRate = &l
	}
	if q.Region != "" {
		l := set.Resolve(domain.FactorRegion, q.Region)
		view.RegionFactor = &l
	}

	ucLogger.Info("Use case finished successfully", nil)
	return view, nil
}
