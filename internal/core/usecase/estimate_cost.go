package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

// FactorSetProvider is the part of FactorTableService the estimator needs.
type FactorSetProvider interface {
	FactorSet(ctx context.Context, source string) (*domain.CostFactorSet, error)
}

type EstimateCostUseCase struct {
	factors FactorSetProvider
	metrics port.MetricsPort
	now     func() time.Time
}

func NewEstimateCostUseCase(factors FactorSetProvider, metrics port.MetricsPort, now func() time.Time) *EstimateCostUseCase {
	if now == nil {
		now = time.Now
	}
	return &EstimateCostUseCase{factors: factors, metrics: metrics, now: now}
}

// Execute never returns an error: every failure is reported as a result with Success=false.
func (uc *EstimateCostUseCase) Execute(ctx context.Context, req domain.CostEstimateRequest) domain.CostEstimateResult {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":      "EstimateCost",
		"building_type": req.BuildingType,
		"region":        req.Region,
		"source":        req.Source,
	})

	ucLogger.Info("Use case started", nil)

	result := uc.estimate(ctx, req)
	uc.metrics.EstimateOutcome(result.Success)

	if !result.Success {
		ucLogger.Warn("Estimate failed", port.Fields{"reason": result.Error})
		return result
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"cost_per_sqft": result.CostPerSqFt,
		"total_cost":    result.TotalCost,
		"warnings":      len(result.Warnings),
	})
	return result
}

func (uc *EstimateCostUseCase) estimate(ctx context.Context, req domain.CostEstimateRequest) domain.CostEstimateResult {
	if reason := areaProblem(req.Area); reason != "" {
		return domain.FailedEstimate(req.Source, reason)
	}

	set, err := uc.factors.FactorSet(ctx, req.Source)
	if err != nil {
		return factorsUnavailable(req.Source, err)
	}
	return uc.estimateWith(set, req)
}

func areaProblem(area float64) string {
	switch {
	case math.IsNaN(area) || math.IsInf(area, 0):
		return "area must be a finite number"
	case area < 0:
		return "area must not be negative"
	}
	return ""
}

func factorsUnavailable(source string, err error) domain.CostEstimateResult {
	return domain.FailedEstimate(source, fmt.Sprintf("cost factors unavailable: %v", err))
}

// estimateWith prices req against an already resolved factor set.
func (uc *EstimateCostUseCase) estimateWith(set *domain.CostFactorSet, req domain.CostEstimateRequest) domain.CostEstimateResult {
	age := uc.now().Year() - req.YearBuilt
	if age < 0 {
		age = 0
	}
	bracket := domain.AgeBracketFor(age)

	var warnings []string
	resolve := func(t domain.FactorType, code string) float64 {
		l := set.Resolve(t, code)
		if !l.Found {
			warnings = append(warnings, fmt.Sprintf("unknown %s code %q, using default %v", t, code, l.Value))
		}
		return l.Value
	}

	base := resolve(domain.FactorBaseRate, req.BuildingType)
	adj := domain.Adjustments{
		Region:    resolve(domain.FactorRegion, req.Region),
		Quality:   resolve(domain.FactorQuality, req.Quality),
		Condition: resolve(domain.FactorCondition, req.Condition),
		Age:       resolve(domain.FactorAging, bracket),
	}

	costPerSqFt := adj.Apply(base)
	total := costPerSqFt * req.Area
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return domain.FailedEstimate(set.Source, "estimate is not a finite number")
	}

	return domain.CostEstimateResult{
		Success:     true,
		BaseCost:    base,
		Adjustments: adj,
		AgeBracket:  bracket,
		CostPerSqFt: costPerSqFt,
		TotalCost:   total,
		Source:      set.Source,
		Warnings:    warnings,
	}
}
