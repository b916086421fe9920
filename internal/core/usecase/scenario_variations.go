package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/google/uuid"
)

type AddVariationUseCase struct {
	repo  port.ScenarioRepositoryPort
	rates domain.ImpactRates
	now   func() time.Time
}

func NewAddVariationUseCase(repo port.ScenarioRepositoryPort, rates domain.ImpactRates, now func() time.Time) *AddVariationUseCase {
	if now == nil {
		now = time.Now
	}
	return &AddVariationUseCase{repo: repo, rates: rates, now: now}
}

// Execute computes the impact of the variation, stores it and returns the
// scenario with refreshed results.
func (uc *AddVariationUseCase) Execute(ctx context.Context, scenarioID uuid.UUID, in domain.VariationInput) (*domain.Variation, *domain.Scenario, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":      "AddVariation",
		"scenario_id":   scenarioID,
		"parameter_key": in.ParameterKey,
	})

	ucLogger.Info("Use case started", nil)

	s, err := uc.repo.GetScenario(ctx, scenarioID)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, nil, err
	}

	impact, err := domain.ComputeImpact(s.Parameters, in.ParameterKey, in.NewValue, uc.rates)
	if err != nil {
		ucLogger.Warn("Rejected variation", port.Fields{"reason": err.Error()})
		return nil, nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = in.ParameterKey + " -> " + impact.NewValue.String()
	}
	v := &domain.Variation{
		ID:               uuid.New(),
		ScenarioID:       scenarioID,
		Name:             name,
		ParameterKey:     in.ParameterKey,
		OriginalValue:    impact.OriginalValue,
		NewValue:         impact.NewValue,
		ImpactValue:      impact.ImpactValue,
		ImpactPercentage: impact.ImpactPercentage,
		CreatedAt:        uc.now().UTC(),
	}

	updated, err := uc.repo.AddVariation(ctx, v)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"variation_id": v.ID,
		"impact":       v.ImpactValue,
	})
	return v, updated, nil
}

type RemoveVariationUseCase struct {
	repo port.ScenarioRepositoryPort
	now  func() time.Time
}

func NewRemoveVariationUseCase(repo port.ScenarioRepositoryPort, now func() time.Time) *RemoveVariationUseCase {
	if now == nil {
		now = time.Now
	}
	return &RemoveVariationUseCase{repo: repo, now: now}
}

func (uc *RemoveVariationUseCase) Execute(ctx context.Context, scenarioID, variationID uuid.UUID) (*domain.Scenario, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":     "RemoveVariation",
		"scenario_id":  scenarioID,
		"variation_id": variationID,
	})

	s, err := uc.repo.RemoveVariation(ctx, scenarioID, variationID, uc.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrVariationNotFound) || errors.Is(err, domain.ErrScenarioNotFound) {
			ucLogger.Warn("Nothing to remove", port.Fields{"reason": err.Error()})
		} else {
			ucLogger.Error("Storage returned an error", err, nil)
		}
		return nil, err
	}

	ucLogger.Info("Variation removed", port.Fields{"remaining": s.Results.VariationCount})
	return s, nil
}

type ListVariationsUseCase struct {
	repo port.ScenarioRepositoryPort
}

func NewListVariationsUseCase(repo port.ScenarioRepositoryPort) *ListVariationsUseCase {
	return &ListVariationsUseCase{repo: repo}
}

func (uc *ListVariationsUseCase) Execute(ctx context.Context, scenarioID uuid.UUID) ([]domain.Variation, error) {
	if _, err := uc.repo.GetScenario(ctx, scenarioID); err != nil {
		return nil, err
	}
	return uc.repo.ListVariations(ctx, scenarioID)
}

// PreviewImpactUseCase evaluates a change without storing anything.
type PreviewImpactUseCase struct {
	rates domain.ImpactRates
}

func NewPreviewImpactUseCase(rates domain.ImpactRates) *PreviewImpactUseCase {
	return &PreviewImpactUseCase{rates: rates}
}

func (uc *PreviewImpactUseCase) Execute(ctx context.Context, baseline domain.ScenarioParameters, key string, newValue domain.ParamValue) (*domain.Impact, error) {
	impact, err := domain.ComputeImpact(baseline, key, newValue, uc.rates)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Debug("Impact preview rejected", port.Fields{"parameter_key": key, "reason": err.Error()})
		return nil, err
	}
	return &impact, nil
}

type CompareScenariosUseCase struct {
	repo port.ScenarioRepositoryPort
}

func NewCompareScenariosUseCase(repo port.ScenarioRepositoryPort) *CompareScenariosUseCase {
	return &CompareScenariosUseCase{repo: repo}
}

func (uc *CompareScenariosUseCase) Execute(ctx context.Context, ids []uuid.UUID) (*domain.ScenarioComparison, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "CompareScenarios",
		"count":    len(ids),
	})

	if len(ids) < 2 {
		return nil, domain.ValidationError("at least two scenarios are required for a comparison")
	}

	scenarios := make([]domain.Scenario, 0, len(ids))
	for _, id := range ids {
		s, err := uc.repo.GetScenario(ctx, id)
		if err != nil {
			ucLogger.Error("Storage returned an error", err, port.Fields{"scenario_id": id})
			return nil, err
		}
		scenarios = append(scenarios, *s)
	}

	cmp := domain.CompareScenarios(scenarios)
	return &cmp, nil
}
