package usecase

import (
	"context"
	"strings"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/google/uuid"
)

// UpdateScenarioUseCase replaces the editable fields of a scenario. When the
// baseline changes every variation impact is recomputed against it.
type UpdateScenarioUseCase struct {
	repo  port.ScenarioRepositoryPort
	rates domain.ImpactRates
	now   func() time.Time
}

func NewUpdateScenarioUseCase(repo port.ScenarioRepositoryPort, rates domain.ImpactRates, now func() time.Time) *UpdateScenarioUseCase {
	if now == nil {
		now = time.Now
	}
	return &UpdateScenarioUseCase{repo: repo, rates: rates, now: now}
}

func (uc *UpdateScenarioUseCase) Execute(ctx context.Context, id uuid.UUID, in domain.ScenarioInput) (*domain.Scenario, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":    "UpdateScenario",
		"scenario_id": id,
	})

	ucLogger.Info("Use case started", nil)

	if err := in.Validate(); err != nil {
		return nil, err
	}

	s, err := uc.repo.GetScenario(ctx, id)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	variations, err := uc.repo.ListVariations(ctx, id)
	if err != nil {
		ucLogger.Error("Failed to load variations", err, nil)
		return nil, err
	}

	if s.Parameters != in.Parameters {
		for i := range variations {
			impact, err := domain.ComputeImpact(in.Parameters, variations[i].ParameterKey, variations[i].NewValue, uc.rates)
			if err != nil {
				return nil, err
			}
			variations[i].OriginalValue = impact.OriginalValue
			variations[i].ImpactValue = impact.ImpactValue
			variations[i].ImpactPercentage = impact.ImpactPercentage
		}
	}

	s.Name = strings.TrimSpace(in.Name)
	s.Description = in.Description
	s.Parameters = in.Parameters
	s.IsSaved = s.IsSaved || in.IsSaved
	s.Variations = variations
	s.Results = domain.RecalculateResults(s.Parameters, variations)
	s.UpdatedAt = uc.now().UTC()

	if err := uc.repo.UpdateScenario(ctx, s); err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", nil)
	return s, nil
}

// SaveScenarioUseCase flips a draft scenario to saved.
type SaveScenarioUseCase struct {
	repo port.ScenarioRepositoryPort
	now  func() time.Time
}

func NewSaveScenarioUseCase(repo port.ScenarioRepositoryPort, now func() time.Time) *SaveScenarioUseCase {
	if now == nil {
		now = time.Now
	}
	return &SaveScenarioUseCase{repo: repo, now: now}
}

func (uc *SaveScenarioUseCase) Execute(ctx context.Context, id uuid.UUID) (*domain.Scenario, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "SaveScenario",
		"scenario_id": id,
	})

	s, err := uc.repo.GetScenario(ctx, id)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	if s.IsSaved {
		return s, nil
	}

	s.IsSaved = true
	s.UpdatedAt = uc.now().UTC()
	if err := uc.repo.UpdateScenario(ctx, s); err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	ucLogger.Info("Scenario saved", nil)
	return s, nil
}

type DeleteScenarioUseCase struct {
	repo port.ScenarioRepositoryPort
}

func NewDeleteScenarioUseCase(repo port.ScenarioRepositoryPort) *DeleteScenarioUseCase {
	return &DeleteScenarioUseCase{repo: repo}
}

// Execute deletes the scenario; its variations go with it.
func (uc *DeleteScenarioUseCase) Execute(ctx context.Context, id uuid.UUID) error {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "DeleteScenario",
		"scenario_id": id,
	})

	if err := uc.repo.DeleteScenario(ctx, id); err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return err
	}

	ucLogger.Info("Scenario deleted", nil)
	return nil
}
