package usecase

import (
	"context"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/google/uuid"
)

type GetScenarioUseCase struct {
	repo port.ScenarioRepositoryPort
}

func NewGetScenarioUseCase(repo port.ScenarioRepositoryPort) *GetScenarioUseCase {
	return &GetScenarioUseCase{repo: repo}
}

// Execute returns the scenario together with its variations.
func (uc *GetScenarioUseCase) Execute(ctx context.Context, id uuid.UUID) (*domain.Scenario, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":    "GetScenario",
		"scenario_id": id,
	})

	s, err := uc.repo.GetScenario(ctx, id)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}
	s.Variations, err = uc.repo.ListVariations(ctx, id)
	if err != nil {
		ucLogger.Error("Failed to load variations", err, nil)
		return nil, err
	}
	return s, nil
}

type ListScenariosUseCase struct {
	repo port.ScenarioRepositoryPort
}

func NewListScenariosUseCase(repo port.ScenarioRepositoryPort) *ListScenariosUseCase {
	return &ListScenariosUseCase{repo: repo}
}

func (uc *ListScenariosUseCase) Execute(ctx context.Context, filter domain.ScenarioFilter) ([]domain.Scenario, int, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case":   "ListScenarios",
		"saved_only": filter.SavedOnly,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})

	ucLogger.Info("Use case started", nil)

	items, total, err := uc.repo.ListScenarios(ctx, filter)
	if err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, 0, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"count": len(items), "total": total})
	return items, total, nil
}
