package usecases_port

import (
	"context"

	"cost-engine-service/internal/core/domain"

	"github.com/google/uuid"
)

type CreateScenarioUseCase interface {
	Execute(ctx context.Context, in domain.ScenarioInput) (*domain.Scenario, error)
}

type GetScenarioUseCase interface {
	Execute(ctx context.Context, id uuid.UUID) (*domain.Scenario, error)
}

type ListScenariosUseCase interface {
	Execute(ctx context.Context, filter domain.ScenarioFilter) ([]domain.Scenario, int, error)
}

type UpdateScenarioUseCase interface {
	Execute(ctx context.Context, id uuid.UUID, in domain.ScenarioInput) (*domain.Scenario, error)
}

type SaveScenarioUseCase interface {
	Execute(ctx context.Context, id uuid.UUID) (*domain.Scenario, error)
}

type DeleteScenarioUseCase interface {
	Execute(ctx context.Context, id uuid.UUID) error
}

type AddVariationUseCase interface {
	Execute(ctx context.Context, scenarioID uuid.UUID, in domain.VariationInput) (*domain.Variation, *domain.Scenario, error)
}

type RemoveVariationUseCase interface {
	Execute(ctx context.Context, scenarioID, variationID uuid.UUID) (*domain.Scenario, error)
}

type ListVariationsUseCase interface {
	Execute(ctx context.Context, scenarioID uuid.UUID) ([]domain.Variation, error)
}

type PreviewImpactUseCase interface {
	Execute(ctx context.Context, baseline domain.ScenarioParameters, key string, newValue domain.ParamValue) (*domain.Impact, error)
}

type CompareScenariosUseCase interface {
	Execute(ctx context.Context, ids []uuid.UUID) (*domain.ScenarioComparison, error)
}
