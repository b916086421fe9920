package port

import (
	"context"
	"time"

	"cost-engine-service/internal/core/domain"

	"github.com/google/uuid"
)

// ScenarioRepositoryPort persists scenarios and their variations.
// Missing rows are reported as domain.ErrScenarioNotFound / domain.ErrVariationNotFound.
type ScenarioRepositoryPort interface {
	CreateScenario(ctx context.Context, s *domain.Scenario) error
	GetScenario(ctx context.Context, id uuid.UUID) (*domain.Scenario, error)
	ListScenarios(ctx context.Context, filter domain.ScenarioFilter) ([]domain.Scenario, int, error)
	UpdateScenario(ctx context.Context, s *domain.Scenario) error
	DeleteScenario(ctx context.Context, id uuid.UUID) error

	// AddVariation and RemoveVariation recompute the scenario results from the
	// stored variations atomically with the write and return the scenario as
	// committed, variations included.
	AddVariation(ctx context.Context, v *domain.Variation) (*domain.Scenario, error)
	RemoveVariation(ctx context.Context, scenarioID, variationID uuid.UUID, at time.Time) (*domain.Scenario, error)
	ListVariations(ctx context.Context, scenarioID uuid.UUID) ([]domain.Variation, error)
}
