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

type CreateScenarioUseCase struct {
	repo port.ScenarioRepositoryPort
	now  func() time.Time
}

func NewCreateScenarioUseCase(repo port.ScenarioRepositoryPort, now func() time.Time) *CreateScenarioUseCase {
	if now == nil {
		now = time.Now
	}
	return &CreateScenarioUseCase{repo: repo, now: now}
}

func (uc *CreateScenarioUseCase) Execute(ctx context.Context, in domain.ScenarioInput) (*domain.Scenario, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "CreateScenario",
		"name":     in.Name,
	})

	ucLogger.Info("Use case started", nil)

	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	s := &domain.Scenario{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Parameters:  in.Parameters,
		Results:     domain.RecalculateResults(in.Parameters, nil),
		IsSaved:     in.IsSaved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.CreateScenario(ctx, s); err != nil {
		ucLogger.Error("Storage returned an error", err, nil)
		return nil, err
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"scenario_id": s.ID})
	return s, nil
}
