package usecase

import (
	"context"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

type ListCostFactorSourcesUseCase struct {
	config port.CostFactorConfigPort
}

func NewListCostFactorSourcesUseCase(config port.CostFactorConfigPort) *ListCostFactorSourcesUseCase {
	return &ListCostFactorSourcesUseCase{config: config}
}

// ActiveSource returns the configured active source name and its refresh interval in minutes.
func (uc *ListCostFactorSourcesUseCase) ActiveSource(ctx context.Context) (string, int, error) {
	cfg, err := uc.config.Load(ctx)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to read cost factor configuration", err, nil)
		return "", 0, err
	}
	return cfg.ActiveSource, int(cfg.RefreshInterval().Minutes()), nil
}

func (uc *ListCostFactorSourcesUseCase) ListSources(ctx context.Context) ([]domain.SourceInfo, error) {
	cfg, err := uc.config.Load(ctx)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to read cost factor configuration", err, nil)
		return nil, err
	}
	return cfg.ListSources(), nil
}

// SelectCostFactorSourceUseCase switches the active source, drops cached
// factor sets and announces the change.
type SelectCostFactorSourceUseCase struct {
	config    port.CostFactorConfigPort
	loader    port.CostFactorLoaderPort
	publisher port.SourceChangedPublisherPort
}

func NewSelectCostFactorSourceUseCase(
	config port.CostFactorConfigPort,
	loader port.CostFactorLoaderPort,
	publisher port.SourceChangedPublisherPort,
) *SelectCostFactorSourceUseCase {
	return &SelectCostFactorSourceUseCase{config: config, loader: loader, publisher: publisher}
}

func (uc *SelectCostFactorSourceUseCase) Execute(ctx context.Context, source string) error {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "SelectCostFactorSource",
		"source":   source,
	})

	ucLogger.Info("Use case started", nil)

	if source == "" {
		return domain.ValidationError("source is required")
	}

	cfg, err := uc.config.Load(ctx)
	if err != nil {
		ucLogger.Error("Failed to read cost factor configuration", err, nil)
		return err
	}
	if _, _, err := cfg.Resolve(source); err != nil {
		ucLogger.Warn("Requested source is unknown or disabled", nil)
		return domain.ValidationError("source %q is not configured or disabled", source)
	}

	previous := cfg.ActiveSource
	if err := uc.config.SetActiveSource(ctx, source); err != nil {
		ucLogger.Error("Failed to persist active source", err, nil)
		return err
	}
	uc.loader.ClearCache()

	if previous != source {
		if err := uc.publisher.PublishSourceChanged(ctx, previous, source); err != nil {
			// The switch is already persisted, so publishing is best effort.
			ucLogger.Error("Failed to publish source change", err, nil)
		}
	}

	ucLogger.Info("Use case finished successfully", port.Fields{"previous": previous})
	return nil
}
