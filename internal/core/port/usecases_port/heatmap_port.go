package usecases_port

import (
	"context"

	"cost-engine-service/internal/core/domain"
)

type HeatmapUseCase interface {
	GetHeatmap(ctx context.Context, level domain.GeoLevel) (*domain.Heatmap, error)
	GetGeohashHeatmap(ctx context.Context, precision uint) (*domain.Heatmap, error)
	ClearCaches(ctx context.Context) int
}
