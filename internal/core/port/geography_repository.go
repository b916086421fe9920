package port

import (
	"context"
	"time"

	"cost-engine-service/internal/core/domain"
)

// GeographyRepositoryPort reads the external property/geography schema.
type GeographyRepositoryPort interface {
	AggregateByLevel(ctx context.Context, level domain.GeoLevel) ([]domain.GroupStats, error)
	// PriorAverages returns per-group average appraised values for properties
	// valued in [from, to).
	PriorAverages(ctx context.Context, level domain.GeoLevel, from, to time.Time) ([]domain.PriorAverage, error)
	// ListPropertyPoints returns every geolocated property; PriorValue is the
	// average of its value history recorded since the given time.
	ListPropertyPoints(ctx context.Context, since time.Time) ([]domain.PropertyPoint, error)
}
