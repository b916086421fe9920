package rest

import (
	"math"
	"time"

	"cost-engine-service/internal/core/domain"
)

type SelectSourceRequest struct {
	Source string `json:"source"`
}

type ActiveSourceResponse struct {
	Source                 string `json:"source"`
	RefreshIntervalMinutes int    `json:"refreshIntervalMinutes"`
}

type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// EstimateRequest accepts area as a number or a numeric string; anything else
// yields a failed estimate rather than a decode error.
type EstimateRequest struct {
	BuildingType string            `json:"buildingType"`
	Region       string            `json:"region"`
	Quality      string            `json:"quality"`
	Condition    string            `json:"condition"`
	YearBuilt    int               `json:"yearBuilt"`
	Area         domain.ParamValue `json:"area"`
	Source       string            `json:"source,omitempty"`
}

func (r EstimateRequest) toDomain() domain.CostEstimateRequest {
	area, ok := r.Area.Float()
	if !ok {
		area = math.NaN()
	}
	return domain.CostEstimateRequest{
		BuildingType: r.BuildingType,
		Region:       r.Region,
		Quality:      r.Quality,
		Condition:    r.Condition,
		YearBuilt:    r.YearBuilt,
		Area:         area,
		Source:       r.Source,
	}
}

type BatchEstimateRequest struct {
	Estimates []EstimateRequest `json:"estimates"`
}

func (r BatchEstimateRequest) toDomain() []domain.CostEstimateRequest {
	out := make([]domain.CostEstimateRequest, 0, len(r.Estimates))
	for _, e := range r.Estimates {
		out = append(out, e.toDomain())
	}
	return out
}

type MatrixRequestDTO struct {
	BaseCost        float64   `json:"baseCost"`
	SquareFootage   float64   `json:"squareFootage"`
	MarketFactors   []float64 `json:"marketFactors"`
	LocationFactors []float64 `json:"locationFactors"`
	PercentGood     []float64 `json:"percentGood"`
}

func (r MatrixRequestDTO) toDomain() domain.MatrixRequest {
	return domain.MatrixRequest{
		BaseCost:        r.BaseCost,
		SquareFootage:   r.SquareFootage,
		MarketFactors:   r.MarketFactors,
		LocationFactors: r.LocationFactors,
		PercentGood:     r.PercentGood,
	}
}

type ScenarioParametersDTO struct {
	BaseCost      float64 `json:"baseCost"`
	SquareFootage float64 `json:"squareFootage"`
	Complexity    float64 `json:"complexity"`
	Region        string  `json:"region"`
}

func (p ScenarioParametersDTO) toDomain() domain.ScenarioParameters {
	return domain.ScenarioParameters{
		BaseCost:      p.BaseCost,
		SquareFootage: p.SquareFootage,
		Complexity:    p.Complexity,
		Region:        p.Region,
	}
}

type ScenarioRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  ScenarioParametersDTO `json:"parameters"`
	IsSaved     bool                  `json:"isSaved"`
}

func (r ScenarioRequest) toDomain() domain.ScenarioInput {
	return domain.ScenarioInput{
		Name:        r.Name,
		Description: r.Description,
		Parameters:  r.Parameters.toDomain(),
		IsSaved:     r.IsSaved,
	}
}

type VariationRequest struct {
	Name         string            `json:"name"`
	ParameterKey string            `json:"parameterKey"`
	NewValue     domain.ParamValue `json:"newValue"`
}

type ImpactPreviewRequest struct {
	Parameters   ScenarioParametersDTO `json:"parameters"`
	ParameterKey string                `json:"parameterKey"`
	NewValue     domain.ParamValue     `json:"newValue"`
}

type CompareRequest struct {
	ScenarioIDs []string `json:"scenarioIds"`
}

type ScenarioListResponse struct {
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Data   []domain.Scenario `json:"data"`
}

type VariationResponse struct {
	Variation *domain.Variation `json:"variation"`
	Scenario  *domain.Scenario  `json:"scenario"`
}

type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
