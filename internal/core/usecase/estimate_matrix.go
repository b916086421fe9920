package usecase

import (
	"context"
	"math"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

// EstimateMatrixUseCase values every combination of market, location and
// percent-good factors for one building.
type EstimateMatrixUseCase struct{}

func NewEstimateMatrixUseCase() *EstimateMatrixUseCase {
	return &EstimateMatrixUseCase{}
}

func (uc *EstimateMatrixUseCase) Execute(ctx context.Context, req domain.MatrixRequest) (*domain.MatrixResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case":     "EstimateMatrix",
		"combinations": req.Combinations(),
	})

	ucLogger.Info("Use case started", nil)

	if err := validateMatrix(req); err != nil {
		ucLogger.Warn("Rejected matrix request", port.Fields{"reason": err.Error()})
		return nil, err
	}

	result := &domain.MatrixResult{Rows: make([]domain.MatrixRow, 0, req.Combinations())}
	finals := make([]float64, 0, req.Combinations())
	for _, market := range req.MarketFactors {
		for _, location := range req.LocationFactors {
			rcn := domain.ReplacementCostNew(req.BaseCost, req.SquareFootage, market, location)
			for _, good := range req.PercentGood {
				final := rcn * good
				result.Rows = append(result.Rows, domain.MatrixRow{
					MarketFactor:   market,
					LocationFactor: location,
					PercentGood:    good,
					RCN:            rcn,
					FinalValue:     final,
				})
				finals = append(finals, final)
			}
		}
	}
	result.Summary = domain.Summarize(finals)

	ucLogger.Info("Use case finished successfully", nil)
	return result, nil
}

func validateMatrix(req domain.MatrixRequest) error {
	n := req.Combinations()
	if n == 0 {
		return domain.ValidationError("market, location and percent-good factors must all be non-empty")
	}
	if n > domain.MaxMatrixCombinations {
		return domain.ValidationError("matrix has %d combinations, at most %d allowed", n, domain.MaxMatrixCombinations)
	}
	if !finiteNonNegative(req.BaseCost) || !finiteNonNegative(req.SquareFootage) {
		return domain.ValidationError("base cost and square footage must be finite and non-negative")
	}
	for _, list := range [][]float64{req.MarketFactors, req.LocationFactors} {
		for _, f := range list {
			if !finiteNonNegative(f) || f == 0 {
				return domain.ValidationError("factor %v must be a positive number", f)
			}
		}
	}
	for _, g := range req.PercentGood {
		if !finiteNonNegative(g) || g > 1 {
			return domain.ValidationError("percent good %v must be between 0 and 1", g)
		}
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
