package usecase

import (
	"context"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

// EstimateBatchUseCase prices many buildings in one call. Each distinct
// source is resolved once per batch, so every item sharing a source is priced
// against the same factor set even if a reload lands mid-batch.
type EstimateBatchUseCase struct {
	estimator *EstimateCostUseCase
}

func NewEstimateBatchUseCase(estimator *EstimateCostUseCase) *EstimateBatchUseCase {
	return &EstimateBatchUseCase{estimator: estimator}
}

type resolvedSet struct {
	set *domain.CostFactorSet
	err error
}

// Execute rejects an empty or oversized batch. Past that, failures are per
// item and never fail the batch.
func (uc *EstimateBatchUseCase) Execute(ctx context.Context, reqs []domain.CostEstimateRequest) (*domain.BatchEstimateResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "EstimateBatch",
		"count":    len(reqs),
	})

	ucLogger.Info("Use case started", nil)

	if len(reqs) == 0 {
		return nil, domain.ValidationError("at least one estimate is required")
	}
	if len(reqs) > domain.MaxBatchEstimates {
		ucLogger.Warn("Rejected batch", port.Fields{"max": domain.MaxBatchEstimates})
		return nil, domain.ValidationError("batch has %d estimates, at most %d are allowed", len(reqs), domain.MaxBatchEstimates)
	}

	sets := make(map[string]resolvedSet)
	out := &domain.BatchEstimateResult{
		Results: make([]domain.CostEstimateResult, 0, len(reqs)),
		Summary: domain.BatchSummary{Requested: len(reqs)},
	}
	for _, req := range reqs {
		result := uc.estimateOne(ctx, sets, req)
		uc.estimator.metrics.EstimateOutcome(result.Success)
		if result.Success {
			out.Summary.Successful++
		} else {
			out.Summary.Failed++
		}
		out.Results = append(out.Results, result)
	}

	ucLogger.Info("Use case finished successfully", port.Fields{
		"successful": out.Summary.Successful,
		"failed":     out.Summary.Failed,
		"sources":    len(sets),
	})
	return out, nil
}

func (uc *EstimateBatchUseCase) estimateOne(ctx context.Context, sets map[string]resolvedSet, req domain.CostEstimateRequest) domain.CostEstimateResult {
	if reason := areaProblem(req.Area); reason != "" {
		return domain.FailedEstimate(req.Source, reason)
	}

	r, ok := sets[req.Source]
	if !ok {
		r.set, r.err = uc.estimator.factors.FactorSet(ctx, req.Source)
		sets[req.Source] = r
	}
	if r.err != nil {
		return factorsUnavailable(req.Source, r.err)
	}
	return uc.estimator.estimateWith(r.set, req)
}
