package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
)

const factorCachePrefix = "factors:"

type cachedFactorSet struct {
	set      *domain.CostFactorSet
	loadedAt time.Time
}

// LoadCostFactorsUseCase resolves a named source through the configuration,
// reads it from the matching store and keeps the parsed set in the cache
// for the configured refresh interval.
type LoadCostFactorsUseCase struct {
	config    port.CostFactorConfigPort
	readers   map[domain.SourceKind]port.FactorSetReaderPort
	validator port.FactorSetValidatorPort
	cache     port.CachePort
	metrics   port.MetricsPort
	now       func() time.Time
}

func NewLoadCostFactorsUseCase(
	config port.CostFactorConfigPort,
	readers map[domain.SourceKind]port.FactorSetReaderPort,
	validator port.FactorSetValidatorPort,
	cache port.CachePort,
	metrics port.MetricsPort,
	now func() time.Time,
) *LoadCostFactorsUseCase {
	if now == nil {
		now = time.Now
	}
	return &LoadCostFactorsUseCase{
		config:    config,
		readers:   readers,
		validator: validator,
		cache:     cache,
		metrics:   metrics,
		now:       now,
	}
}

// Load returns the factor set for source (the active one when empty).
// A *domain.ConfigurationError is returned for unknown, disabled, missing or
// malformed sources; any other error is an I/O failure of the backing store.
func (uc *LoadCostFactorsUseCase) Load(ctx context.Context, source string) (*domain.CostFactorSet, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "LoadCostFactors",
		"source":   source,
	})

	cfg, err := uc.config.Load(ctx)
	if err != nil {
		ucLogger.Error("Failed to read cost factor configuration", err, nil)
		return nil, err
	}

	name, desc, err := cfg.Resolve(source)
	if err != nil {
		ucLogger.Error("Cost factor source is not available", err, nil)
		return nil, err
	}

	key := factorCachePrefix + name
	if v, ok := uc.cache.Get(key); ok {
		if entry, ok := v.(cachedFactorSet); ok && uc.now().Sub(entry.loadedAt) < cfg.RefreshInterval() {
			ucLogger.Debug("Factor set served from cache", port.Fields{"resolved_source": name})
			return entry.set, nil
		}
	}

	started := uc.now()
	set, err := uc.read(ctx, name, desc)
	uc.metrics.FactorSetLoaded(name, uc.now().Sub(started), err)
	if err != nil {
		ucLogger.Error("Failed to load factor set", err, port.Fields{"resolved_source": name, "kind": desc.Kind})
		return nil, err
	}

	uc.cache.Set(key, cachedFactorSet{set: set, loadedAt: uc.now()})
	ucLogger.Info("Factor set loaded", port.Fields{"resolved_source": name, "year": set.Year})

	return set, nil
}

func (uc *LoadCostFactorsUseCase) read(ctx context.Context, name string, desc domain.SourceDescriptor) (*domain.CostFactorSet, error) {
	reader, ok := uc.readers[desc.Kind]
	if !ok {
		return nil, domain.NewConfigurationError(name, domain.ErrSourceNotConfigured,
			fmt.Errorf("unsupported source kind %q", desc.Kind))
	}

	raw, err := reader.ReadFactorSet(ctx, name, desc)
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotConfigured) {
			return nil, domain.NewConfigurationError(name, domain.ErrSourceNotConfigured, err)
		}
		return nil, fmt.Errorf("read factor set %q: %w", name, err)
	}

	return decodeFactorSet(name, raw, uc.validator)
}

// ClearCache forces the next Load of every source to hit the store.
func (uc *LoadCostFactorsUseCase) ClearCache() {
	uc.cache.Invalidate(factorCachePrefix + "*")
}

func decodeFactorSet(name string, raw []byte, validator port.FactorSetValidatorPort) (*domain.CostFactorSet, error) {
	if validator != nil {
		if err := validator.ValidateFactorSet(raw); err != nil {
			return nil, domain.NewConfigurationError(name, domain.ErrMalformedFactorSet, err)
		}
	}

	var set domain.CostFactorSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, domain.NewConfigurationError(name, domain.ErrMalformedFactorSet, err)
	}
	if err := set.Validate(); err != nil {
		return nil, domain.NewConfigurationError(name, domain.ErrMalformedFactorSet, err)
	}
	if set.Source == "" {
		set.Source = name
	}

	return &set, nil
}
