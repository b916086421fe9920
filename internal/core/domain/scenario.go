package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Parameter keys a variation may change.
const (
	ParamComplexity    = "complexity"
	ParamSquareFootage = "squareFootage"
	ParamRegion        = "region"
	ParamBaseCost      = "baseCost"
)

// ScenarioParameters is the baseline a what-if scenario starts from.
type ScenarioParameters struct {
	BaseCost      float64 `json:"baseCost"`
	SquareFootage float64 `json:"squareFootage"`
	Complexity    float64 `json:"complexity"`
	Region        string  `json:"region"`
}

// ScenarioResults is recomputed whenever the variations of a scenario change.
type ScenarioResults struct {
	AdjustedCost          float64 `json:"adjustedCost"`
	TotalImpact           float64 `json:"totalImpact"`
	TotalImpactPercentage float64 `json:"totalImpactPercentage"`
	VariationCount        int     `json:"variationCount"`
}

type Scenario struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  ScenarioParameters `json:"parameters"`
	Results     ScenarioResults    `json:"results"`
	IsSaved     bool               `json:"isSaved"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	Variations  []Variation        `json:"variations,omitempty"`
}

type Variation struct {
	ID               uuid.UUID  `json:"id"`
	ScenarioID       uuid.UUID  `json:"scenarioId"`
	Name             string     `json:"name"`
	ParameterKey     string     `json:"parameterKey"`
	OriginalValue    ParamValue `json:"originalValue"`
	NewValue         ParamValue `json:"newValue"`
	ImpactValue      float64    `json:"impactValue"`
	ImpactPercentage float64    `json:"impactPercentage"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ScenarioInput carries the user-editable fields of a scenario.
type ScenarioInput struct {
	Name        string
	Description string
	Parameters  ScenarioParameters
	IsSaved     bool
}

// Validate checks the name and that numeric parameters are finite and non-negative.
func (in ScenarioInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationError("scenario name is required")
	}
	p := in.Parameters
	for name, v := range map[string]float64{
		ParamBaseCost:      p.BaseCost,
		ParamSquareFootage: p.SquareFootage,
		ParamComplexity:    p.Complexity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ValidationError("%s must be a finite non-negative number", name)
		}
	}
	return nil
}

// VariationInput is a proposed change of one baseline parameter.
type VariationInput struct {
	Name         string
	ParameterKey string
	NewValue     ParamValue
}

// ScenarioFilter selects scenarios for listing.
type ScenarioFilter struct {
	SavedOnly bool
	Limit     int
	Offset    int
}

// ParamValue is a scenario parameter value: a number or a text code.
// It encodes to and decodes from a bare JSON number or string.
type ParamValue struct {
	Num    float64
	Text   string
	IsText bool
}

func NumberValue(v float64) ParamValue { return ParamValue{Num: v} }

func TextValue(s string) ParamValue { return ParamValue{Text: s, IsText: true} }

// Float returns the numeric value. Text that parses as a number is accepted.
func (p ParamValue) Float() (float64, bool) {
	if !p.IsText {
		return p.Num, true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Text), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (p ParamValue) String() string {
	if p.IsText {
		return p.Text
	}
	return strconv.FormatFloat(p.Num, 'f', -1, 64)
}

func (p ParamValue) MarshalJSON() ([]byte, error) {
	if p.IsText {
		return json.Marshal(p.Text)
	}
	return json.Marshal(p.Num)
}

func (p *ParamValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = TextValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parameter value must be a number or a string: %w", err)
	}
	*p = NumberValue(f)
	return nil
}

// ImpactRates are the constants of the simplified impact model.
type ImpactRates struct {
	UnitAreaRate     float64 // currency per square foot
	RegionImpactRate float64 // fraction of base cost when the region changes
}

func DefaultImpactRates() ImpactRates {
	return ImpactRates{UnitAreaRate: 100, RegionImpactRate: 0.05}
}

// Impact is the cost delta of changing one baseline parameter.
type Impact struct {
	OriginalValue    ParamValue `json:"originalValue"`
	NewValue         ParamValue `json:"newValue"`
	ImpactValue      float64    `json:"impactValue"`
	ImpactPercentage float64    `json:"impactPercentage"`
}

// OriginalValue returns the baseline value for a parameter key.
func (p ScenarioParameters) OriginalValue(key string) (ParamValue, error) {
	switch key {
	case ParamComplexity:
		return NumberValue(p.Complexity), nil
	case ParamSquareFootage:
		return NumberValue(p.SquareFootage), nil
	case ParamRegion:
		return TextValue(p.Region), nil
	case ParamBaseCost:
		return NumberValue(p.BaseCost), nil
	default:
		return ParamValue{}, ValidationError("unknown parameter key %q", key)
	}
}

// ComputeImpact evaluates the cost delta of setting key to newValue on the baseline.
func ComputeImpact(baseline ScenarioParameters, key string, newValue ParamValue, rates ImpactRates) (Impact, error) {
	original, err := baseline.OriginalValue(key)
	if err != nil {
		return Impact{}, err
	}

	var impact float64
	switch key {
	case ParamRegion:
		if !strings.EqualFold(strings.TrimSpace(newValue.String()), strings.TrimSpace(original.Text)) {
			impact = baseline.BaseCost * rates.RegionImpactRate
		}
	default:
		nv, ok := newValue.Float()
		if !ok {
			return Impact{}, ValidationError("parameter %q requires a numeric value, got %q", key, newValue.String())
		}
		ov, _ := original.Float()
		delta := nv - ov
		switch key {
		case ParamComplexity:
			impact = baseline.BaseCost * delta
		case ParamSquareFootage:
			impact = delta * rates.UnitAreaRate
		case ParamBaseCost:
			impact = delta
		}
		newValue = NumberValue(nv)
	}

	if math.IsNaN(impact) || math.IsInf(impact, 0) {
		return Impact{}, ValidationError("impact for %q is not a finite number", key)
	}

	return Impact{
		OriginalValue:    original,
		NewValue:         newValue,
		ImpactValue:      impact,
		ImpactPercentage: percentOf(impact, baseline.BaseCost),
	}, nil
}

// RecalculateResults sums the impact of every variation on top of the baseline.
func RecalculateResults(params ScenarioParameters, variations []Variation) ScenarioResults {
	var total float64
	for _, v := range variations {
		total += v.ImpactValue
	}
	return ScenarioResults{
		AdjustedCost:          params.BaseCost + total,
		TotalImpact:           total,
		TotalImpactPercentage: percentOf(total, params.BaseCost),
		VariationCount:        len(variations),
	}
}

// ScenarioComparison ranks scenarios by adjusted cost.
type ScenarioComparison struct {
	Entries          []ComparisonEntry `json:"entries"`
	BestIndex        int               `json:"bestIndex"`
	WorstIndex       int               `json:"worstIndex"`
	Spread           float64           `json:"spread"`
	SpreadPercentage float64           `json:"spreadPercentage"`
}

type ComparisonEntry struct {
	ScenarioID   uuid.UUID `json:"scenarioId"`
	Name         string    `json:"name"`
	BaseCost     float64   `json:"baseCost"`
	AdjustedCost float64   `json:"adjustedCost"`
	// ImpactRatio is adjusted cost over base cost, 0 when base cost is 0.
	ImpactRatio float64 `json:"impactRatio"`
}

// CompareScenarios picks the highest (best) and lowest (worst) adjusted cost.
// Spread percentage is relative to the lowest cost.
func CompareScenarios(scenarios []Scenario) ScenarioComparison {
	cmp := ScenarioComparison{Entries: make([]ComparisonEntry, 0, len(scenarios))}
	if len(scenarios) == 0 {
		return cmp
	}
	for i, s := range scenarios {
		e := ComparisonEntry{
			ScenarioID:   s.ID,
			Name:         s.Name,
			BaseCost:     s.Parameters.BaseCost,
			AdjustedCost: s.Results.AdjustedCost,
		}
		if s.Parameters.BaseCost != 0 {
			e.ImpactRatio = s.Results.AdjustedCost / s.Parameters.BaseCost
		}
		cmp.Entries = append(cmp.Entries, e)
		if e.AdjustedCost > cmp.Entries[cmp.BestIndex].AdjustedCost {
			cmp.BestIndex = i
		}
		if e.AdjustedCost < cmp.Entries[cmp.WorstIndex].AdjustedCost {
			cmp.WorstIndex = i
		}
	}
	best := cmp.Entries[cmp.BestIndex].AdjustedCost
	worst := cmp.Entries[cmp.WorstIndex].AdjustedCost
	cmp.Spread = best - worst
	cmp.SpreadPercentage = percentOf(cmp.Spread, worst)
	return cmp
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return Round2(part / whole * 100)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
