package domain

// CostEstimateRequest is the input to a single building-cost estimate.
type CostEstimateRequest struct {
	BuildingType string
	Region       string
	Quality      string
	Condition    string
	YearBuilt    int
	Area         float64
	Source       string // empty means the active source
}

// Adjustments holds the multipliers applied to the base rate.
type Adjustments struct {
	Region    float64 `json:"region"`
	Quality   float64 `json:"quality"`
	Condition float64 `json:"condition"`
	Age       float64 `json:"age"`
}

// Apply multiplies base by each adjustment in turn, left to right, so the
// rounding matches base × region × quality × condition × age as written.
func (a Adjustments) Apply(base float64) float64 {
	return base * a.Region * a.Quality * a.Condition * a.Age
}

// CostEstimateResult is the tagged outcome of an estimate. When Success is
// false only Error (and Source, if known) are meaningful.
type CostEstimateResult struct {
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	BaseCost    float64     `json:"baseCost"`
	Adjustments Adjustments `json:"adjustments"`
	AgeBracket  string      `json:"ageBracket,omitempty"`
	CostPerSqFt float64     `json:"costPerSqFt"`
	TotalCost   float64     `json:"totalCost"`
	Source      string      `json:"source"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// FailedEstimate builds a tagged failure result.
func FailedEstimate(source, reason string) CostEstimateResult {
	return CostEstimateResult{Success: false, Error: reason, Source: source}
}

// MaxBatchEstimates caps the number of requests in one batch estimate.
const MaxBatchEstimates = 100

// BatchSummary counts the outcomes of a batch estimate.
type BatchSummary struct {
	Requested  int `json:"requested"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchEstimateResult holds one result per request, in request order.
type BatchEstimateResult struct {
	Results []CostEstimateResult `json:"results"`
	Summary BatchSummary         `json:"summary"`
}

// MatrixRequest lists the factor values to combine for a valuation matrix.
type MatrixRequest struct {
	BaseCost        float64
	SquareFootage   float64
	MarketFactors   []float64
	LocationFactors []float64
	PercentGood     []float64
}

// MaxMatrixCombinations caps the size of a valuation matrix.
const MaxMatrixCombinations = 100

// Combinations is the number of rows the request expands to.
func (r MatrixRequest) Combinations() int {
	return len(r.MarketFactors) * len(r.LocationFactors) * len(r.PercentGood)
}

// MatrixRow is one combination of a valuation matrix.
type MatrixRow struct {
	MarketFactor   float64 `json:"marketFactor"`
	LocationFactor float64 `json:"locationFactor"`
	PercentGood    float64 `json:"percentGood"`
	RCN            float64 `json:"rcn"`
	FinalValue     float64 `json:"finalValue"`
}

// MatrixSummary describes the spread of final values across a matrix.
type MatrixSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Spread float64 `json:"spread"`
}

// MatrixResult is the full valuation matrix.
type MatrixResult struct {
	Rows    []MatrixRow   `json:"rows"`
	Summary MatrixSummary `json:"summary"`
}

// ReplacementCostNew is base cost per square foot times area, scaled by the
// market and location factors.
func ReplacementCostNew(baseCost, sqft, market, location float64) float64 {
	return baseCost * sqft * market * location
}

// Summarize returns min, max, average and spread of the given values.
func Summarize(values []float64) MatrixSummary {
	if len(values) == 0 {
		return MatrixSummary{}
	}
	s := MatrixSummary{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Avg = sum / float64(len(values))
	s.Spread = s.Max - s.Min
	return s
}
