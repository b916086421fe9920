package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FactorType identifies one of the tables inside a CostFactorSet.
type FactorType int

const (
	FactorBaseRate FactorType = iota
	FactorRegion
	FactorQuality
	FactorCondition
	FactorComplexity
	FactorAging

	factorTypeCount
)

// factorTable describes how a FactorType is read from a set. The array is
// sized by factorTypeCount, so adding a type without a row fails to compile.
type factorTable struct {
	name     string
	fallback float64
	table    func(s *CostFactorSet) map[string]float64
}

var factorTables = [factorTypeCount]factorTable{
	FactorBaseRate:   {name: "baseRate", fallback: 0, table: func(s *CostFactorSet) map[string]float64 { return s.BaseRates }},
	FactorRegion:     {name: "region", fallback: 1.0, table: func(s *CostFactorSet) map[string]float64 { return s.RegionFactors }},
	FactorQuality:    {name: "quality", fallback: 1.0, table: func(s *CostFactorSet) map[string]float64 { return s.QualityFactors }},
	FactorCondition:  {name: "condition", fallback: 1.0, table: func(s *CostFactorSet) map[string]float64 { return s.ConditionFactors }},
	FactorComplexity: {name: "complexity", fallback: 1.0, table: func(s *CostFactorSet) map[string]float64 { return s.ComplexityFactors }},
	FactorAging:      {name: "aging", fallback: 1.0, table: func(s *CostFactorSet) map[string]float64 { return s.AgingFactors }},
}

func (t FactorType) String() string {
	if t < 0 || t >= factorTypeCount {
		return fmt.Sprintf("FactorType(%d)", int(t))
	}
	return factorTables[t].name
}

// Default is the value a lookup miss resolves to: 0 for base rates, 1.0 for
// every adjustment multiplier.
func (t FactorType) Default() float64 {
	if t < 0 || t >= factorTypeCount {
		return 1.0
	}
	return factorTables[t].fallback
}

// ParseFactorType maps a table name ("region", "quality", ...) to its FactorType.
func ParseFactorType(name string) (FactorType, error) {
	for i, ft := range factorTables {
		if strings.EqualFold(ft.name, strings.TrimSpace(name)) {
			return FactorType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown factor type %q", name)
}

// CostFactorSet is one versioned bundle of cost tables for a data source.
// It is never mutated after load; a reload replaces the whole value.
type CostFactorSet struct {
	Source            string             `json:"source"`
	Year              int                `json:"year"`
	RegionFactors     map[string]float64 `json:"regionFactors"`
	QualityFactors    map[string]float64 `json:"qualityFactors"`
	ConditionFactors  map[string]float64 `json:"conditionFactors"`
	BaseRates         map[string]float64 `json:"baseRates"`
	ComplexityFactors map[string]float64 `json:"complexityFactors"`
	AgingFactors      map[string]float64 `json:"agingFactors"`
}

// EmptyFactorSet returns a set where every lookup resolves to its default.
func EmptyFactorSet(source string) *CostFactorSet {
	return &CostFactorSet{Source: source}
}

// FactorLookup is the outcome of a single table lookup.
type FactorLookup struct {
	Type  FactorType `json:"-"`
	Code  string     `json:"code"`
	Value float64    `json:"value"`
	Found bool       `json:"found"`
}

// NormalizeCode trims and upper-cases a factor code. A cases.Caser keeps
// state between calls, so each call builds its own.
func NormalizeCode(code string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}

// Lookup returns the value stored for code and whether it was present.
// Codes are matched exactly first, then in normalised form.
func (s *CostFactorSet) Lookup(t FactorType, code string) (float64, bool) {
	if s == nil || t < 0 || t >= factorTypeCount {
		return 0, false
	}
	table := factorTables[t].table(s)
	if len(table) == 0 {
		return 0, false
	}
	if v, ok := table[code]; ok {
		return v, true
	}
	normalized := NormalizeCode(code)
	if v, ok := table[normalized]; ok {
		return v, true
	}
	for k, v := range table {
		if NormalizeCode(k) == normalized {
			return v, true
		}
	}
	return 0, false
}

// Resolve returns the stored value or the type's default on a miss.
func (s *CostFactorSet) Resolve(t FactorType, code string) FactorLookup {
	v, ok := s.Lookup(t, code)
	if !ok {
		v = t.Default()
	}
	return FactorLookup{Type: t, Code: code, Value: v, Found: ok}
}

// Table returns a copy of the table for t.
func (s *CostFactorSet) Table(t FactorType) map[string]float64 {
	out := make(map[string]float64)
	if s == nil || t < 0 || t >= factorTypeCount {
		return out
	}
	for k, v := range factorTables[t].table(s) {
		out[k] = v
	}
	return out
}

// Validate checks that every multiplier is a positive real and every base
// rate is non-negative.
func (s *CostFactorSet) Validate() error {
	for i := range factorTables {
		t := FactorType(i)
		for code, v := range factorTables[i].table(s) {
			if t == FactorBaseRate {
				if v < 0 {
					return fmt.Errorf("%s %q must not be negative, got %v", t, code, v)
				}
				continue
			}
			if v <= 0 {
				return fmt.Errorf("%s factor %q must be positive, got %v", t, code, v)
			}
		}
	}
	return nil
}

// Age brackets used by the aging table.
const (
	AgeBracket0To5   = "0-5"
	AgeBracket6To10  = "6-10"
	AgeBracket11To20 = "11-20"
	AgeBracket21To30 = "21-30"
	AgeBracket31To40 = "31-40"
	AgeBracket41To50 = "41-50"
	AgeBracket51To75 = "51-75"
	AgeBracketOver75 = "75+"
)

// AgeBracketFor maps a building age in years to its bracket code. Boundary
// ages belong to the lower bracket; negative ages count as new.
func AgeBracketFor(age int) string {
	switch {
	case age <= 5:
		return AgeBracket0To5
	case age <= 10:
		return AgeBracket6To10
	case age <= 20:
		return AgeBracket11To20
	case age <= 30:
		return AgeBracket21To30
	case age <= 40:
		return AgeBracket31To40
	case age <= 50:
		return AgeBracket41To50
	case age <= 75:
		return AgeBracket51To75
	default:
		return AgeBracketOver75
	}
}

// CostFactorQuery narrows a cost-factor read to one property type and/or region.
type CostFactorQuery struct {
	Source       string
	PropertyType string
	Region       string
}

// CostFactorView is what a cost-factor read returns: either the whole set or
// the lookups the query asked for.
type CostFactorView struct {
	Source       string         `json:"source"`
	Year         int            `json:"year"`
	Factors      *CostFactorSet `json:"factors,omitempty"`
	BaseRate     *FactorLookup  `json:"baseRate,omitempty"`
	RegionFactor *FactorLookup  `json:"regionFactor,omitempty"`
}
