package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// GeoLevel is a level of the geographic hierarchy a heatmap is built for.
type GeoLevel string

const (
	LevelRegion       GeoLevel = "region"
	LevelMunicipality GeoLevel = "municipality"
	LevelNeighborhood GeoLevel = "neighborhood"
	LevelGeohash      GeoLevel = "geohash"
)

// ParseGeoLevel accepts the level names used in URLs.
func ParseGeoLevel(s string) (GeoLevel, error) {
	switch GeoLevel(strings.ToLower(strings.TrimSpace(s))) {
	case LevelRegion, "regional":
		return LevelRegion, nil
	case LevelMunicipality, "municipal":
		return LevelMunicipality, nil
	case LevelNeighborhood:
		return LevelNeighborhood, nil
	case LevelGeohash:
		return LevelGeohash, nil
	}
	return "", ValidationError("unknown geographic level %q", s)
}

// GroupStats is the raw aggregation of one geographic group as returned by storage.
type GroupStats struct {
	ID                string
	Code              string
	Name              string
	PropertyCount     int
	AvgAppraisedValue float64
	AvgAssessedValue  float64
	MinValue          float64
	MaxValue          float64
	TotalValue        float64
}

// PriorAverage is the average appraised value of a group over the prior window.
type PriorAverage struct {
	GroupID  string
	AvgValue float64
}

// PropertyPoint is a single geolocated property used for geohash bucketing.
type PropertyPoint struct {
	Latitude       float64
	Longitude      float64
	AppraisedValue float64
	AssessedValue  float64
	// PriorValue is the average historical appraised value in the trend window, if any.
	PriorValue *float64
}

type GeographicAggregate struct {
	ID                string  `json:"id"`
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	PropertyCount     int     `json:"propertyCount"`
	AvgAppraisedValue float64 `json:"avgAppraisedValue"`
	AvgAssessedValue  float64 `json:"avgAssessedValue"`
	MinValue          float64 `json:"minValue"`
	MaxValue          float64 `json:"maxValue"`
	TotalValue        float64 `json:"totalValue"`
	ValueTrend        float64 `json:"valueTrend"`
}

type ValueRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Avg    float64 `json:"avg"`
	StdDev float64 `json:"stdDev"`
}

type Heatmap struct {
	Level       GeoLevel              `json:"level"`
	Entities    []GeographicAggregate `json:"entities"`
	ValueRange  ValueRange            `json:"valueRange"`
	LastUpdated time.Time             `json:"lastUpdated"`
}

// TrendWindow is how far back the prior average for a value trend reaches.
const TrendWindow = 6 * 30 * 24 * time.Hour

// CalculateValueRange computes descriptive statistics over values. The
// standard deviation is the population one. Empty input yields all zeros.
func CalculateValueRange(values []float64) ValueRange {
	if len(values) == 0 {
		return ValueRange{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	avg := sum / float64(n)

	var sq float64
	for _, v := range sorted {
		d := v - avg
		sq += d * d
	}

	return ValueRange{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Median: median,
		Avg:    avg,
		StdDev: math.Sqrt(sq / float64(n)),
	}
}

// ValueTrend is the percent change from prior to current, 0 when there is no
// usable prior value.
func ValueTrend(current, prior float64) float64 {
	if prior == 0 || math.IsNaN(prior) {
		return 0
	}
	return Round2((current - prior) / prior * 100)
}

// ToAggregate converts raw group stats into an aggregate with its trend.
func (g GroupStats) ToAggregate(trend float64) GeographicAggregate {
	return GeographicAggregate{
		ID:                g.ID,
		Code:              g.Code,
		Name:              g.Name,
		PropertyCount:     g.PropertyCount,
		AvgAppraisedValue: g.AvgAppraisedValue,
		AvgAssessedValue:  g.AvgAssessedValue,
		MinValue:          g.MinValue,
		MaxValue:          g.MaxValue,
		TotalValue:        g.TotalValue,
		ValueTrend:        trend,
	}
}

// ValidateGeohashPrecision bounds the geohash bucket length.
func ValidateGeohashPrecision(p uint) error {
	if p < 1 || p > 12 {
		return fmt.Errorf("%w: geohash precision must be between 1 and 12, got %d", ErrValidation, p)
	}
	return nil
}
