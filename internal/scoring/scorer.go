// Package scoring turns delivery history and live conditions into a delay
// risk assessment. Everything here is a pure function of its inputs.
package scoring

import (
	"math"
	"sort"

	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// Tier thresholds on the summed factor weight.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.5
	LowThreshold    = 0.2
)

const (
	baseConfidence = 0.30
	maxConfidence  = 0.95

	// highWeight is the factor weight counted as a strong signal.
	highWeight = 0.3
)

// Assessment is the scorer's output.
type Assessment struct {
	Tier                 models.RiskTier
	DelayMinutesEstimate int
	Confidence           float64
	TotalWeight          float64
	Factors              []models.DelayFactor
}

// Score evaluates every detector against the history and conditions and
// derives a tier, confidence and delay estimate. Malformed history records
// are ignored. The returned factors are sorted by descending weight.
func Score(history []models.DeliveryHistoryRecord, cond models.CurrentConditions) Assessment {
	records := wellFormed(history)

	factors := make([]models.DelayFactor, 0, len(detectors))
	for _, detect := range detectors {
		if f, ok := detect(records, cond); ok {
			factors = append(factors, f)
		}
	}
	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Weight > factors[j].Weight
	})

	total := TotalWeight(factors)
	tier := TierForWeight(total)

	return Assessment{
		Tier:                 tier,
		DelayMinutesEstimate: EstimateDelayMinutes(tier, factors),
		Confidence:           Confidence(len(records), factors),
		TotalWeight:          total,
		Factors:              factors,
	}
}

// TotalWeight sums factor weights, rounded to 1e-6 so that float error never
// moves a result across a tier boundary.
func TotalWeight(factors []models.DelayFactor) float64 {
	sum := 0.0
	for _, f := range factors {
		sum += f.Weight
	}
	return math.Round(sum*1e6) / 1e6
}

// TierForWeight maps a total weight to a risk tier.
func TierForWeight(total float64) models.RiskTier {
	switch {
	case total >= HighThreshold:
		return models.RiskHigh
	case total >= MediumThreshold:
		return models.RiskMedium
	case total >= LowThreshold:
		return models.RiskLow
	default:
		return models.RiskNone
	}
}

// Confidence grows with history volume, factor count and the number of
// strong factors, capped at 0.95.
func Confidence(historyCount int, factors []models.DelayFactor) float64 {
	c := baseConfidence

	switch {
	case historyCount > 100:
		c += 0.30
	case historyCount > 50:
		c += 0.20
	case historyCount > 20:
		c += 0.10
	case historyCount > 10:
		c += 0.05
	}

	switch n := len(factors); {
	case n >= 3:
		c += 0.20
	case n >= 2:
		c += 0.10
	case n >= 1:
		c += 0.05
	}

	strong := 0
	for _, f := range factors {
		if f.Weight >= highWeight {
			strong++
		}
	}
	switch {
	case strong >= 2:
		c += 0.20
	case strong >= 1:
		c += 0.10
	}

	c = math.Round(c*1e6) / 1e6
	return math.Min(c, maxConfidence)
}

var baseDelayMinutes = map[models.RiskTier]float64{
	models.RiskNone:   0,
	models.RiskLow:    8,
	models.RiskMedium: 20,
	models.RiskHigh:   40,
}

// EstimateDelayMinutes scales the tier's base delay by severe traffic and
// weather factors.
func EstimateDelayMinutes(tier models.RiskTier, factors []models.DelayFactor) int {
	base := baseDelayMinutes[tier]
	multiplier := 1.0
	for _, f := range factors {
		switch {
		case f.Type == models.FactorTraffic && f.Weight >= 0.4:
			multiplier += 0.5
		case f.Type == models.FactorWeather && f.Weight >= 0.4:
			multiplier += 0.3
		}
	}
	return int(math.Round(base * multiplier))
}

// wellFormed drops records whose numeric fields cannot be trusted.
func wellFormed(history []models.DeliveryHistoryRecord) []models.DeliveryHistoryRecord {
	out := make([]models.DeliveryHistoryRecord, 0, len(history))
	for _, r := range history {
		if math.IsNaN(r.DelayMinutes) || math.IsInf(r.DelayMinutes, 0) || r.DelayMinutes < 0 {
			continue
		}
		if r.HourOfDay < 0 || r.HourOfDay > 23 {
			continue
		}
		out = append(out, r)
	}
	return out
}
