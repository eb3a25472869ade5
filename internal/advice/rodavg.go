package advice

import (
	"math"
	"sort"

	"github.com/lox/fishingadvice/internal/models"
)

const (
	DefaultLowerPercentile = 0.10
	DefaultUpperPercentile = 0.90

	highConfidenceMin   = 15
	mediumConfidenceMin = 5
)

// PredictRodAverage computes the weighted mean catch rate, the raw 10th-90th
// percentile range, and a count-based confidence tier. Only observations with a
// positive catch rate take part. Weights move the central estimate only; the
// range is taken from the unweighted values.
func PredictRodAverage(observations []models.Observation, weigher *Weigher, lowerP, upperP float64) models.RodAverage {
	var rates, weights []float64
	for _, obs := range observations {
		if obs.CatchRate == nil || *obs.CatchRate <= 0 {
			continue
		}
		rates = append(rates, *obs.CatchRate)
		weights = append(weights, weigher.Of(obs))
	}

	if len(rates) == 0 {
		return models.RodAverage{Confidence: models.ConfidenceLow}
	}

	predicted := round1(weightedMean(rates, weights))

	sorted := append([]float64(nil), rates...)
	sort.Float64s(sorted)
	lo := round1(percentile(sorted, lowerP))
	hi := round1(percentile(sorted, upperP))

	// A heavily weighted tail value can pull the mean outside the raw percentile band.
	lo = math.Min(lo, predicted)
	hi = math.Max(hi, predicted)

	return models.RodAverage{
		Predicted:  predicted,
		Range:      [2]float64{lo, hi},
		Confidence: ConfidenceFor(len(rates)),
	}
}

// ConfidenceFor maps the raw count of valid observations to a tier.
func ConfidenceFor(n int) models.Confidence {
	switch {
	case n >= highConfidenceMin:
		return models.ConfidenceHigh
	case n >= mediumConfidenceMin:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func weightedMean(values, weights []float64) float64 {
	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total <= 0 || math.IsNaN(total) {
		// Every weight underflowed; fall back to the plain mean.
		sum = 0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
	return sum / total
}

// percentile picks sorted[floor(n*p)] clamped to valid indices.
func percentile(sorted []float64, p float64) float64 {
	i := int(math.Floor(float64(len(sorted)) * p))
	if i < 0 {
		i = 0
	}
	if i > len(sorted)-1 {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
