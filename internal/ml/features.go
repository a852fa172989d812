// Package ml provides the unsupervised outlier model: a per-series feature
// matrix scored by an isolation forest fit fresh on every call.
package ml

import "math"

// rocEpsilon keeps the rate-of-change feature finite when the previous
// value is zero.
const rocEpsilon = 1e-6

// ExtractFeatures converts a value series into a feature matrix with one
// row per point:
//
//	0: current value
//	1: moving average over the last 5 points
//	2: moving average over the last 15 points
//	3: standard deviation over the last 5 points (0 while fewer exist)
//	4: rate of change vs the previous point (0 at the first point)
//	5: absolute distance from the overall mean
//
// Moving windows are left-truncated at the series start.
func ExtractFeatures(values []float64) [][]float64 {
	features := make([][]float64, len(values))
	overallMean := meanOf(values)

	for i, v := range values {
		ma5 := meanOf(window(values, i, 5))
		ma15 := meanOf(window(values, i, 15))

		var std5 float64
		if i >= 4 {
			std5 = populationStd(values[i-4 : i+1])
		}

		var roc float64
		if i > 0 {
			roc = (v - values[i-1]) / (values[i-1] + rocEpsilon)
		}

		features[i] = []float64{v, ma5, ma15, std5, roc, math.Abs(v - overallMean)}
	}

	return features
}

// window returns the trailing slice of up to size points ending at index i.
func window(values []float64, i, size int) []float64 {
	start := i - size + 1
	if start < 0 {
		start = 0
	}
	return values[start : i+1]
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := meanOf(values)
	var sumSq float64
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
