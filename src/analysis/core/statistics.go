package core

import "math"

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and population standard deviation.
func CalculateMeanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	// A single sample has no spread
	if len(data) == 1 {
		return mean, 0
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(data)))
	return mean, std
}

// -----------------------------------------------------------------------------

// CalculateCorrelation computes the Pearson correlation coefficient.
func CalculateCorrelation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	n := float64(len(x))

	// Zero variance on either side means no defined correlation
	_, stdX := CalculateMeanStd(x)
	_, stdY := CalculateMeanStd(y)
	if stdX == 0 || stdY == 0 {
		return 0
	}

	sumX, sumY, sumXY, sumX2, sumY2 := 0.0, 0.0, 0.0, 0.0, 0.0
	for i := 0; i < len(x); i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	numerator := (n * sumXY) - (sumX * sumY)
	denominator := math.Sqrt(((n * sumX2) - (sumX * sumX)) * ((n * sumY2) - (sumY * sumY)))

	if denominator == 0 {
		return 0
	}

	result := numerator / denominator

	if math.IsNaN(result) {
		return 0
	}

	return result
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates the standard score of value.
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0.0
	}
	return (value - mean) / std
}

// -----------------------------------------------------------------------------

// CalculateAnomalyRatio compares the current value against a history average.
func CalculateAnomalyRatio(current, avg float64) float64 {
	if avg <= 0 {
		if current == 0 {
			return 1.0
		}
		return current
	}
	return current / avg
}
