package prediction

import (
	"math"

	"IEXCast/internal/domain/models"
)

// Analyze computes population statistics and the OLS trend of the kWh price
// against the zero-based position index. An empty series yields zeros.
func Analyze(series []models.DataPoint) models.SeriesStatistics {
	prices := kwhPrices(series)
	mean := meanOf(prices)
	std := populationStdDev(prices)

	volatility := 0.0
	if mean != 0 {
		volatility = std / mean
	}

	return models.SeriesStatistics{
		Mean:       mean,
		StdDev:     std,
		Volatility: volatility,
		TrendSlope: trendSlope(prices),
	}
}

func kwhPrices(series []models.DataPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.MCPKWh
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := meanOf(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// trendSlope uses the closed-form sums for x = 0..n-1. A zero denominator
// (fewer than two points) is replaced by 1.
func trendSlope(ys []float64) float64 {
	n := float64(len(ys))
	xSum := n * (n - 1) / 2
	xSqSum := (n * (n - 1) * (2*n - 1)) / 6

	ySum, xySum := 0.0, 0.0
	for i, y := range ys {
		ySum += y
		xySum += float64(i) * y
	}

	den := n*xSqSum - xSum*xSum
	if den == 0 {
		den = 1
	}
	return (n*xySum - xSum*ySum) / den
}
