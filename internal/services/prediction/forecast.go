package prediction

import (
	"fmt"
	"math"
	"time"

	"IEXCast/internal/domain/models"
)

const (
	// forecastSeedOffset separates the forecast stream from the model streams.
	forecastSeedOffset = 9999
	blockMinutes       = 15
	blocksPerDay       = 24 * 60 / blockMinutes
)

// ForecastInput gathers what the synthesizer needs from a finished run.
type ForecastInput struct {
	LastDate        time.Time
	WinnerRMSE      float64
	Stats           models.SeriesStatistics
	HistoryLength   int
	ForecastDays    int
	ConfidenceLevel float64
	Seed            uint32
}

// ZScore maps a confidence level to its two-sided normal quantile. Levels
// other than 90 and 99 use the 95% value.
func ZScore(confidenceLevel float64) float64 {
	switch confidenceLevel {
	case 90:
		return 1.645
	case 99:
		return 2.576
	default:
		return 1.96
	}
}

// Synthesize generates ForecastDays*96 future blocks after LastDate, ordered
// by day, then hour, then quarter hour. Uncertainty grows by 5% per day for
// both the random perturbation and the confidence half-width.
func Synthesize(in ForecastInput) []models.FutureForecast {
	if in.ForecastDays <= 0 {
		return nil
	}

	z := ZScore(in.ConfidenceLevel)
	rng := NewStream(in.Seed + forecastSeedOffset)
	out := make([]models.FutureForecast, 0, in.ForecastDays*blocksPerDay)

	for d := 1; d <= in.ForecastDays; d++ {
		day := in.LastDate.AddDate(0, 0, d)
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		growth := 1 + float64(d)*0.05
		interval := in.WinnerRMSE * z * growth

		for h := 0; h < 24; h++ {
			for m := 0; m < 60; m += blockMinutes {
				base := in.Stats.Mean
				base = hourlyShape(base, h)
				base += in.Stats.TrendSlope * float64(in.HistoryLength+len(out))
				if weekend {
					base *= 0.92
				}

				randomVar := (rng.Next() - 0.5) * 0.1 * growth
				price := math.Max(0, base*(1+randomVar))

				out = append(out, models.FutureForecast{
					Date:       day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
					DateStr:    day.Format("02-01-2006"),
					TimeBlock:  fmt.Sprintf("%02d:%02d", h, m),
					Price:      price,
					UpperBound: price + interval,
					LowerBound: math.Max(0, price-interval),
				})
			}
		}
	}
	return out
}

// hourlyShape applies the intraday seasonality of the day-ahead market.
func hourlyShape(base float64, hour int) float64 {
	switch {
	case hour >= 6 && hour < 10:
		return base * 1.25
	case hour >= 18 && hour < 22:
		return base * 1.4
	case hour < 6:
		return base * 0.75
	default:
		return base
	}
}
