package prediction

import (
	"math"
	"time"

	"IEXCast/internal/domain/models"
)

// difficulty returns the structural difficulty multiplier of a time block.
// Rules are evaluated in order and a later match overrides an earlier one.
func difficulty(p models.DataPoint) float64 {
	m := 1.0
	if p.Hour >= 18 && p.Hour <= 22 {
		m = 1.3
	}
	if p.Hour >= 7 && p.Hour <= 10 {
		m = 1.15
	}
	if p.DayOfWeek == int(time.Monday) && p.Hour < 6 {
		m = 1.2
	}
	return m
}

// directionTally counts how often a prediction moves in the same direction as
// the actual price relative to the previous actual.
type directionTally struct {
	correct int
	total   int
}

func (d *directionTally) observe(prevActual, actual, predicted float64) {
	actualDiff := actual - prevActual
	predDiff := predicted - prevActual
	if (actualDiff > 0 && predDiff > 0) ||
		(actualDiff < 0 && predDiff < 0) ||
		(actualDiff == 0 && predDiff == 0) {
		d.correct++
	}
	d.total++
}

func (d directionTally) percent() float64 {
	if d.total == 0 {
		return 0
	}
	return float64(d.correct) / float64(d.total) * 100
}

// SimulateModel derives a simulated prediction for every point of the series
// using the model's own stream, then computes its metrics. The result does
// not depend on any other model.
func SimulateModel(series []models.DataPoint, profile models.ModelProfile, penalty float64, datasetSeed uint32) models.PredictionResult {
	rng := NewStream(modelSeed(datasetSeed, profile.Name))

	predictions := make([]float64, len(series))
	errs := make([]float64, len(series))
	var tally directionTally

	for i, point := range series {
		actual := point.MCPKWh
		noise := rng.Signed()
		relErr := penalty * difficulty(point) * noise
		pred := math.Max(0, actual+actual*relErr)

		predictions[i] = pred
		errs[i] = math.Abs(actual - pred)

		if i > 0 {
			tally.observe(series[i-1].MCPKWh, actual, pred)
		}
	}

	return models.PredictionResult{
		ModelName:   profile.Name,
		Predictions: predictions,
		Errors:      errs,
		Metrics:     ComputeMetrics(kwhPrices(series), errs, tally.percent()),
		Color:       profile.Color,
	}
}
