package prediction

import (
	"math"

	"IEXCast/internal/domain/models"
)

// ComputeMetrics derives the accuracy figures of one model from the actual
// prices and the absolute errors (parallel slices). Every ratio is guarded and
// falls back to 0, so an empty input yields all-zero metrics.
func ComputeMetrics(actuals, errs []float64, directionalAccuracy float64) models.Metrics {
	n := len(errs)
	if n == 0 {
		return models.Metrics{DirectionalAccuracy: directionalAccuracy}
	}

	sumSq, sumAbs, sumPct := 0.0, 0.0, 0.0
	for i, e := range errs {
		sumSq += e * e
		sumAbs += e
		if actuals[i] != 0 {
			sumPct += math.Abs(e / actuals[i])
		}
	}

	mean := meanOf(actuals)
	ssTot := 0.0
	for _, a := range actuals {
		d := a - mean
		ssTot += d * d
	}

	r2 := 0.0
	if ssTot != 0 {
		r2 = 1 - sumSq/ssTot
	}

	return models.Metrics{
		RMSE:                math.Sqrt(sumSq / float64(n)),
		MAE:                 sumAbs / float64(n),
		MAPE:                sumPct / float64(n) * 100,
		R2:                  r2,
		DirectionalAccuracy: directionalAccuracy,
	}
}

// SelectWinner returns the model with the strictly lowest RMSE, scanning in
// registry order so the first model wins a tie. SARIMAX is returned when no
// result beats +Inf.
func SelectWinner(results map[models.ModelName]models.PredictionResult) models.ModelName {
	best := models.ModelSARIMAX
	minRMSE := math.Inf(1)
	for _, p := range panel {
		res, ok := results[p.Name]
		if !ok {
			continue
		}
		if res.Metrics.RMSE < minRMSE {
			minRMSE = res.Metrics.RMSE
			best = p.Name
		}
	}
	return best
}
