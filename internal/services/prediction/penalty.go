package prediction

import (
	"IEXCast/internal/domain/models"
)

const (
	// baseError is the starting expected relative error of every model.
	baseError = 0.045
	// jitterSpan is the width of the seed-driven jitter band.
	jitterSpan = 0.015
	// minPenalty keeps every model away from a zero or negative error.
	minPenalty = 0.005
)

// ScorePenalties computes the expected relative error of each model from the
// series characteristics plus a dataset-seeded jitter. Jitter is drawn from a
// single stream in registry order, so the iteration here must stay sequential.
func ScorePenalties(stats models.SeriesStatistics, length int, seed uint32) map[models.ModelName]float64 {
	rng := NewStream(seed)
	out := make(map[models.ModelName]float64, len(panel))
	for _, p := range panel {
		penalty := adjust(baseError, p.Name, stats, length)
		jitter := (rng.Next() - 0.5) * jitterSpan
		out[p.Name] = max(minPenalty, penalty+jitter)
	}
	return out
}

// adjust applies the fixed threshold table for one model, one step at a time
// on the running penalty.
func adjust(penalty float64, name models.ModelName, stats models.SeriesStatistics, length int) float64 {
	vol := stats.Volatility
	trend := stats.TrendStrength()

	switch name {
	case models.ModelSARIMAX:
		if vol < 0.18 {
			penalty -= 0.015
		} else if vol > 0.30 {
			penalty += 0.02
		}
		if length < 2000 {
			penalty -= 0.005
		}

	case models.ModelRandomForest:
		if vol > 0.35 {
			penalty -= 0.02
		} else if vol > 0.20 {
			penalty -= 0.005
		}
		if trend > 0.1 {
			penalty += 0.01
		}

	case models.ModelXGBoost:
		if trend > 0.02 {
			penalty -= 0.015
		}
		penalty -= 0.005

	case models.ModelLightGBM:
		if length > 1500 {
			penalty -= 0.015
		} else if length < 300 {
			penalty += 0.01
		}

	case models.ModelCatBoost:
		if length > 350 {
			penalty -= 0.01
		}

	case models.ModelLSTM:
		if length < 600 {
			penalty += 0.04
		} else if length > 3000 {
			penalty -= 0.03
		}
		if vol > 0.25 {
			penalty -= 0.01
		}
	}
	return penalty
}
