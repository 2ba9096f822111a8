package prediction

import (
	"IEXCast/internal/domain/models"
	domsvc "IEXCast/internal/domain/service"
)

// Engine runs the deterministic model comparison over a complete series.
// It holds no state between runs, so one Engine may serve concurrent callers.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine { return &Engine{} }

// Run fingerprints the series, scores and simulates every model of the
// panel, selects the lowest-RMSE winner and synthesizes the forecast.
//
// An empty series produces zero statistics, zero metrics for every model,
// SARIMAX as winner and no forecast.
func (e *Engine) Run(series []models.DataPoint, cfg models.SimulationConfig) models.SimulationResult {
	seed := Fingerprint(series)
	stats := Analyze(series)
	penalties := ScorePenalties(stats, len(series), seed)

	results := make(map[models.ModelName]models.PredictionResult, len(panel))
	for _, p := range panel {
		results[p.Name] = SimulateModel(series, p, penalties[p.Name], seed)
	}
	best := SelectWinner(results)

	var forecasts []models.FutureForecast
	if len(series) > 0 {
		forecasts = Synthesize(ForecastInput{
			LastDate:        series[len(series)-1].DateObj,
			WinnerRMSE:      results[best].Metrics.RMSE,
			Stats:           stats,
			HistoryLength:   len(series),
			ForecastDays:    cfg.ForecastDays,
			ConfidenceLevel: cfg.ConfidenceLevel,
			Seed:            seed,
		})
	}

	return models.SimulationResult{
		ProcessedData: series,
		ModelResults:  results,
		Models:        ModelNames(),
		BestModel:     best,
		Forecasts:     forecasts,
		DataCharacteristics: models.DataCharacteristics{
			Volatility: stats.Volatility,
			Trend:      stats.TrendSlope,
			DataLength: len(series),
		},
		Seed: seed,
	}
}

var _ domsvc.Simulator = (*Engine)(nil)
