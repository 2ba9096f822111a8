package service

import (
	"IEXCast/internal/domain/models"
)

// Simulator compares the model panel over a price series and forecasts ahead.
type Simulator interface {
	Run(series []models.DataPoint, cfg models.SimulationConfig) models.SimulationResult
}

// SeriesParser turns an uploaded IEX export into an ordered price series.
type SeriesParser interface {
	ParseFile(name string, data []byte) ([]models.DataPoint, error)
}
