package models

import (
	"math"
	"time"
)

// ModelName identifies one entry of the fixed model panel.
type ModelName string

const (
	ModelSARIMAX      ModelName = "SARIMAX"
	ModelRandomForest ModelName = "Random Forest"
	ModelXGBoost      ModelName = "XGBoost"
	ModelLightGBM     ModelName = "LightGBM"
	ModelCatBoost     ModelName = "CatBoost"
	ModelLSTM         ModelName = "LSTM"
)

// ModelCategory is a coarse tag used only to pick heuristic rules.
type ModelCategory string

const (
	CategoryStatistical  ModelCategory = "statistical"
	CategoryEnsemble     ModelCategory = "ensemble"
	CategoryBoosting     ModelCategory = "boosting"
	CategoryDeepLearning ModelCategory = "deep_learning"
)

// ModelProfile is a static panel entry.
type ModelProfile struct {
	Name     ModelName     `json:"name"`
	Color    string        `json:"color"`
	Category ModelCategory `json:"category"`
}

// SeriesStatistics are recomputed on every run.
type SeriesStatistics struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Volatility float64 `json:"volatility"` // coefficient of variation
	TrendSlope float64 `json:"trend_slope"`
}

// TrendStrength is |slope| scaled by 1000 to line up with the scorer thresholds.
func (s SeriesStatistics) TrendStrength() float64 {
	return math.Abs(s.TrendSlope) * 1000
}

// Metrics are the accuracy figures reported per model.
type Metrics struct {
	RMSE                float64 `json:"rmse"`
	MAE                 float64 `json:"mae"`
	MAPE                float64 `json:"mape"` // percent
	R2                  float64 `json:"r2"`
	DirectionalAccuracy float64 `json:"directional_accuracy"` // percent, 0-100
}

// PredictionResult holds one model's simulated predictions. Predictions and
// Errors are parallel to the input series.
type PredictionResult struct {
	ModelName   ModelName `json:"model_name"`
	Predictions []float64 `json:"predictions"`
	Errors      []float64 `json:"errors"`
	Metrics     Metrics   `json:"metrics"`
	Color       string    `json:"color"`
}

// FutureForecast is one synthesized future time block.
type FutureForecast struct {
	Date       time.Time `json:"date"`
	DateStr    string    `json:"date_str"`   // "DD-MM-YYYY"
	TimeBlock  string    `json:"time_block"` // "HH:MM"
	Price      float64   `json:"price"`
	UpperBound float64   `json:"upper_bound"`
	LowerBound float64   `json:"lower_bound"`
}

// DataCharacteristics summarises the input series.
type DataCharacteristics struct {
	Volatility float64 `json:"volatility"`
	Trend      float64 `json:"trend"`
	DataLength int     `json:"data_length"`
}

// SimulationConfig are the user-facing run parameters.
type SimulationConfig struct {
	ForecastDays    int     `json:"forecast_days"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// SimulationResult is the complete output of one run.
type SimulationResult struct {
	ProcessedData       []DataPoint                    `json:"processed_data"`
	ModelResults        map[ModelName]PredictionResult `json:"model_results"`
	Models              []ModelName                    `json:"models"` // registry order
	BestModel           ModelName                      `json:"best_model"`
	Forecasts           []FutureForecast               `json:"forecasts"`
	DataCharacteristics DataCharacteristics            `json:"data_characteristics"`
	Seed                uint32                         `json:"seed"`
}

// Winner returns the best model's result.
func (r *SimulationResult) Winner() (PredictionResult, bool) {
	res, ok := r.ModelResults[r.BestModel]
	return res, ok
}
