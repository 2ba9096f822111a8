// Package report derives the dashboard views of a finished simulation.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"IEXCast/internal/domain/models"
	"IEXCast/pkg/util"
)

const blocksPerDay = 96

// Thresholds used to describe the series in the recommendation.
const (
	highVolatility  = 0.15
	positiveTrend   = 0.001
	maxConfidencePc = 99.9
)

// Standing is one row of the leaderboard.
type Standing struct {
	Rank    int              `json:"rank"`
	Model   models.ModelName `json:"model"`
	Color   string           `json:"color"`
	Metrics models.Metrics   `json:"metrics"`
	Best    bool             `json:"best"`
}

// Leaderboard orders the panel by RMSE ascending. Ties keep panel order.
func Leaderboard(r *models.SimulationResult) []Standing {
	out := make([]Standing, 0, len(r.Models))
	for _, name := range r.Models {
		res, ok := r.ModelResults[name]
		if !ok {
			continue
		}
		out = append(out, Standing{Model: name, Color: res.Color, Metrics: res.Metrics})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metrics.RMSE < out[j].Metrics.RMSE
	})
	for i := range out {
		out[i].Rank = i + 1
		out[i].Best = out[i].Model == r.BestModel
	}
	return out
}

// ValidationPoint pairs an actual price with the winner's prediction.
type ValidationPoint struct {
	Label     string  `json:"label"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
	Residual  float64 `json:"residual"` // predicted - actual
}

// ValidationWindow returns the last days*96 points of the series against the
// winner's predictions. Windows longer than a week keep every 4th point.
func ValidationWindow(r *models.SimulationResult, days int) []ValidationPoint {
	best, ok := r.Winner()
	if !ok || days <= 0 {
		return nil
	}
	data := r.ProcessedData
	start := len(data) - days*blocksPerDay
	if start < 0 {
		start = 0
	}

	out := make([]ValidationPoint, 0, len(data)-start)
	for i, p := range data[start:] {
		if days > 7 && i%4 != 0 {
			continue
		}
		idx := start + i
		if idx >= len(best.Predictions) {
			break
		}
		pred := best.Predictions[idx]
		out = append(out, ValidationPoint{
			Label:     validationLabel(p, days),
			Actual:    p.MCPKWh,
			Predicted: pred,
			Residual:  pred - p.MCPKWh,
		})
	}
	return out
}

func validationLabel(p models.DataPoint, days int) string {
	start := util.BlockStartLabel(p.TimeBlock)
	if days <= 2 {
		return start
	}
	d := p.Date
	if len(d) > 5 {
		d = d[:5]
	}
	return d + " " + start
}

// HourlyPoint is the mean of consecutive forecast blocks sharing an hour.
type HourlyPoint struct {
	Label string  `json:"label"` // "D/M HH:MM"
	Price float64 `json:"price"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// HourlyForecast folds the 15-minute forecast into hourly means. A new group
// starts whenever the block hour changes; the label is taken from the
// group's first block.
func HourlyForecast(r *models.SimulationResult) []HourlyPoint {
	var (
		out   []HourlyPoint
		acc   HourlyPoint
		count int
		hour  = -1
	)
	flush := func() {
		if count == 0 {
			return
		}
		n := float64(count)
		out = append(out, HourlyPoint{
			Label: acc.Label,
			Price: acc.Price / n,
			Upper: acc.Upper / n,
			Lower: acc.Lower / n,
		})
	}

	for _, f := range r.Forecasts {
		h := blockHour(f.TimeBlock)
		if h != hour {
			flush()
			hour, count = h, 0
			acc = HourlyPoint{Label: fmt.Sprintf("%d/%d %s", f.Date.Day(), int(f.Date.Month()), f.TimeBlock)}
		}
		acc.Price += f.Price
		acc.Upper += f.UpperBound
		acc.Lower += f.LowerBound
		count++
	}
	flush()
	return out
}

func blockHour(block string) int {
	h, err := strconv.Atoi(strings.SplitN(block, ":", 2)[0])
	if err != nil {
		return -1
	}
	return h
}

// Recommendation is the headline of a run.
type Recommendation struct {
	Model           models.ModelName `json:"model"`
	RMSE            float64          `json:"rmse"`
	ConfidenceScore float64          `json:"confidence_score"` // min(99.9, R2*100)
	Volatility      string           `json:"volatility"`       // high or low
	Trend           string           `json:"trend"`            // positive or stable
}

// Recommend summarises the winner and the shape of the series.
func Recommend(r *models.SimulationResult) Recommendation {
	best, _ := r.Winner()
	rec := Recommendation{
		Model:           r.BestModel,
		RMSE:            best.Metrics.RMSE,
		ConfidenceScore: math.Min(maxConfidencePc, best.Metrics.R2*100),
		Volatility:      "low",
		Trend:           "stable",
	}
	if r.DataCharacteristics.Volatility > highVolatility {
		rec.Volatility = "high"
	}
	if r.DataCharacteristics.Trend > positiveTrend {
		rec.Trend = "positive"
	}
	return rec
}

// Dashboard bundles every view for one plot interval.
type Dashboard struct {
	Recommendation Recommendation    `json:"recommendation"`
	Leaderboard    []Standing        `json:"leaderboard"`
	Validation     []ValidationPoint `json:"validation"`
	Forecast       []HourlyPoint     `json:"forecast"`
}

// Build assembles the dashboard for the last days of history.
func Build(r *models.SimulationResult, days int) Dashboard {
	return Dashboard{
		Recommendation: Recommend(r),
		Leaderboard:    Leaderboard(r),
		Validation:     ValidationWindow(r, days),
		Forecast:       HourlyForecast(r),
	}
}
