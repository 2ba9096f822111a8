package models

import (
	"fmt"
	"time"
)

// RangeLayout is the calendar date format of API date ranges.
const RangeLayout = "2006-01-02"

// SimulationParams are the optional run parameters of every entry point.
// Zero values fall back to the configured engine defaults.
type SimulationParams struct {
	ForecastDays    int     `query:"forecast_days" form:"forecast_days" json:"forecast_days" validate:"omitempty,gte=1,lte=30"`
	ConfidenceLevel float64 `query:"confidence_level" form:"confidence_level" json:"confidence_level" validate:"omitempty,gte=50,lte=99.9"`
}

// Resolve fills unset parameters from def.
func (p SimulationParams) Resolve(def SimulationConfig) SimulationConfig {
	out := def
	if p.ForecastDays > 0 {
		out.ForecastDays = p.ForecastDays
	}
	if p.ConfidenceLevel > 0 {
		out.ConfidenceLevel = p.ConfidenceLevel
	}
	return out
}

// SourceRequest asks for a run over archived prices between two days.
type SourceRequest struct {
	From string `json:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" validate:"required,datetime=2006-01-02"`
	SimulationParams
}

// Range parses the inclusive day range.
func (r SourceRequest) Range() (from, to time.Time, err error) {
	if from, err = time.Parse(RangeLayout, r.From); err != nil {
		return from, to, fmt.Errorf("from: %w", err)
	}
	if to, err = time.Parse(RangeLayout, r.To); err != nil {
		return from, to, fmt.Errorf("to: %w", err)
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("range %s..%s is reversed", r.From, r.To)
	}
	return from, to, nil
}

// ReportRequest selects a cached result and the plot interval in days.
type ReportRequest struct {
	Key  string `param:"key" validate:"required,hexadecimal,len=16"`
	Days int    `query:"days" default:"7" validate:"gte=1,lte=30"`
}

// JobRequest addresses one background job.
type JobRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
