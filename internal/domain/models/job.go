package models

import "time"

// JobState is the lifecycle of a background simulation.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// Job tracks one asynchronous run. The result itself lives in the result
// store under ResultKey.
type Job struct {
	ID        string           `json:"id"`
	State     JobState         `json:"state"`
	Source    string           `json:"source"` // upload or clickhouse
	Points    int              `json:"points"`
	Config    SimulationConfig `json:"config"`
	ResultKey string           `json:"result_key,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// RunSummary is the compact announcement of a finished run.
type RunSummary struct {
	Key        string                `json:"key"`
	Seed       uint32                `json:"seed"`
	Points     int                   `json:"points"`
	FirstDate  string                `json:"first_date,omitempty"`
	LastDate   string                `json:"last_date,omitempty"`
	BestModel  ModelName             `json:"best_model"`
	Metrics    map[ModelName]Metrics `json:"metrics"`
	Config     SimulationConfig      `json:"config"`
	FinishedAt time.Time             `json:"finished_at"`
}

// Summarize builds the announcement for a result stored under key.
func Summarize(key string, r *SimulationResult, cfg SimulationConfig, at time.Time) RunSummary {
	s := RunSummary{
		Key:        key,
		Seed:       r.Seed,
		Points:     len(r.ProcessedData),
		BestModel:  r.BestModel,
		Metrics:    make(map[ModelName]Metrics, len(r.ModelResults)),
		Config:     cfg,
		FinishedAt: at,
	}
	if n := len(r.ProcessedData); n > 0 {
		s.FirstDate = r.ProcessedData[0].Date
		s.LastDate = r.ProcessedData[n-1].Date
	}
	for name, res := range r.ModelResults {
		s.Metrics[name] = res.Metrics
	}
	return s
}
