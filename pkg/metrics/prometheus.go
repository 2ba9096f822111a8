package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes simulation service metrics on a prometheus registerer.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	cacheLookups *prometheus.CounterVec
	seriesPoints prometheus.Histogram
	winnerRMSE   *prometheus.GaugeVec
	jobsTotal    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New registers the metrics on the default registerer.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_simulation_runs_total",
			Help: "Completed engine runs by winning model",
		}, []string{"winner"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "iexcast_simulation_run_seconds",
			Help:    "Engine run duration",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}),
		seriesPoints: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "iexcast_series_points",
			Help:    "Number of 15-minute blocks per simulated series",
			Buckets: prometheus.ExponentialBuckets(96, 2, 10),
		}),
		winnerRMSE: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "iexcast_last_winner_rmse",
			Help: "RMSE of the winning model in the most recent run",
		}, []string{"winner"}),
		jobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_jobs_total",
			Help: "Asynchronous jobs by terminal state",
		}, []string{"state"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iexcast_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
	}
}

func (r *Recorder) RecordRun(winner string, points int, rmse float64, took time.Duration) {
	r.runsTotal.WithLabelValues(winner).Inc()
	r.runDuration.Observe(took.Seconds())
	r.seriesPoints.Observe(float64(points))
	r.winnerRMSE.Reset()
	r.winnerRMSE.WithLabelValues(winner).Set(rmse)
}

func (r *Recorder) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordJob(state string) {
	r.jobsTotal.WithLabelValues(state).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
