package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"IEXCast/internal/domain/models"
	"IEXCast/internal/services/ingest"
	"IEXCast/internal/services/prediction"
	"IEXCast/internal/services/report"
	applogger "IEXCast/pkg/logger"
)

func main() {
	var (
		file       = flag.String("file", "", "IEX day-ahead export (.xlsx or .csv)")
		days       = flag.Int("days", 7, "forecast horizon in days")
		confidence = flag.Float64("confidence", 95, "confidence level in percent")
		plot       = flag.Int("plot-days", 7, "history window of the validation view, in days")
		out        = flag.String("out", "", "write the full dashboard and result as JSON to this path")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(l, *file, *days, *confidence, *plot, *out); err != nil {
		l.Error("simulate failed", applogger.Error(err))
		os.Exit(1)
	}
}

func run(l *applogger.Logger, file string, days int, confidence float64, plot int, out string) error {
	if file == "" {
		return fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	series, err := ingest.NewParser(0).ParseFile(file, data)
	if err != nil {
		return err
	}
	l.Debug("series parsed",
		applogger.Int("points", len(series)),
		applogger.String("first", series[0].Date),
		applogger.String("last", series[len(series)-1].Date))

	start := time.Now()
	res := prediction.NewEngine().Run(series, models.SimulationConfig{ForecastDays: days, ConfidenceLevel: confidence})
	l.Info("simulation finished",
		applogger.Uint32("seed", res.Seed),
		applogger.String("winner", string(res.BestModel)),
		applogger.Duration("took", time.Since(start)))

	dash := report.Build(&res, plot)
	printLeaderboard(os.Stdout, dash)

	if out == "" {
		return nil
	}
	b, err := json.MarshalIndent(struct {
		report.Dashboard
		Result models.SimulationResult `json:"result"`
	}{dash, res}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return err
	}
	l.Info("result written", applogger.String("path", out))
	return nil
}

func printLeaderboard(w io.Writer, d report.Dashboard) {
	rec := d.Recommendation
	fmt.Fprintf(w, "Recommended model: %s (RMSE %.4f, confidence score %.1f%%)\n", rec.Model, rec.RMSE, rec.ConfidenceScore)
	fmt.Fprintf(w, "Series: %s volatility, %s trend\n\n", rec.Volatility, rec.Trend)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tMODEL\tRMSE\tMAE\tMAPE %\tR2\tDIR ACC %")
	for _, s := range d.Leaderboard {
		m := s.Metrics
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.2f\t%.4f\t%.1f\n", s.Rank, s.Model, m.RMSE, m.MAE, m.MAPE, m.R2, m.DirectionalAccuracy)
	}
	_ = tw.Flush()

	if n := len(d.Forecast); n > 0 {
		fmt.Fprintf(w, "\nForecast: %d hourly points, first %s %.3f [%.3f, %.3f] Rs/kWh\n",
			n, d.Forecast[0].Label, d.Forecast[0].Price, d.Forecast[0].Lower, d.Forecast[0].Upper)
	}
}
