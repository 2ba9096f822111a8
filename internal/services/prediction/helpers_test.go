package prediction

import (
	"fmt"
	"time"

	"IEXCast/internal/domain/models"
)

// seriesStart is a Monday.
var seriesStart = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

// buildSeries lays out n consecutive 15-minute blocks starting at seriesStart.
func buildSeries(n int, price func(i int) float64) []models.DataPoint {
	out := make([]models.DataPoint, n)
	for i := 0; i < n; i++ {
		day := seriesStart.AddDate(0, 0, i/blocksPerDay)
		block := i % blocksPerDay
		hour, minute := block/4, (block%4)*15
		endH, endM := hour, minute+15
		if endM == 60 {
			endH, endM = hour+1, 0
		}
		p := price(i)
		out[i] = models.DataPoint{
			Date:      day.Format("02-01-2006"),
			DateObj:   day,
			TimeBlock: fmt.Sprintf("%02d:%02d - %02d:%02d", hour, minute, endH, endM),
			MCPMWh:    p * 1000,
			MCPKWh:    p,
			Hour:      hour,
			Minute:    minute,
			DayOfWeek: int(day.Weekday()),
			IsWeekend: day.Weekday() == time.Saturday || day.Weekday() == time.Sunday,
			Season:    models.SeasonForMonth(int(day.Month())),
			TimeOfDay: models.TimeOfDayForHour(hour),
		}
	}
	return out
}

func constant(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

// wavy is a deterministic daily-shaped price curve with a mild upward drift.
func wavy(i int) float64 {
	block := i % blocksPerDay
	base := 3.0 + 0.002*float64(i)
	switch {
	case block >= 72 && block < 88:
		return base * 1.6
	case block >= 24 && block < 40:
		return base * 1.2
	case block < 24:
		return base * 0.7
	}
	return base + float64(i%7)*0.05
}
