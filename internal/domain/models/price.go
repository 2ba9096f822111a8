package models

import "time"

// Season buckets used by the IEX exports.
type Season string

const (
	SeasonWinter  Season = "winter"
	SeasonSpring  Season = "spring"
	SeasonSummer  Season = "summer"
	SeasonMonsoon Season = "monsoon"
)

// TimeOfDay buckets a time block by its starting hour.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// DataPoint is one 15-minute market interval of the day-ahead market.
// It is built once by ingestion and treated as read-only afterwards.
type DataPoint struct {
	Date        string    `json:"date"` // "DD-MM-YYYY" as exported
	DateObj     time.Time `json:"date_obj"`
	TimeBlock   string    `json:"time_block"` // "HH:MM - HH:MM"
	PurchaseBid float64   `json:"purchase_bid"`
	SellBid     float64   `json:"sell_bid"`
	MCV         float64   `json:"mcv"`
	MCPMWh      float64   `json:"mcp_mwh"`
	MCPKWh      float64   `json:"mcp_kwh"`

	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	DayOfWeek int       `json:"day_of_week"` // 0 = Sunday
	IsWeekend bool      `json:"is_weekend"`
	Season    Season    `json:"season"`
	TimeOfDay TimeOfDay `json:"time_of_day"`
}

// SeasonForMonth maps a calendar month (1-12) to its season.
func SeasonForMonth(month int) Season {
	switch {
	case month >= 12 || month <= 2:
		return SeasonWinter
	case month >= 3 && month <= 5:
		return SeasonSpring
	case month >= 6 && month <= 8:
		return SeasonSummer
	default:
		return SeasonMonsoon
	}
}

// TimeOfDayForHour maps an hour (0-23) to its bucket.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 6 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 18:
		return TimeOfDayAfternoon
	case hour >= 18 && hour < 22:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}
