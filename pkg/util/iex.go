package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the exchange's DD-MM-YYYY day label.
const DateLayout = "02-01-2006"

// ParseIEXDate parses a DD-MM-YYYY label into a UTC midnight. Years below
// 1900 are read as two-digit years and shifted by 2000. Out-of-range days or
// months normalize the way time.Date does.
func ParseIEXDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: want DD-MM-YYYY", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", s, err)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if year < 1900 {
		year += 2000
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ParseBlockStart reads the start of a time block label such as
// "00:15 - 00:30". Unreadable parts come back as zero.
func ParseBlockStart(block string) (hour, minute int) {
	start := strings.TrimSpace(strings.SplitN(block, "-", 2)[0])
	hm := strings.SplitN(start, ":", 2)
	hour = ParseIntDefault(hm[0], 0)
	if len(hm) > 1 {
		minute = ParseIntDefault(hm[1], 0)
	}
	return hour, minute
}

// BlockStartLabel returns the trimmed start of a time block label.
func BlockStartLabel(block string) string {
	return strings.TrimSpace(strings.SplitN(block, "-", 2)[0])
}

// ParseIntDefault parses s as an int or returns def when empty or invalid.
func ParseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ParseFloat reads a numeric cell. Thousands separators are dropped; a
// trailing non-numeric suffix is ignored the way spreadsheets export units.
func ParseFloat(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	}
	end := numericPrefix(s)
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseFloatDefault is ParseFloat with a fallback.
func ParseFloatDefault(s string, def float64) float64 {
	if v, ok := ParseFloat(s); ok {
		return v
	}
	return def
}

func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}
