package prediction

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"

	"IEXCast/internal/domain/models"
)

// Fingerprint reduces a series to a stable seed. Only the length, the first
// and last date labels and three price samples (first, middle, last) take part,
// so identical data always maps to the same seed.
//
// An empty series has nothing to fingerprint and falls back to the wall clock.
func Fingerprint(series []models.DataPoint) uint32 {
	if len(series) == 0 {
		return uint32(time.Now().UnixMilli())
	}
	return hashSignature(signature(series))
}

func signature(series []models.DataPoint) string {
	n := len(series)
	parts := []string{
		strconv.Itoa(n),
		series[0].Date,
		series[n-1].Date,
		fixed3(series[0].MCPKWh),
		fixed3(series[n/2].MCPKWh),
		fixed3(series[n-1].MCPKWh),
	}
	return strings.Join(parts, "|")
}

// hashSignature is a 31-multiplier rolling hash over UTF-16 code units,
// wrapped to a signed 32-bit integer at every step.
func hashSignature(sig string) uint32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(sig)) {
		h = h*31 + int32(unit)
	}
	if h < 0 {
		// |MinInt32| does not fit int32 but does fit uint32.
		return uint32(-int64(h))
	}
	return uint32(h)
}

// fixed3 formats v with exactly three decimals. Rounding is half away from
// zero applied to the exact binary value of v, not to its shortest decimal
// representation.
func fixed3(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
	neg := v < 0
	if neg {
		v = -v
	}
	exact := new(big.Float).SetFloat64(v).Text('f', 1100)
	s := decimal.RequireFromString(exact).StringFixed(3)
	if neg {
		return "-" + s
	}
	return s
}
