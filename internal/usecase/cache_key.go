package usecase

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"IEXCast/internal/domain/models"
)

// ResultKey identifies a run by the full content of its series and its
// configuration. Any change to any point yields a different key.
func ResultKey(series []models.DataPoint, cfg models.SimulationConfig) string {
	d := xxhash.New()
	var buf [8]byte

	putFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	putString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(s)
	}

	binary.LittleEndian.PutUint64(buf[:], uint64(len(series)))
	_, _ = d.Write(buf[:])
	for _, p := range series {
		putString(p.Date)
		putString(p.TimeBlock)
		binary.LittleEndian.PutUint64(buf[:], uint64(p.DateObj.Unix()))
		_, _ = d.Write(buf[:])
		putFloat(p.PurchaseBid)
		putFloat(p.SellBid)
		putFloat(p.MCV)
		putFloat(p.MCPMWh)
		putFloat(p.MCPKWh)
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(cfg.ForecastDays))
	_, _ = d.Write(buf[:])
	putFloat(cfg.ConfidenceLevel)

	return leftPad(strconv.FormatUint(d.Sum64(), 16), 16)
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}
