package repository

import (
	"strings"
	"testing"
	"time"

	"IEXCast/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestInsertStatementWithoutTimeBlocks(t *testing.T) {
	series := []models.DataPoint{
		{Date: "1-4-24", DateObj: day(2024, 4, 1), MCPMWh: 3000},
		{Date: "1-4-24", DateObj: day(2024, 4, 1), MCPMWh: 3100},
		{Date: "1-4-24", DateObj: day(2024, 4, 1), MCPMWh: 3200},
		{Date: "2-4-24", DateObj: day(2024, 4, 2), MCPMWh: 3300},
	}
	q, args := insertStatement("iex_dam", series, dayPositions(series))
	if !strings.HasPrefix(q, "INSERT INTO iex_dam (date, block, label, time_block") {
		t.Fatalf("unexpected statement: %s", q)
	}
	if len(args) != len(series)*8 {
		t.Fatalf("args = %d, want %d", len(args), len(series)*8)
	}

	want := []uint16{0, 1, 2, 0}
	for i, w := range want {
		got, ok := args[i*8+1].(uint16)
		if !ok || got != w {
			t.Errorf("row %d block = %v, want %d", i, args[i*8+1], w)
		}
		if label := args[i*8+2]; label != series[i].Date {
			t.Errorf("row %d label = %v, want %q", i, label, series[i].Date)
		}
	}
}

func TestDayPositionsAcrossChunks(t *testing.T) {
	series := make([]models.DataPoint, 5)
	for i := range series {
		series[i] = models.DataPoint{DateObj: day(2024, 4, 1)}
	}
	series[2].DateObj = time.Time{}

	got := dayPositions(series)
	want := []uint16{0, 1, 0, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("positions = %v, want %v", got, want)
		}
	}

	// A chunk boundary must not restart the numbering.
	_, args := insertStatement("t", series[3:], got[3:])
	if args[1].(uint16) != 2 || args[9].(uint16) != 3 {
		t.Fatalf("chunked blocks = %v, %v", args[1], args[9])
	}
}

func TestArchivedRowKeepsLabel(t *testing.T) {
	r := archivedRow{date: day(2024, 4, 6), label: "6-4-24", timeBlock: "18:00 - 18:15", mcp: 10000}
	p := r.point()
	if p.Date != "6-4-24" {
		t.Fatalf("label = %q, want the uploaded one", p.Date)
	}
	if p.Hour != 18 || p.Minute != 0 || !p.IsWeekend || p.MCPKWh != 10 {
		t.Fatalf("derived fields = %+v", p)
	}

	r.label = ""
	if got := r.point().Date; got != "06-04-2024" {
		t.Fatalf("fallback label = %q", got)
	}
}
