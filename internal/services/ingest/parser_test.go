package ingest

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"IEXCast/internal/domain/models"
)

const sampleCSV = `Market Snapshot,,,,,,
Delivery Period,01-04-2024 to 02-04-2024,,,,,
Date,Hour,Time Block,Purchase Bid (MW),Sell Bid (MW),MCV (MW),Final Scheduled Volume (MW),MCP (Rs/MWh) *
01-04-2024,1,00:00 - 00:15,"12,500.5",9800,8000,7990,3012.45
01-04-2024,1,00:15 - 00:30,12000,abc,8100,8090,2999.10
06-04-2024,1,18:00 - 18:15,15000,9000,8500,8500,10000
Total,,,,,,,
Avg,,,,,,,3337.18
02-04-2024,1,00:30 - 00:45,12000,9000,8200,8200,n/a
`

func TestParseFileCSV(t *testing.T) {
	series, err := NewParser(0).ParseFile("prices.CSV", []byte(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(series))
	}

	first := series[0]
	if first.Date != "01-04-2024" || first.TimeBlock != "00:00 - 00:15" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if !first.DateObj.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date obj = %v", first.DateObj)
	}
	if first.PurchaseBid != 12500.5 || first.SellBid != 9800 || first.MCV != 8000 {
		t.Errorf("bids = %v %v %v", first.PurchaseBid, first.SellBid, first.MCV)
	}
	if first.MCPMWh != 3012.45 || math.Abs(first.MCPKWh-3.01245) > 1e-12 {
		t.Errorf("mcp = %v / %v", first.MCPMWh, first.MCPKWh)
	}
	if first.DayOfWeek != 1 || first.IsWeekend {
		t.Errorf("monday expected, got dow=%d weekend=%v", first.DayOfWeek, first.IsWeekend)
	}
	if first.Season != models.SeasonSpring || first.TimeOfDay != models.TimeOfDayNight {
		t.Errorf("season=%s tod=%s", first.Season, first.TimeOfDay)
	}

	if series[1].SellBid != 0 {
		t.Errorf("unparsable sell bid should default to 0, got %v", series[1].SellBid)
	}
	if series[1].Minute != 15 {
		t.Errorf("minute = %d", series[1].Minute)
	}

	sat := series[2]
	if !sat.IsWeekend || sat.DayOfWeek != 6 || sat.Hour != 18 || sat.TimeOfDay != models.TimeOfDayEvening {
		t.Errorf("saturday evening row = %+v", sat)
	}
}

func TestParseRowsHeaderNotFound(t *testing.T) {
	rows := [][]string{{"Date", "Price"}, {"01-04-2024", "3000"}}
	if _, err := ParseRows(rows); !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("expected ErrHeaderNotFound, got %v", err)
	}

	late := make([][]string, 0, 25)
	for i := 0; i < headerScanRows; i++ {
		late = append(late, []string{"note"})
	}
	late = append(late, []string{"Date", "MCP"}, []string{"01-04-2024", "3000"})
	if _, err := ParseRows(late); !errors.Is(err, ErrHeaderNotFound) {
		t.Fatalf("header beyond the scan window must not be found, got %v", err)
	}
}

func TestParseRowsNoRows(t *testing.T) {
	rows := [][]string{
		{"Date", "Time Block", "MCP"},
		{"Total", "", "1"},
		{"", "", "2"},
		{"03-04-2024", "00:00 - 00:15", "-"},
	}
	if _, err := ParseRows(rows); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestParseRowsTwoDigitYear(t *testing.T) {
	rows := [][]string{
		{"Date", "Time Block", "MCP"},
		{"15-01-24", "23:45 - 24:00", "2500"},
	}
	series, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := series[0]
	if p.DateObj.Year() != 2024 || p.Season != models.SeasonWinter {
		t.Fatalf("got %v %s", p.DateObj, p.Season)
	}
	if p.Hour != 23 || p.Minute != 45 {
		t.Fatalf("block start = %02d:%02d", p.Hour, p.Minute)
	}
	if p.Date != "15-01-24" {
		t.Fatalf("date label must be kept verbatim, got %q", p.Date)
	}
}

func TestParseRowsMissingOptionalColumns(t *testing.T) {
	rows := [][]string{
		{"Date", "MCP"},
		{"01-04-2024", "3100"},
	}
	series, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if series[0].TimeBlock != "" || series[0].Hour != 0 || series[0].MCV != 0 {
		t.Fatalf("missing columns should read as empty: %+v", series[0])
	}
}

func TestParseFileUnsupported(t *testing.T) {
	if _, err := NewParser(0).ParseFile("prices.pdf", []byte("x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFileRowLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Time Block,MCP\n")
	for i := 0; i < 5; i++ {
		b.WriteString("01-04-2024,00:00 - 00:15,3000\n")
	}
	if _, err := NewParser(4).ParseFile("p.csv", []byte(b.String())); !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("expected ErrTooManyRows, got %v", err)
	}
	if _, err := NewParser(5).ParseFile("p.csv", []byte(b.String())); err != nil {
		t.Fatalf("limit equal to row count must pass: %v", err)
	}
}

func TestParseFileRowLimitIgnoresFooter(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Time Block,MCP\n")
	for i := 0; i < 3; i++ {
		b.WriteString("01-04-2024,00:00 - 00:15,3000\n")
	}
	for i := 0; i < 40; i++ {
		b.WriteString(",,\n")
	}
	b.WriteString("Total,,\nMax,,\nMin,,\nAvg,,3000\n")

	series, err := NewParser(3).ParseFile("p.csv", []byte(b.String()))
	if err != nil {
		t.Fatalf("footer and blank rows must not count toward the limit: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("len = %d, want 3", len(series))
	}
}

func TestParseFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"IEX Day-Ahead Market"},
		{"Date", "Hour", "Time Block", "Purchase Bid (MW)", "Sell Bid (MW)", "MCV (MW)", "MCP (Rs/MWh)"},
		{"07-04-2024", "1", "00:00 - 00:15", "11000", "9000", "8000", "2800"},
		{"07-04-2024", "1", "00:15 - 00:30", "11000", "9000", "8000", "2900.5"},
		{"Max", "", "", "", "", "", "2900.5"},
	}
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	series, err := NewParser(100).ParseFile("dam.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(series))
	}
	if math.Abs(series[1].MCPKWh-2.9005) > 1e-12 || !series[1].IsWeekend || series[1].DayOfWeek != 0 {
		t.Fatalf("unexpected second row: %+v", series[1])
	}
}

func TestParseFileCorruptWorkbook(t *testing.T) {
	if _, err := NewParser(0).ParseFile("prices.xlsx", []byte("not a zip")); !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}
