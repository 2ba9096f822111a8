// Package ingest turns IEX day-ahead market exports into price series.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"IEXCast/internal/domain/models"
	domsvc "IEXCast/internal/domain/service"
	"IEXCast/pkg/util"
)

var (
	ErrHeaderNotFound    = errors.New(`ingest: header row must contain "Date" and "MCP"`)
	ErrNoRows            = errors.New("ingest: no price rows found")
	ErrTooManyRows       = errors.New("ingest: row limit exceeded")
	ErrUnsupportedFormat = errors.New("ingest: unsupported file format")
	ErrUnreadable        = errors.New("ingest: file is not readable")
)

// headerScanRows bounds the search for the header row.
const headerScanRows = 20

// summaryMarkers flag the exchange's footer rows.
var summaryMarkers = []string{"Total", "Max", "Min", "Avg"}

// Parser reads uploaded exports.
type Parser struct {
	maxRows int
}

// NewParser creates a Parser; maxRows <= 0 disables the limit.
func NewParser(maxRows int) *Parser {
	return &Parser{maxRows: maxRows}
}

// ParseFile dispatches on the file extension and parses the first sheet of a
// workbook or the whole of a CSV file.
func (p *Parser) ParseFile(name string, data []byte) ([]models.DataPoint, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(data)
	case ".csv":
		rows, err = readCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	series, err := ParseRows(rows)
	if err != nil {
		return nil, err
	}
	if p.maxRows > 0 && len(series) > p.maxRows {
		return nil, fmt.Errorf("%w: %d price rows, max %d", ErrTooManyRows, len(series), p.maxRows)
	}
	return series, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrUnreadable, sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", ErrUnreadable, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

type columns struct {
	date, block, purchase, sell, mcv, mcp int
}

// findHeader returns the index of the first row, among the leading ones,
// that names both a Date and an MCP column.
func findHeader(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if indexOf(rows[i], "Date") >= 0 && indexOf(rows[i], "MCP") >= 0 {
			return i
		}
	}
	return -1
}

func indexOf(row []string, needle string) int {
	for i, cell := range row {
		if strings.Contains(cell, needle) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isSummary(date string) bool {
	for _, m := range summaryMarkers {
		if strings.Contains(date, m) {
			return true
		}
	}
	return false
}

// ParseRows converts raw sheet rows into an ordered series. Rows keep file
// order; summary rows, rows without a numeric MCP and rows with an
// unreadable date are skipped.
func ParseRows(rows [][]string) ([]models.DataPoint, error) {
	h := findHeader(rows)
	if h < 0 {
		return nil, ErrHeaderNotFound
	}
	header := rows[h]
	cols := columns{
		date:     indexOf(header, "Date"),
		block:    indexOf(header, "Time Block"),
		purchase: indexOf(header, "Purchase"),
		sell:     indexOf(header, "Sell"),
		mcv:      indexOf(header, "MCV"),
		mcp:      indexOf(header, "MCP"),
	}

	series := make([]models.DataPoint, 0, len(rows)-h-1)
	for _, row := range rows[h+1:] {
		p, ok := parseRow(row, cols)
		if ok {
			series = append(series, p)
		}
	}
	if len(series) == 0 {
		return nil, ErrNoRows
	}
	return series, nil
}

func parseRow(row []string, cols columns) (models.DataPoint, bool) {
	date := strings.TrimSpace(cell(row, cols.date))
	if date == "" || isSummary(date) {
		return models.DataPoint{}, false
	}
	mcp, ok := util.ParseFloat(cell(row, cols.mcp))
	if !ok {
		return models.DataPoint{}, false
	}
	day, err := util.ParseIEXDate(date)
	if err != nil {
		return models.DataPoint{}, false
	}

	block := cell(row, cols.block)
	hour, minute := util.ParseBlockStart(block)
	weekday := day.Weekday()

	return models.DataPoint{
		Date:        date,
		DateObj:     day,
		TimeBlock:   block,
		PurchaseBid: util.ParseFloatDefault(cell(row, cols.purchase), 0),
		SellBid:     util.ParseFloatDefault(cell(row, cols.sell), 0),
		MCV:         util.ParseFloatDefault(cell(row, cols.mcv), 0),
		MCPMWh:      mcp,
		MCPKWh:      mcp / 1000,
		Hour:        hour,
		Minute:      minute,
		DayOfWeek:   int(weekday),
		IsWeekend:   weekday == time.Saturday || weekday == time.Sunday,
		Season:      models.SeasonForMonth(int(day.Month())),
		TimeOfDay:   models.TimeOfDayForHour(hour),
	}, true
}

var _ domsvc.SeriesParser = (*Parser)(nil)
