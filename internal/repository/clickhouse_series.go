package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"IEXCast/internal/domain/models"
	domrepo "IEXCast/internal/domain/repository"
	pkgch "IEXCast/pkg/clickhouse"
	applogger "IEXCast/pkg/logger"
	"IEXCast/pkg/util"
)

// insertChunk bounds rows per multi-row INSERT.
const insertChunk = 2000

// SeriesSchema returns the DDL for the day-ahead price table. block is the
// row's position within its delivery day, so exports without a time block
// column keep one row per interval.
func SeriesSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    date         Date,
    block        UInt16,
    label        String,
    time_block   String,
    purchase_bid Float64,
    sell_bid     Float64,
    mcv          Float64,
    mcp          Float64,
    ingested_at  DateTime DEFAULT now()
) ENGINE = ReplacingMergeTree(ingested_at)
ORDER BY (date, block)`, table),
	}
}

// CHSeries reads and archives IEX day-ahead prices in ClickHouse.
type CHSeries struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHSeries(ch *pkgch.Client, table string, l *applogger.Logger) *CHSeries {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeries{db: ch.DB(), table: table, l: l}
}

// LoadSeries returns the blocks of [from, to] (whole days, inclusive) in
// delivery order. FINAL collapses re-ingested duplicates.
func (s *CHSeries) LoadSeries(ctx context.Context, from, to time.Time) ([]models.DataPoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, label, time_block, purchase_bid, sell_bid, mcv, mcp
        FROM %s FINAL
        WHERE date >= ? AND date <= ?
        ORDER BY date ASC, block ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		s.l.Error("clickhouse load_series query error",
			applogger.String("table", s.table),
			applogger.Error(err))
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	out := make([]models.DataPoint, 0, 1024)
	for rows.Next() {
		var r archivedRow
		if err := rows.Scan(&r.date, &r.label, &r.timeBlock, &r.purchase, &r.sell, &r.mcv, &r.mcp); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		out = append(out, r.point())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse load_series",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("took", time.Since(start)))
	return out, nil
}

// StoreSeries archives an uploaded series. Blocks already stored for the
// same day are replaced on merge.
func (s *CHSeries) StoreSeries(ctx context.Context, series []models.DataPoint) error {
	blocks := dayPositions(series)
	for start := 0; start < len(series); start += insertChunk {
		end := start + insertChunk
		if end > len(series) {
			end = len(series)
		}
		q, args := insertStatement(s.table, series[start:end], blocks[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store series: %w", err)
		}
	}
	return nil
}

func (s *CHSeries) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// dayPositions numbers each point within its delivery day in series order.
func dayPositions(series []models.DataPoint) []uint16 {
	seen := make(map[time.Time]uint16)
	out := make([]uint16, len(series))
	for i, p := range series {
		if p.DateObj.IsZero() {
			continue
		}
		out[i] = seen[p.DateObj]
		seen[p.DateObj]++
	}
	return out
}

func insertStatement(table string, series []models.DataPoint, blocks []uint16) (string, []interface{}) {
	values := make([]string, 0, len(series))
	args := make([]interface{}, 0, len(series)*8)
	for i, p := range series {
		if p.DateObj.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			p.DateObj.Format("2006-01-02"),
			blocks[i],
			p.Date,
			p.TimeBlock,
			p.PurchaseBid,
			p.SellBid,
			p.MCV,
			p.MCPMWh,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (date, block, label, time_block, purchase_bid, sell_bid, mcv, mcp) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

type archivedRow struct {
	date                     time.Time
	label                    string
	timeBlock                string
	purchase, sell, mcv, mcp float64
}

// point rebuilds a DataPoint with the derived fields ingestion computes. The
// uploaded date label is kept as is; rows without one get DD-MM-YYYY.
func (r archivedRow) point() models.DataPoint {
	day := time.Date(r.date.Year(), r.date.Month(), r.date.Day(), 0, 0, 0, 0, time.UTC)
	hour, minute := util.ParseBlockStart(r.timeBlock)
	wd := day.Weekday()
	label := r.label
	if label == "" {
		label = day.Format(util.DateLayout)
	}
	return models.DataPoint{
		Date:        label,
		DateObj:     day,
		TimeBlock:   r.timeBlock,
		PurchaseBid: r.purchase,
		SellBid:     r.sell,
		MCV:         r.mcv,
		MCPMWh:      r.mcp,
		MCPKWh:      r.mcp / 1000,
		Hour:        hour,
		Minute:      minute,
		DayOfWeek:   int(wd),
		IsWeekend:   wd == time.Saturday || wd == time.Sunday,
		Season:      models.SeasonForMonth(int(day.Month())),
		TimeOfDay:   models.TimeOfDayForHour(hour),
	}
}

var (
	_ domrepo.SeriesSource  = (*CHSeries)(nil)
	_ domrepo.SeriesArchive = (*CHSeries)(nil)
)
