package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aqdash/internal/modules/airquality/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station.sql
var getStationSQL string

//go:embed sql/get-years.sql
var getYearsSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/upsert-reading.sql
var upsertReadingSQL string

//go:embed sql/insert-import.sql
var insertImportSQL string

//go:embed sql/get-imports.sql
var getImportsSQL string

// Timestamps are stored as fixed-width UTC text so that string comparison in
// range queries matches time order.
const tsLayout = "2006-01-02T15:04:05.000000Z"

var (
	minTS = "0000-01-01T00:00:00.000000Z"
	maxTS = "9999-12-31T23:59:59.999999Z"
)

var ErrNotFound = errors.New("not found")

type AirQualityRepository interface {
	GetStations(ctx context.Context) ([]types.Station, error)
	GetStation(ctx context.Context, id string) (types.Station, error)
	GetYears(ctx context.Context, stationID string) ([]int, error)
	GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.Reading, error)
	GetReadings(ctx context.Context, stationID string, from time.Time, to time.Time, limit int, offset int) ([]types.Reading, error)
	GetReadingsCount(ctx context.Context, stationID string, from time.Time, to time.Time) (int, error)
	InsertReading(ctx context.Context, reading types.Reading) error
	ImportReadings(ctx context.Context, source string, readings []types.Reading, skipped int) (types.ImportSummary, error)
	GetImports(ctx context.Context, limit int) ([]types.ImportSummary, error)
}

type repositoryImpl struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) AirQualityRepository {
	return &repositoryImpl{db: db, now: time.Now}
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339Nano, s)
	if err2 != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w; RFC3339Nano: %w", s, err, err2)
	}
	return t.UTC(), nil
}

// bounds turns an optional [from, to) window into stored-timestamp bounds.
func bounds(from, to time.Time) (string, string) {
	lo, hi := minTS, maxTS
	if !from.IsZero() {
		lo = formatTS(from)
	}
	if !to.IsZero() {
		hi = formatTS(to)
	}
	return lo, hi
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer closeRows(rows, "stations")

	out := []types.Station{}
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStation(ctx context.Context, id string) (types.Station, error) {
	var s types.Station
	err := r.db.QueryRowContext(ctx, getStationSQL, id).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, fmt.Errorf("station %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Station{}, fmt.Errorf("query station %q: %w", id, err)
	}
	return s, nil
}

func (r *repositoryImpl) GetYears(ctx context.Context, stationID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, getYearsSQL, stationID)
	if err != nil {
		return nil, fmt.Errorf("query years: %w", err)
	}
	defer closeRows(rows, "years")

	out := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		out = append(out, y)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer closeRows(rows, "latest readings")
	return scanReadings(rows)
}

// GetReadings returns readings in [from, to) ordered by time. A zero bound is
// open and a negative limit means no limit.
func (r *repositoryImpl) GetReadings(ctx context.Context, stationID string, from time.Time, to time.Time, limit int, offset int) ([]types.Reading, error) {
	lo, hi := bounds(from, to)
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, stationID, lo, hi, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer closeRows(rows, "readings")
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadingsCount(ctx context.Context, stationID string, from time.Time, to time.Time) (int, error) {
	lo, hi := bounds(from, to)
	var n int
	if err := r.db.QueryRowContext(ctx, getReadingsCountSQL, stationID, lo, hi).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var rec types.Reading
		var ts string
		var pm10 sql.NullFloat64
		if err := rows.Scan(&rec.StationID, &ts, &rec.PM25, &pm10); err != nil {
			return nil, err
		}
		t, err := parseTS(ts)
		if err != nil {
			return nil, err
		}
		rec.Time = t
		if pm10.Valid {
			v := pm10.Float64
			rec.PM10 = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func validateReading(reading types.Reading) error {
	if reading.StationID == "" {
		return errors.New("station id is required")
	}
	if reading.Time.IsZero() {
		return errors.New("timestamp is required")
	}
	if reading.PM25 < 0 {
		return fmt.Errorf("pm25 must not be negative: %f", reading.PM25)
	}
	if reading.PM10 != nil && *reading.PM10 < 0 {
		return fmt.Errorf("pm10 must not be negative: %f", *reading.PM10)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// InsertReading stores one reading, creating its station on first sight. A
// reading for an existing (station, time) pair replaces the stored values.
func (r *repositoryImpl) InsertReading(ctx context.Context, reading types.Reading) error {
	if err := validateReading(reading); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertStationSQL, reading.StationID, reading.StationID); err != nil {
		return fmt.Errorf("upsert station %q: %w", reading.StationID, err)
	}
	_, err := r.db.ExecContext(ctx, upsertReadingSQL,
		reading.StationID, formatTS(reading.Time), reading.PM25, nullable(reading.PM10))
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// ImportReadings stores a parsed dataset in a single transaction and records
// the import. Nothing is written if any reading fails.
func (r *repositoryImpl) ImportReadings(ctx context.Context, source string, readings []types.Reading, skipped int) (types.ImportSummary, error) {
	for i, reading := range readings {
		if err := validateReading(reading); err != nil {
			return types.ImportSummary{}, fmt.Errorf("reading %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ImportSummary{}, fmt.Errorf("begin import: %w", err)
	}
	rollback := func(cause error) (types.ImportSummary, error) {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback import", "source", source, "error", rbErr)
		}
		return types.ImportSummary{}, cause
	}

	stationStmt, err := tx.PrepareContext(ctx, upsertStationSQL)
	if err != nil {
		return rollback(fmt.Errorf("prepare station upsert: %w", err))
	}
	defer func() { _ = stationStmt.Close() }()

	readingStmt, err := tx.PrepareContext(ctx, upsertReadingSQL)
	if err != nil {
		return rollback(fmt.Errorf("prepare reading upsert: %w", err))
	}
	defer func() { _ = readingStmt.Close() }()

	seen := make(map[string]bool)
	for _, reading := range readings {
		if !seen[reading.StationID] {
			if _, err := stationStmt.ExecContext(ctx, reading.StationID, reading.StationID); err != nil {
				return rollback(fmt.Errorf("upsert station %q: %w", reading.StationID, err))
			}
			seen[reading.StationID] = true
		}
		_, err := readingStmt.ExecContext(ctx,
			reading.StationID, formatTS(reading.Time), reading.PM25, nullable(reading.PM10))
		if err != nil {
			return rollback(fmt.Errorf("upsert reading %s@%s: %w", reading.StationID, formatTS(reading.Time), err))
		}
	}

	summary := types.ImportSummary{
		ID:         uuid.NewString(),
		Source:     source,
		Rows:       len(readings),
		Skipped:    skipped,
		ImportedAt: r.now().UTC().Truncate(time.Microsecond),
	}
	_, err = tx.ExecContext(ctx, insertImportSQL,
		summary.ID, summary.Source, summary.Rows, summary.Skipped, formatTS(summary.ImportedAt))
	if err != nil {
		return rollback(fmt.Errorf("record import: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return types.ImportSummary{}, fmt.Errorf("commit import: %w", err)
	}
	return summary, nil
}

func (r *repositoryImpl) GetImports(ctx context.Context, limit int) ([]types.ImportSummary, error) {
	rows, err := r.db.QueryContext(ctx, getImportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer closeRows(rows, "imports")

	out := []types.ImportSummary{}
	for rows.Next() {
		var s types.ImportSummary
		var ts string
		if err := rows.Scan(&s.ID, &s.Source, &s.Rows, &s.Skipped, &ts); err != nil {
			return nil, err
		}
		t, err := parseTS(ts)
		if err != nil {
			return nil, err
		}
		s.ImportedAt = t
		out = append(out, s)
	}
	return out, rows.Err()
}
