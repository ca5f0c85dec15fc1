// Package dataset reads PM2.5 readings from the pre-aggregated CSV the
// dashboard is fed with.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"aqdash/internal/modules/airquality/types"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyFile     = errors.New("empty dataset")
)

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
}

// RowError describes a data row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

type Result struct {
	Readings []types.Reading
	Skipped  []RowError
}

type columns struct {
	station  int
	datetime int
	year     int
	month    int
	day      int
	hour     int
	pm25     int
	pm10     int
}

// Parse reads a CSV with a header row. The station, datetime and PM2.5
// columns are required; when datetime is absent, year/month/day/hour columns
// are used instead. PM10 is optional and every other column is ignored.
// Rows that cannot be used are reported in Result.Skipped; only header and
// I/O problems are returned as errors.
func Parse(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrEmptyFile
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				res.Skipped = append(res.Skipped, RowError{Line: parseErr.Line, Err: parseErr.Err})
				continue
			}
			return res, fmt.Errorf("read dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)

		reading, err := cols.reading(record)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err})
			continue
		}
		res.Readings = append(res.Readings, reading)
	}
	return res, nil
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{station: -1, datetime: -1, year: -1, month: -1, day: -1, hour: -1, pm25: -1, pm10: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch name {
		case "station":
			cols.station = i
		case "datetime", "date", "timestamp":
			if cols.datetime < 0 {
				cols.datetime = i
			}
		case "year":
			cols.year = i
		case "month":
			cols.month = i
		case "day":
			cols.day = i
		case "hour":
			cols.hour = i
		case "pm2.5", "pm25", "pm2_5":
			cols.pm25 = i
		case "pm10":
			cols.pm10 = i
		}
	}

	if cols.station < 0 {
		return cols, fmt.Errorf("%w: station", ErrMissingColumn)
	}
	if cols.pm25 < 0 {
		return cols, fmt.Errorf("%w: PM2.5", ErrMissingColumn)
	}
	if cols.datetime < 0 && (cols.year < 0 || cols.month < 0 || cols.day < 0) {
		return cols, fmt.Errorf("%w: datetime (or year, month, day)", ErrMissingColumn)
	}
	return cols, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) reading(record []string) (types.Reading, error) {
	station := field(record, c.station)
	if station == "" {
		return types.Reading{}, errors.New("empty station")
	}

	ts, err := c.timestamp(record)
	if err != nil {
		return types.Reading{}, err
	}

	pm25, err := parseConcentration(field(record, c.pm25))
	if err != nil {
		return types.Reading{}, fmt.Errorf("PM2.5: %w", err)
	}

	reading := types.Reading{StationID: station, Time: ts, PM25: pm25}
	if raw := field(record, c.pm10); raw != "" && !isMissing(raw) {
		pm10, err := parseConcentration(raw)
		if err != nil {
			return types.Reading{}, fmt.Errorf("PM10: %w", err)
		}
		reading.PM10 = &pm10
	}
	return reading, nil
}

func (c columns) timestamp(record []string) (time.Time, error) {
	if c.datetime >= 0 {
		return ParseTime(field(record, c.datetime))
	}

	parts := make([]int, 4)
	for i, idx := range []int{c.year, c.month, c.day, c.hour} {
		raw := field(record, idx)
		if raw == "" && idx == c.hour {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date part %q", raw)
		}
		parts[i] = n
	}
	ts := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], 0, 0, 0, time.UTC)
	if ts.Month() != time.Month(parts[1]) || ts.Day() != parts[2] {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", parts[0], parts[1], parts[2])
	}
	return ts, nil
}

// ParseTime accepts the timestamp layouts found in the dataset. Values without
// a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func isMissing(s string) bool {
	switch strings.ToUpper(s) {
	case "NA", "N/A", "NAN", "NULL", "-":
		return true
	}
	return false
}

func parseConcentration(s string) (float64, error) {
	if s == "" || isMissing(s) {
		return 0, errors.New("missing value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative concentration %v", v)
	}
	return v, nil
}
