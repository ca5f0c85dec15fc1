package analysis

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"aqdash/internal/modules/airquality/types"
)

// TrendLine is a least-squares fit of PM2.5 against whole days elapsed since
// Origin, the earliest timestamp of the fitted series.
type TrendLine struct {
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	Origin    time.Time `json:"origin"`
}

// At evaluates the line at the given number of elapsed days.
func (t TrendLine) At(days float64) float64 {
	return t.Intercept + t.Slope*days
}

// AtTime evaluates the line at ts, truncated to whole days since Origin.
func (t TrendLine) AtTime(ts time.Time) float64 {
	return t.At(elapsedDays(t.Origin, ts))
}

// ElapsedDays returns, for each reading in order, the whole days elapsed since
// the earliest timestamp of the series. Sub-day precision is discarded.
func ElapsedDays(series []types.Reading) []float64 {
	if len(series) == 0 {
		return nil
	}
	origin := earliest(series)
	xs := make([]float64, len(series))
	for i, r := range series {
		xs[i] = elapsedDays(origin, r.Time)
	}
	return xs
}

// FitTrend fits concentration = Intercept + Slope*days by ordinary least
// squares. It returns ErrInsufficientData for fewer than two readings or when
// all readings fall on the origin day.
func FitTrend(series []types.Reading) (TrendLine, error) {
	if len(series) < 2 {
		return TrendLine{}, fmt.Errorf("%w: %d reading(s)", ErrInsufficientData, len(series))
	}

	xs := ElapsedDays(series)
	// Elapsed days start at zero, so a zero maximum means zero variance.
	if floats.Max(xs) == 0 {
		return TrendLine{}, fmt.Errorf("%w: all readings on one day", ErrInsufficientData)
	}

	ys := make([]float64, len(series))
	for i, r := range series {
		ys[i] = r.PM25
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return TrendLine{Slope: beta, Intercept: alpha, Origin: earliest(series)}, nil
}

func earliest(series []types.Reading) time.Time {
	origin := series[0].Time
	for _, r := range series[1:] {
		if r.Time.Before(origin) {
			origin = r.Time
		}
	}
	return origin
}

func elapsedDays(origin, ts time.Time) float64 {
	return math.Floor(ts.Sub(origin).Hours() / 24)
}
