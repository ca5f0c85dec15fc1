package analysis

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"aqdash/internal/modules/airquality/types"
)

type MonthlyAverage struct {
	Month time.Month `json:"month"`
	Mean  float64    `json:"mean"`
	Count int        `json:"count"`
}

// MonthlyAverages groups readings by calendar month, regardless of year, and
// returns the mean of each group in month order. Months without readings are
// left out rather than reported as zero.
func MonthlyAverages(series []types.Reading) []MonthlyAverage {
	var groups [13][]float64
	for _, r := range series {
		m := r.Time.Month()
		groups[m] = append(groups[m], r.PM25)
	}

	out := make([]MonthlyAverage, 0, 12)
	for m := time.January; m <= time.December; m++ {
		values := groups[m]
		if len(values) == 0 {
			continue
		}
		out = append(out, MonthlyAverage{
			Month: m,
			Mean:  stat.Mean(values, nil),
			Count: len(values),
		})
	}
	return out
}
