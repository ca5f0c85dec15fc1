// Package analysis turns PM2.5 series into the aggregates the dashboard draws:
// health categories, a linear trend, monthly means and a week-by-weekday grid.
package analysis

import (
	"fmt"

	"aqdash/internal/modules/airquality/types"
)

// Category is a PM2.5 health band. The zero value is Good and the order of the
// constants is the order of severity.
type Category int

const (
	Good Category = iota
	Moderate
	Unhealthy
	VeryUnhealthy
	Hazardous
)

type categoryInfo struct {
	name  string
	label string
	color string
	upper float64
}

var categoryTable = [...]categoryInfo{
	Good:          {name: "Good", label: "Baik", color: "#2E8B57", upper: 15},
	Moderate:      {name: "Moderate", label: "Sedang", color: "#FADA7A", upper: 65},
	Unhealthy:     {name: "Unhealthy", label: "Tidak Sehat", color: "#FF8C00", upper: 150},
	VeryUnhealthy: {name: "VeryUnhealthy", label: "Sangat Tidak Sehat", color: "#DC143C", upper: 250},
	Hazardous:     {name: "Hazardous", label: "Berbahaya", color: "#8B0000"},
}

// Categorize maps a concentration in µg/m³ to its band. Each upper bound
// belongs to the lower band. Negative values land in Good.
func Categorize(concentration float64) Category {
	switch {
	case concentration <= 15:
		return Good
	case concentration <= 65:
		return Moderate
	case concentration <= 150:
		return Unhealthy
	case concentration <= 250:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}

// Categories returns every band, least severe first.
func Categories() []Category {
	return []Category{Good, Moderate, Unhealthy, VeryUnhealthy, Hazardous}
}

func (c Category) valid() bool {
	return c >= Good && c <= Hazardous
}

func (c Category) String() string {
	if !c.valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryTable[c].name
}

// Label is the band name shown on the dashboard.
func (c Category) Label() string {
	if !c.valid() {
		return ""
	}
	return categoryTable[c].label
}

// Color is the band's display color as #RRGGBB.
func (c Category) Color() string {
	if !c.valid() {
		return ""
	}
	return categoryTable[c].color
}

// UpperBound reports the inclusive upper limit of the band. Hazardous has none.
func (c Category) UpperBound() (float64, bool) {
	if !c.valid() || c == Hazardous {
		return 0, false
	}
	return categoryTable[c].upper, true
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(categoryTable[c].name), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	for _, cat := range Categories() {
		if categoryTable[cat].name == string(text) {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", string(text))
}

// CategoryCounts tallies the readings per band. Every band is present in the
// result, with zero when nothing falls into it.
func CategoryCounts(series []types.Reading) map[Category]int {
	out := make(map[Category]int, len(categoryTable))
	for _, c := range Categories() {
		out[c] = 0
	}
	for _, r := range series {
		out[Categorize(r.PM25)]++
	}
	return out
}
