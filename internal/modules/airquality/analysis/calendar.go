package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"aqdash/internal/modules/airquality/types"
)

// WeekdayLabels holds the column headings of a WeekGrid, Monday first.
var WeekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Cell is one day of a WeekGrid. When several readings share a day, Value is
// their mean and Count says how many there were.
type Cell struct {
	ISOYear int       `json:"isoYear"`
	Week    int       `json:"week"`
	Weekday int       `json:"weekday"`
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	Count   int       `json:"count"`
}

func (c Cell) Category() Category {
	return Categorize(c.Value)
}

type cellKey struct {
	week    int
	weekday int
}

// WeekGrid is a sparse calendar of one month keyed by ISO week number and
// weekday index (0 = Monday). Missing cells are days without data.
type WeekGrid struct {
	year  int
	month time.Month
	cells map[cellKey]Cell
	weeks []int
}

// BuildWeekGrid keeps the readings that fall in year/month and lays them out
// by ISO week and weekday. It returns ErrEmptyResult when nothing matches.
func BuildWeekGrid(series []types.Reading, year int, month time.Month) (WeekGrid, error) {
	inMonth := FilterMonth(series, year, month)
	if len(inMonth) == 0 {
		return WeekGrid{}, fmt.Errorf("%w: %04d-%02d", ErrEmptyResult, year, int(month))
	}

	sums := make(map[cellKey]float64)
	grid := WeekGrid{year: year, month: month, cells: make(map[cellKey]Cell)}
	for _, r := range inMonth {
		isoYear, week := r.Time.ISOWeek()
		key := cellKey{week: week, weekday: WeekdayIndex(r.Time)}
		c := grid.cells[key]
		if c.Count == 0 {
			c = Cell{
				ISOYear: isoYear,
				Week:    week,
				Weekday: key.weekday,
				Date:    time.Date(r.Time.Year(), r.Time.Month(), r.Time.Day(), 0, 0, 0, 0, r.Time.Location()),
			}
		}
		c.Count++
		sums[key] += r.PM25
		c.Value = sums[key] / float64(c.Count)
		grid.cells[key] = c
	}

	grid.weeks = orderedWeeks(grid.cells)
	return grid, nil
}

// orderedWeeks lists week numbers in calendar order. Early January days can
// belong to week 52/53 of the previous ISO year and late December days to
// week 1 of the next, so ordering goes by ISO year first.
func orderedWeeks(cells map[cellKey]Cell) []int {
	isoYears := make(map[int]int)
	for k, c := range cells {
		isoYears[k.week] = c.ISOYear
	}
	weeks := make([]int, 0, len(isoYears))
	for w := range isoYears {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool {
		yi, yj := isoYears[weeks[i]], isoYears[weeks[j]]
		if yi != yj {
			return yi < yj
		}
		return weeks[i] < weeks[j]
	})
	return weeks
}

func (g WeekGrid) Year() int         { return g.year }
func (g WeekGrid) Month() time.Month { return g.month }
func (g WeekGrid) Len() int          { return len(g.cells) }

// Weeks returns the week numbers present in the grid in calendar order.
func (g WeekGrid) Weeks() []int {
	return append([]int(nil), g.weeks...)
}

func (g WeekGrid) Cell(week, weekday int) (Cell, bool) {
	c, ok := g.cells[cellKey{week: week, weekday: weekday}]
	return c, ok
}

func (g WeekGrid) Value(week, weekday int) (float64, bool) {
	c, ok := g.Cell(week, weekday)
	return c.Value, ok
}

// Cells returns the filled cells ordered by week, then weekday.
func (g WeekGrid) Cells() []Cell {
	out := make([]Cell, 0, len(g.cells))
	for _, w := range g.weeks {
		for d := 0; d < len(WeekdayLabels); d++ {
			if c, ok := g.Cell(w, d); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

func (g WeekGrid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year  int        `json:"year"`
		Month time.Month `json:"month"`
		Weeks []int      `json:"weeks"`
		Cells []Cell     `json:"cells"`
	}{
		Year:  g.year,
		Month: g.month,
		Weeks: g.Weeks(),
		Cells: g.Cells(),
	})
}

// WeekdayIndex numbers weekdays from Monday (0) to Sunday (6).
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// FilterMonth returns the readings whose timestamp falls in year/month,
// preserving their order. The input is not modified.
func FilterMonth(series []types.Reading, year int, month time.Month) []types.Reading {
	var out []types.Reading
	for _, r := range series {
		if r.Time.Year() == year && r.Time.Month() == month {
			out = append(out, r)
		}
	}
	return out
}

type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// RecentMonths lists the distinct months that have readings in the year
// ending at end (inclusive), oldest first.
func RecentMonths(series []types.Reading, end time.Time) []YearMonth {
	start := end.AddDate(-1, 0, 0)
	seen := make(map[YearMonth]bool)
	var out []YearMonth
	for _, r := range series {
		if r.Time.Before(start) || r.Time.After(end) {
			continue
		}
		ym := YearMonth{Year: r.Time.Year(), Month: r.Time.Month()}
		if seen[ym] {
			continue
		}
		seen[ym] = true
		out = append(out, ym)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}
