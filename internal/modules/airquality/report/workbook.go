// Package report exports a computed dashboard as a spreadsheet or as text for
// a terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"aqdash/internal/modules/airquality/analysis"
	"aqdash/internal/modules/airquality/service"
)

const (
	SheetSummary  = "Summary"
	SheetReadings = "Readings"
	SheetMonthly  = "Monthly"
	SheetCalendar = "Calendar"
	SheetTrend    = "Trend"
)

const timeLayout = "2006-01-02 15:04"

type workbook struct {
	f          *excelize.File
	header     int
	categories map[analysis.Category]int
}

// WriteWorkbook writes d as an xlsx workbook with one sheet per dashboard
// panel. Category cells are filled with the category color.
func WriteWorkbook(w io.Writer, d service.Dashboard) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	wb, err := newWorkbook(f)
	if err != nil {
		return err
	}

	steps := []func(service.Dashboard) error{
		wb.summary,
		wb.readings,
		wb.monthly,
		wb.calendar,
		wb.trend,
	}
	for _, step := range steps {
		if err := step(d); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newWorkbook(f *excelize.File) (*workbook, error) {
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetReadings, SheetMonthly, SheetCalendar, SheetTrend} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	wb := &workbook{f: f, header: header, categories: make(map[analysis.Category]int)}
	for _, c := range analysis.Categories() {
		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{c.Color()}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return nil, fmt.Errorf("create %s style: %w", c, err)
		}
		wb.categories[c] = style
	}
	return wb, nil
}

func (wb *workbook) set(sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := wb.f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
	}
	return nil
}

func (wb *workbook) style(sheet string, col, row, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, cell, cell, style)
}

func (wb *workbook) headerRow(sheet string, row int, headers ...string) error {
	for i, h := range headers {
		if err := wb.set(sheet, i+1, row, h); err != nil {
			return err
		}
		if err := wb.style(sheet, i+1, row, wb.header); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) freezeHeader(sheet string) error {
	return wb.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (wb *workbook) summary(d service.Dashboard) error {
	rows := [][2]any{
		{"Station", d.Station.Name},
		{"Year", d.Filter.Year},
		{"Month", d.Filter.Month.String()},
		{"Readings", len(d.Readings)},
	}
	for i, r := range rows {
		if err := wb.set(SheetSummary, 1, i+1, r[0]); err != nil {
			return err
		}
		if err := wb.style(SheetSummary, 1, i+1, wb.header); err != nil {
			return err
		}
		if err := wb.set(SheetSummary, 2, i+1, r[1]); err != nil {
			return err
		}
	}

	row := len(rows) + 2
	if err := wb.headerRow(SheetSummary, row, "Category", "Label", "Count"); err != nil {
		return err
	}
	for _, c := range analysis.Categories() {
		row++
		if err := wb.set(SheetSummary, 1, row, c.String()); err != nil {
			return err
		}
		if err := wb.style(SheetSummary, 1, row, wb.categories[c]); err != nil {
			return err
		}
		if err := wb.set(SheetSummary, 2, row, c.Label()); err != nil {
			return err
		}
		if err := wb.set(SheetSummary, 3, row, d.Counts[c]); err != nil {
			return err
		}
	}

	if len(d.Warnings) > 0 {
		row += 2
		if err := wb.set(SheetSummary, 1, row, "Warnings"); err != nil {
			return err
		}
		if err := wb.set(SheetSummary, 2, row, strings.Join(d.Warnings, "; ")); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(SheetSummary, "A", "B", 20)
}

func (wb *workbook) readings(d service.Dashboard) error {
	if err := wb.headerRow(SheetReadings, 1, "Time", "PM2.5", "PM10", "Category"); err != nil {
		return err
	}
	for i, r := range d.Readings {
		row := i + 2
		category := analysis.Categorize(r.PM25)
		if err := wb.set(SheetReadings, 1, row, r.Time.Format(timeLayout)); err != nil {
			return err
		}
		if err := wb.set(SheetReadings, 2, row, r.PM25); err != nil {
			return err
		}
		if r.PM10 != nil {
			if err := wb.set(SheetReadings, 3, row, *r.PM10); err != nil {
				return err
			}
		}
		if err := wb.set(SheetReadings, 4, row, category.String()); err != nil {
			return err
		}
		if err := wb.style(SheetReadings, 4, row, wb.categories[category]); err != nil {
			return err
		}
	}
	if err := wb.f.SetColWidth(SheetReadings, "A", "A", 18); err != nil {
		return err
	}
	if err := wb.f.SetColWidth(SheetReadings, "D", "D", 16); err != nil {
		return err
	}
	return wb.freezeHeader(SheetReadings)
}

func (wb *workbook) monthly(d service.Dashboard) error {
	if err := wb.headerRow(SheetMonthly, 1, "Month", "Mean PM2.5", "Readings"); err != nil {
		return err
	}
	for i, m := range d.Monthly {
		row := i + 2
		if err := wb.set(SheetMonthly, 1, row, m.Month.String()); err != nil {
			return err
		}
		if err := wb.set(SheetMonthly, 2, row, m.Mean); err != nil {
			return err
		}
		if err := wb.style(SheetMonthly, 2, row, wb.categories[analysis.Categorize(m.Mean)]); err != nil {
			return err
		}
		if err := wb.set(SheetMonthly, 3, row, m.Count); err != nil {
			return err
		}
	}
	return wb.freezeHeader(SheetMonthly)
}

func (wb *workbook) calendar(d service.Dashboard) error {
	headers := append([]string{"Week"}, analysis.WeekdayLabels[:]...)
	if err := wb.headerRow(SheetCalendar, 1, headers...); err != nil {
		return err
	}
	if d.Calendar == nil {
		return wb.set(SheetCalendar, 1, 2, "No readings for the selected month")
	}
	for i, week := range d.Calendar.Weeks() {
		row := i + 2
		if err := wb.set(SheetCalendar, 1, row, fmt.Sprintf("W%02d", week)); err != nil {
			return err
		}
		for weekday := 0; weekday < 7; weekday++ {
			cell, ok := d.Calendar.Cell(week, weekday)
			if !ok {
				continue
			}
			if err := wb.set(SheetCalendar, weekday+2, row, cell.Value); err != nil {
				return err
			}
			if err := wb.style(SheetCalendar, weekday+2, row, wb.categories[cell.Category()]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wb *workbook) trend(d service.Dashboard) error {
	if err := wb.headerRow(SheetTrend, 1, "Field", "Value"); err != nil {
		return err
	}
	if d.Trend == nil {
		return wb.set(SheetTrend, 1, 2, "Trend unavailable")
	}
	rows := [][2]any{
		{"Slope (µg/m³ per day)", d.Trend.Slope},
		{"Intercept (µg/m³)", d.Trend.Intercept},
		{"Origin", d.Trend.Origin.Format(timeLayout)},
	}
	for i, r := range rows {
		if err := wb.set(SheetTrend, 1, i+2, r[0]); err != nil {
			return err
		}
		if err := wb.set(SheetTrend, 2, i+2, r[1]); err != nil {
			return err
		}
	}
	return wb.f.SetColWidth(SheetTrend, "A", "A", 24)
}
