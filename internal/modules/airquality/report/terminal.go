package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"aqdash/internal/modules/airquality/analysis"
)

const cellWidth = 6

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Width(cellWidth).Align(lipgloss.Center)
	weekStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(cellWidth)
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(cellWidth).Align(lipgloss.Center)
)

// categoryStyle fills a cell with the category color and picks black or white
// text by lightness so that values stay readable.
func categoryStyle(c analysis.Category) lipgloss.Style {
	fg := "#FFFFFF"
	if col, err := colorful.Hex(c.Color()); err == nil {
		if l, _, _ := col.Lab(); l > 0.6 {
			fg = "#000000"
		}
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Color())).
		Foreground(lipgloss.Color(fg)).
		Width(cellWidth).
		Align(lipgloss.Center)
}

// RenderCalendar draws a week grid for a terminal: one row per ISO week,
// weekday columns from Monday, cells colored by health category.
func RenderCalendar(grid analysis.WeekGrid) string {
	title := titleStyle.Render(fmt.Sprintf("PM2.5 %04d-%02d", grid.Year(), int(grid.Month())))
	if grid.Len() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, emptyStyle.UnsetWidth().Render("no readings"))
	}

	header := []string{weekStyle.Render("")}
	for _, label := range analysis.WeekdayLabels {
		header = append(header, headerStyle.Render(label))
	}
	rows := []string{title, lipgloss.JoinHorizontal(lipgloss.Top, header...)}

	for _, week := range grid.Weeks() {
		cells := []string{weekStyle.Render(fmt.Sprintf("W%02d", week))}
		for weekday := 0; weekday < 7; weekday++ {
			cell, ok := grid.Cell(week, weekday)
			if !ok {
				cells = append(cells, emptyStyle.Render("·"))
				continue
			}
			cells = append(cells, categoryStyle(cell.Category()).Render(fmt.Sprintf("%.0f", cell.Value)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	rows = append(rows, "", RenderLegend())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// RenderLegend lists the categories with their colors and upper bounds.
func RenderLegend() string {
	var parts []string
	var prev float64
	for _, c := range analysis.Categories() {
		bound := fmt.Sprintf("> %.0f", prev)
		if upper, ok := c.UpperBound(); ok {
			bound = fmt.Sprintf("≤ %.0f", upper)
			prev = upper
		}
		swatch := categoryStyle(c).Width(2).Render("")
		parts = append(parts, fmt.Sprintf("%s %s (%s)", swatch, c.String(), bound))
	}
	return strings.Join(parts, "  ")
}
