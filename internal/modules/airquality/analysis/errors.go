package analysis

import "errors"

var (
	// ErrInsufficientData is returned when a trend cannot be fitted: fewer than
	// two points, or every point falls on the same day.
	ErrInsufficientData = errors.New("insufficient data for trend")

	// ErrEmptyResult is returned when no reading matches the requested window.
	ErrEmptyResult = errors.New("no readings for the selected period")
)
