package services

import "time"

// Horizon decides how far template generation reaches for a given moment.
type Horizon interface {
	// Through returns the year and the last 0-based month to generate.
	Through(now time.Time) (year, monthIndex int)
}

// CurrentMonth generates up to and including the current calendar month.
type CurrentMonth struct{}

func (CurrentMonth) Through(now time.Time) (int, int) {
	return now.Year(), int(now.Month()) - 1
}

// YearEnd generates the whole calendar year of now.
type YearEnd struct{}

func (YearEnd) Through(now time.Time) (int, int) {
	return now.Year(), 11
}

// HorizonFor maps a configuration value onto a Horizon. Unknown values fall
// back to CurrentMonth.
func HorizonFor(name string) Horizon {
	switch name {
	case "year", "year_end", "yearly":
		return YearEnd{}
	default:
		return CurrentMonth{}
	}
}
