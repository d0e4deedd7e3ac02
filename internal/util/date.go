package util

import (
	"fmt"
	"math/rand"
	"time"
)

// IsLeapYear reports whether year has a February 29th.
func IsLeapYear(year int) bool {
	return DaysInMonth(year, 2) == 29
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month int) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RandDate returns a valid calendar date in [minYear, maxYear] as YYYY-MM-DD.
func RandDate(r *rand.Rand, minYear, maxYear int) string {
	year := RandIntRange(r, minYear, maxYear)
	month := RandIntRange(r, 1, 12)
	day := RandIntRange(r, 1, DaysInMonth(year, month))
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// RandClock returns a wall-clock time as HH:MM:SS.
func RandClock(r *rand.Rand) string {
	return fmt.Sprintf("%02d:%02d:%02d", r.Intn(24), r.Intn(60), r.Intn(60))
}
