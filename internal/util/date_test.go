package util

import (
	"math/rand"
	"testing"
	"time"
)

func TestIsLeapYear(t *testing.T) {
	cases := []struct {
		year int
		want bool
	}{
		{1900, false},
		{1904, true},
		{2000, true},
		{2100, false},
		{2023, false},
		{2024, true},
		{2025, false},
	}
	for _, c := range cases {
		if got := IsLeapYear(c.year); got != c.want {
			t.Fatalf("IsLeapYear(%d)=%v, want %v", c.year, got, c.want)
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	if got := DaysInMonth(2023, 2); got != 28 {
		t.Fatalf("DaysInMonth(2023, 2)=%d, want 28", got)
	}
	if got := DaysInMonth(2024, 2); got != 29 {
		t.Fatalf("DaysInMonth(2024, 2)=%d, want 29", got)
	}
	if got := DaysInMonth(2024, 4); got != 30 {
		t.Fatalf("DaysInMonth(2024, 4)=%d, want 30", got)
	}
	if got := DaysInMonth(2024, 1); got != 31 {
		t.Fatalf("DaysInMonth(2024, 1)=%d, want 31", got)
	}
}

func TestRandDateIsValid(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 2000; i++ {
		text := RandDate(r, 1900, 2100)
		d, err := time.Parse("2006-01-02", text)
		if err != nil {
			t.Fatalf("RandDate produced %q: %v", text, err)
		}
		if d.Year() < 1900 || d.Year() > 2100 {
			t.Fatalf("RandDate year out of range: %q", text)
		}
	}
}

func TestRandClock(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		text := RandClock(r)
		if _, err := time.Parse("15:04:05", text); err != nil {
			t.Fatalf("RandClock produced %q: %v", text, err)
		}
	}
}

func TestRandIntRangeInclusive(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	sawMin, sawMax := false, false
	for i := 0; i < 500; i++ {
		v := RandIntRange(r, 1, 3)
		if v < 1 || v > 3 {
			t.Fatalf("RandIntRange out of bounds: %d", v)
		}
		sawMin = sawMin || v == 1
		sawMax = sawMax || v == 3
	}
	if !sawMin || !sawMax {
		t.Fatalf("expected both bounds to be drawn, min=%v max=%v", sawMin, sawMax)
	}
	if got := RandIntRange(r, 5, 2); got != 5 {
		t.Fatalf("RandIntRange(5, 2)=%d, want 5", got)
	}
}
