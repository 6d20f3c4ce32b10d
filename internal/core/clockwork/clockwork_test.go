package clockwork

import (
	"testing"
	"time"
)

func dhaka(t *testing.T) Zone {
	t.Helper()
	z, err := LoadZone("Asia/Dhaka")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return z
}

func TestBusinessDateAndTime(t *testing.T) {
	z := dhaka(t)

	// 03:05 UTC = 09:05 in Dhaka (+06:00)
	utc := time.Date(2024, 1, 15, 3, 5, 0, 0, time.UTC)

	d := z.BusinessDate(utc)
	if d.String() != "2024-01-15" {
		t.Fatalf("business date = %s", d)
	}
	tod := z.BusinessTime(utc)
	if tod.String() != "09:05:00" {
		t.Fatalf("business time = %s", tod)
	}
}

func TestBusinessDateCrossesMidnight(t *testing.T) {
	z := dhaka(t)

	// 19:30 UTC on Jan 15 = 01:30 on Jan 16 in Dhaka
	utc := time.Date(2024, 1, 15, 19, 30, 0, 0, time.UTC)
	if got := z.BusinessDate(utc).String(); got != "2024-01-16" {
		t.Fatalf("business date = %s", got)
	}
}

func TestBusinessDayStartRoundTrip(t *testing.T) {
	z := dhaka(t)

	dates := []Date{
		{Year: 2024, Month: time.January, Day: 15},
		{Year: 2024, Month: time.February, Day: 29},
		{Year: 2024, Month: time.December, Day: 31},
	}
	for _, d := range dates {
		start := z.BusinessDayStart(d)
		if got := z.BusinessDate(start); got != d {
			t.Fatalf("round trip date: got %s want %s", got, d)
		}
		if tod := z.BusinessTime(start); tod != (TimeOfDay{}) {
			t.Fatalf("day start time = %s, want 00:00:00", tod)
		}
	}
}

func TestDurationMinutes(t *testing.T) {
	a := time.Date(2024, 1, 15, 3, 5, 0, 0, time.UTC)
	b := time.Date(2024, 1, 15, 12, 30, 0, 0, time.UTC)

	if got := DurationMinutes(a, b); got != 565 {
		t.Fatalf("duration = %d, want 565", got)
	}
	if got := DurationMinutes(b, a); got != -565 {
		t.Fatalf("reverse duration = %d, want -565", got)
	}
}

func TestDurationMinutesOfDayOvernight(t *testing.T) {
	start := MustTimeOfDay("22:00")
	end := MustTimeOfDay("06:00")

	// same-day arithmetic would say -960; overnight wraps to +480
	if got := DurationMinutesOfDay(start, end, true); got != 480 {
		t.Fatalf("overnight duration = %d, want 480", got)
	}
	if got := DurationMinutesOfDay(start, end, false); got != -960 {
		t.Fatalf("same-day duration = %d, want -960", got)
	}
}

func TestInTimeRange(t *testing.T) {
	cases := []struct {
		name                string
		t, start, end       string
		overnight, expected bool
	}{
		{"inside", "10:00", "09:00", "11:00", false, true},
		{"at start", "09:00:00", "09:00", "11:00", false, true},
		{"at end", "11:00:00", "09:00", "11:00", false, true},
		{"before", "08:59:59", "09:00", "11:00", false, false},
		{"after", "11:00:01", "09:00", "11:00", false, false},
		{"overnight before midnight", "23:30", "22:00", "06:00", true, true},
		{"overnight after midnight", "01:30", "22:00", "06:00", true, true},
		{"overnight outside", "12:00", "22:00", "06:00", true, false},
		// union semantics apply even when the interval itself does not wrap
		{"overnight union non-wrapping", "23:00", "05:30", "08:00", true, true},
	}
	for _, c := range cases {
		got := InTimeRange(MustTimeOfDay(c.t), MustTimeOfDay(c.start), MustTimeOfDay(c.end), c.overnight)
		if got != c.expected {
			t.Errorf("%s: InTimeRange = %v, want %v", c.name, got, c.expected)
		}
	}
}

func TestAddMinutesWraps(t *testing.T) {
	if got := MustTimeOfDay("09:00").AddMinutes(-30).String(); got != "08:30:00" {
		t.Fatalf("09:00-30m = %s", got)
	}
	if got := MustTimeOfDay("23:30").AddMinutes(120).String(); got != "01:30:00" {
		t.Fatalf("23:30+120m = %s", got)
	}
	if got := MustTimeOfDay("00:15").AddMinutes(-30).String(); got != "23:45:00" {
		t.Fatalf("00:15-30m = %s", got)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Fatalf("expected error for 25:00")
	}
	if _, err := ParseTimeOfDay(""); err == nil {
		t.Fatalf("expected error for empty string")
	}
	got, err := ParseTimeOfDay("09:05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != (TimeOfDay{Hour: 9, Minute: 5}) {
		t.Fatalf("parsed = %+v", got)
	}
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := Fixed(at).NowUTC(); !got.Equal(at) {
		t.Fatalf("fixed clock = %s", got)
	}
}

func TestDateWeekday(t *testing.T) {
	// 2024-01-13 was a Saturday
	d := Date{Year: 2024, Month: time.January, Day: 13}
	if d.Weekday() != time.Saturday {
		t.Fatalf("weekday = %s", d.Weekday())
	}
}
