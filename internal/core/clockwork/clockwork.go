// Package clockwork provides the clock seam and business-zone civil arithmetic
// used by the attendance pipeline. All persisted instants are UTC; dates and
// wall-clock times are always interpreted in the business zone.
package clockwork

import (
	"encoding/json"
	"fmt"
	"time"

	perr "punchcard/internal/platform/errors"
)

// Clock yields the current UTC instant, injectable for tests
type Clock interface {
	NowUTC() time.Time
}

type systemClock struct{}

func (systemClock) NowUTC() time.Time { return time.Now().UTC() }

// System returns the wall clock
func System() Clock { return systemClock{} }

// fixedClock always returns the same instant
type fixedClock struct{ t time.Time }

func (f fixedClock) NowUTC() time.Time { return f.t.UTC() }

// Fixed returns a clock pinned to t, for tests
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

// Date is a civil calendar date in the business zone
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String renders as 2006-01-02
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday returns the day of week for d
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// MarshalJSON renders the date as a "2006-01-02" string
func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON parses a "2006-01-02" string
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDate parses a 2006-01-02 date string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, perr.InvalidArgf("bad date %q: %v", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// TimeOfDay is a wall-clock time with second precision
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String renders as 15:04:05
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// SecondsOfDay returns seconds since midnight
func (t TimeOfDay) SecondsOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Before reports t < u
func (t TimeOfDay) Before(u TimeOfDay) bool { return t.SecondsOfDay() < u.SecondsOfDay() }

// After reports t > u
func (t TimeOfDay) After(u TimeOfDay) bool { return t.SecondsOfDay() > u.SecondsOfDay() }

// AddMinutes returns t shifted by m minutes, wrapping around midnight
func (t TimeOfDay) AddMinutes(m int) TimeOfDay {
	const day = 24 * 3600
	s := (t.SecondsOfDay() + m*60) % day
	if s < 0 {
		s += day
	}
	return TimeOfDay{Hour: s / 3600, Minute: s % 3600 / 60, Second: s % 60}
}

// MarshalJSON renders the time as a "15:04:05" string
func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// UnmarshalJSON parses a "15:04:05" or "15:04" string
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTimeOfDay parses 15:04:05 or 15:04
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t time.Time
	var err error
	if t, err = time.Parse("15:04:05", s); err != nil {
		if t, err = time.Parse("15:04", s); err != nil {
			return TimeOfDay{}, perr.InvalidArgf("bad time of day %q", s)
		}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// MustTimeOfDay parses or panics, for static shift definitions in tests
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Zone wraps an IANA location for business civil conversions
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA zone id
func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, perr.InvalidArgf("bad zone %q: %v", name, err)
	}
	return Zone{loc: loc}, nil
}

// MustLoadZone resolves an IANA zone id or panics; boot-time use only
func MustLoadZone(name string) Zone {
	z, err := LoadZone(name)
	if err != nil {
		panic(err)
	}
	return z
}

// Location exposes the underlying location
func (z Zone) Location() *time.Location { return z.loc }

// BusinessDate projects a UTC instant to the zone's calendar date
func (z Zone) BusinessDate(utc time.Time) Date {
	t := utc.In(z.loc)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// BusinessTime projects a UTC instant to the zone's wall-clock time
func (z Zone) BusinessTime(utc time.Time) TimeOfDay {
	t := utc.In(z.loc)
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// BusinessDayStart returns the UTC instant of midnight of d in the zone
func (z Zone) BusinessDayStart(d Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, z.loc).UTC()
}

// DurationMinutes returns signed whole minutes from a to b, truncated toward zero
func DurationMinutes(a, b time.Time) int {
	return int(b.Sub(a) / time.Minute)
}

// DurationMinutesOfDay returns signed minutes from one wall-clock time to
// another on the same logical shift. When overnight and to precedes from,
// to is treated as next-day
func DurationMinutesOfDay(from, to TimeOfDay, overnight bool) int {
	d := to.SecondsOfDay() - from.SecondsOfDay()
	if overnight && d < 0 {
		d += 24 * 3600
	}
	return d / 60
}

// InTimeRange reports whether t lies in the closed interval [start, end].
// When overnight, the range wraps midnight: [start, 24:00) ∪ [00:00, end]
func InTimeRange(t, start, end TimeOfDay, overnight bool) bool {
	ts, ss, es := t.SecondsOfDay(), start.SecondsOfDay(), end.SecondsOfDay()
	if overnight {
		return ts >= ss || ts <= es
	}
	return ts >= ss && ts <= es
}
