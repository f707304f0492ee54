// Package schedule holds the pure overlap-decision logic shared by session
// booking and shift exchange. It has no storage or transport dependencies.
package schedule

import (
	"fmt"
	"time"

	"gymdesk/internal/apperr"
)

// TimeOfDay is minutes from midnight, local wall clock.
type TimeOfDay int

func MinutesOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, apperr.Validationf("invalid time %q, expected HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, apperr.Validationf("invalid time %q, expected HH:MM", s)
	}
	return MinutesOfDay(h, m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// TimeOfDay travels as "HH:MM" on the wire.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return apperr.Validationf("invalid time %s, expected \"HH:MM\"", s)
	}
	parsed, err := ParseTimeOfDay(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type DimensionKind int

const (
	// KindRecurring repeats every week on a fixed weekday (group classes,
	// reception shifts).
	KindRecurring DimensionKind = iota
	// KindOneOff is bound to a single calendar date (personal sessions).
	KindOneOff
)

// Dimension is the tagged date axis of a slot. The two variants can only be
// built through RecurringOn and OneOffOn, so a weekday can never be read as a
// date or vice versa.
type Dimension struct {
	kind    DimensionKind
	weekday time.Weekday
	date    time.Time
}

func RecurringOn(weekday time.Weekday) Dimension {
	return Dimension{kind: KindRecurring, weekday: weekday}
}

func OneOffOn(date time.Time) Dimension {
	y, m, d := date.Date()
	return Dimension{kind: KindOneOff, date: time.Date(y, m, d, 0, 0, 0, 0, date.Location())}
}

func (d Dimension) Kind() DimensionKind { return d.kind }

// Weekday is the recurrence day for recurring dimensions and the calendar
// date's weekday for one-off dimensions.
func (d Dimension) Weekday() time.Weekday {
	if d.kind == KindOneOff {
		return d.date.Weekday()
	}
	return d.weekday
}

// Date panics unless the dimension is one-off.
func (d Dimension) Date() time.Time {
	if d.kind != KindOneOff {
		panic("schedule: Date called on recurring dimension")
	}
	return d.date
}

func (d Dimension) String() string {
	if d.kind == KindOneOff {
		return d.date.Format("2006-01-02")
	}
	return d.weekday.String()
}

// SameOccurrence reports whether two dimensions can ever land on the same
// calendar day: two one-offs on the same date, two recurrences on the same
// weekday, or a recurrence whose weekday the one-off date falls on.
// One-off dates are compared by calendar components, not instants: the same
// date can arrive in different locations (request parsing vs DATE column
// scans) and must still count as one occurrence.
func (d Dimension) SameOccurrence(o Dimension) bool {
	switch {
	case d.kind == KindOneOff && o.kind == KindOneOff:
		y1, m1, day1 := d.date.Date()
		y2, m2, day2 := o.date.Date()
		return y1 == y2 && m1 == m2 && day1 == day2
	default:
		return d.Weekday() == o.Weekday()
	}
}

// Slot is a half-open [Start, End) interval on a date dimension.
type Slot struct {
	Dim   Dimension
	Start TimeOfDay
	End   TimeOfDay
}

func (s Slot) Validate() error {
	if s.Start >= s.End {
		return apperr.Validationf("slot start %s must be before end %s", s.Start, s.End)
	}
	return nil
}

// Overlaps applies the half-open interval rule; intervals that merely touch
// (one ends exactly when the other starts) do not overlap, so back-to-back
// slots are always allowed.
func Overlaps(a, b Slot) bool {
	if !a.Dim.SameOccurrence(b.Dim) {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// FirstConflict returns the index of the first existing slot the proposed one
// overlaps, or false when the proposal is clear.
func FirstConflict(existing []Slot, proposed Slot) (int, bool) {
	for i, s := range existing {
		if Overlaps(s, proposed) {
			return i, true
		}
	}
	return 0, false
}
