package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, MinutesOfDay(9, 30), tod)
	assert.Equal(t, "09:30", tod.String())

	for _, bad := range []string{"", "9h30", "24:00", "12:60", "-1:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestOverlapsSameDay(t *testing.T) {
	monday := RecurringOn(time.Monday)

	base := Slot{Dim: monday, Start: MinutesOfDay(10, 0), End: MinutesOfDay(11, 0)}

	cases := []struct {
		name     string
		proposed Slot
		want     bool
	}{
		{"inside", Slot{monday, MinutesOfDay(10, 15), MinutesOfDay(10, 45)}, true},
		{"straddles start", Slot{monday, MinutesOfDay(9, 30), MinutesOfDay(10, 30)}, true},
		{"straddles end", Slot{monday, MinutesOfDay(10, 30), MinutesOfDay(11, 30)}, true},
		{"covers", Slot{monday, MinutesOfDay(9, 0), MinutesOfDay(12, 0)}, true},
		{"identical", base, true},
		{"touches end", Slot{monday, MinutesOfDay(11, 0), MinutesOfDay(12, 0)}, false},
		{"touches start", Slot{monday, MinutesOfDay(9, 0), MinutesOfDay(10, 0)}, false},
		{"disjoint before", Slot{monday, MinutesOfDay(7, 0), MinutesOfDay(8, 0)}, false},
		{"disjoint after", Slot{monday, MinutesOfDay(12, 0), MinutesOfDay(13, 0)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(base, tc.proposed))
			assert.Equal(t, tc.want, Overlaps(tc.proposed, base))
		})
	}
}

func TestOverlapsAcrossDimensions(t *testing.T) {
	// 2026-03-02 is a Monday.
	mondayDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	tuesdayDate := mondayDate.AddDate(0, 0, 1)

	start, end := MinutesOfDay(10, 0), MinutesOfDay(11, 0)

	recurringMon := Slot{Dim: RecurringOn(time.Monday), Start: start, End: end}
	oneOffMon := Slot{Dim: OneOffOn(mondayDate), Start: start, End: end}
	oneOffTue := Slot{Dim: OneOffOn(tuesdayDate), Start: start, End: end}

	// A Monday recurrence collides with a one-off on any Monday.
	assert.True(t, Overlaps(recurringMon, oneOffMon))
	assert.True(t, Overlaps(oneOffMon, recurringMon))

	// But never with a one-off on another weekday.
	assert.False(t, Overlaps(recurringMon, oneOffTue))

	// One-offs on different dates never collide, even with equal times.
	assert.False(t, Overlaps(oneOffMon, oneOffTue))

	// One-offs a week apart share a weekday but not a date.
	nextMonday := OneOffOn(mondayDate.AddDate(0, 0, 7))
	assert.False(t, Overlaps(oneOffMon, Slot{Dim: nextMonday, Start: start, End: end}))

	// Recurrences on distinct weekdays never collide.
	assert.False(t, Overlaps(recurringMon, Slot{Dim: RecurringOn(time.Tuesday), Start: start, End: end}))
}

func TestOverlapsSameDateDifferentLocations(t *testing.T) {
	// Request dates are parsed in time.Local while DATE columns scan back at
	// UTC midnight; the same calendar date must count as one occurrence
	// regardless of which location each side carries.
	est := time.FixedZone("UTC-5", -5*60*60)

	fromRequest := OneOffOn(time.Date(2026, 3, 2, 0, 0, 0, 0, est))
	fromColumn := OneOffOn(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))

	assert.True(t, fromRequest.SameOccurrence(fromColumn))
	assert.True(t, Overlaps(
		Slot{fromRequest, MinutesOfDay(10, 0), MinutesOfDay(11, 0)},
		Slot{fromColumn, MinutesOfDay(10, 30), MinutesOfDay(11, 30)},
	))

	// Distinct calendar dates stay distinct, location notwithstanding.
	nextDay := OneOffOn(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	assert.False(t, fromRequest.SameOccurrence(nextDay))
	assert.False(t, Overlaps(
		Slot{fromRequest, MinutesOfDay(10, 0), MinutesOfDay(11, 0)},
		Slot{nextDay, MinutesOfDay(10, 0), MinutesOfDay(11, 0)},
	))
}

func TestFirstConflict(t *testing.T) {
	monday := RecurringOn(time.Monday)
	existing := []Slot{
		{monday, MinutesOfDay(8, 0), MinutesOfDay(9, 0)},
		{monday, MinutesOfDay(10, 0), MinutesOfDay(11, 0)},
	}

	idx, found := FirstConflict(existing, Slot{monday, MinutesOfDay(10, 30), MinutesOfDay(11, 30)})
	require.True(t, found)
	assert.Equal(t, 1, idx)

	_, found = FirstConflict(existing, Slot{monday, MinutesOfDay(9, 0), MinutesOfDay(10, 0)})
	assert.False(t, found)

	_, found = FirstConflict(nil, Slot{monday, MinutesOfDay(9, 0), MinutesOfDay(10, 0)})
	assert.False(t, found)
}

func TestSlotValidate(t *testing.T) {
	monday := RecurringOn(time.Monday)

	assert.NoError(t, Slot{monday, MinutesOfDay(9, 0), MinutesOfDay(10, 0)}.Validate())
	assert.Error(t, Slot{monday, MinutesOfDay(10, 0), MinutesOfDay(10, 0)}.Validate())
	assert.Error(t, Slot{monday, MinutesOfDay(11, 0), MinutesOfDay(10, 0)}.Validate())
}

// Property: Overlaps agrees with the half-open rule s1 < e2 && s2 < e1 on a
// shared occurrence, and is symmetric.
func TestOverlapsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		day := RecurringOn(time.Weekday(rapid.IntRange(0, 6).Draw(t, "weekday")))

		genSlot := func(label string) Slot {
			start := rapid.IntRange(0, 23*60).Draw(t, label+"_start")
			length := rapid.IntRange(1, 60).Draw(t, label+"_len")
			return Slot{Dim: day, Start: TimeOfDay(start), End: TimeOfDay(start + length)}
		}

		a := genSlot("a")
		b := genSlot("b")

		want := a.Start < b.End && b.Start < a.End
		if got := Overlaps(a, b); got != want {
			t.Fatalf("Overlaps(%v-%v, %v-%v) = %v, want %v", a.Start, a.End, b.Start, b.End, got, want)
		}
		if Overlaps(a, b) != Overlaps(b, a) {
			t.Fatalf("Overlaps is not symmetric for %v and %v", a, b)
		}
	})
}
