package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-08 is a Monday.
var monday = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

func TestDueDate_WorkingDays(t *testing.T) {
	friday := time.Date(2024, 1, 12, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		q     Quantity
		want  time.Time
	}{
		{
			name:  "two working days from monday",
			start: monday,
			q:     Quantity{Value: 2, Unit: UnitDays},
			want:  monday.AddDate(0, 0, 2), // wednesday
		},
		{
			name:  "one working day from friday skips the weekend",
			start: friday,
			q:     Quantity{Value: 1, Unit: UnitDays},
			want:  friday.AddDate(0, 0, 3), // monday
		},
		{
			name:  "five working days spans a full week",
			start: monday,
			q:     Quantity{Value: 5, Unit: UnitDays},
			want:  monday.AddDate(0, 0, 7),
		},
		{
			name:  "zero days is same day",
			start: friday,
			q:     Quantity{Value: 0, Unit: UnitDays},
			want:  friday,
		},
		{
			name:  "hours add directly, calendar-naive",
			start: friday,
			q:     Quantity{Value: 12, Unit: UnitHours},
			want:  friday.Add(12 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueDate(tt.start, tt.q))
		})
	}
}

func TestDueDate_AlwaysLandsOnWeekday(t *testing.T) {
	for v := 1; v <= 15; v++ {
		due := DueDate(monday, Quantity{Value: v, Unit: UnitDays})
		wd := due.Weekday()
		require.NotEqual(t, time.Saturday, wd, "value %d", v)
		require.NotEqual(t, time.Sunday, wd, "value %d", v)

		// exactly v weekdays elapsed, start excluded
		count := 0
		for cursor := monday; cursor.Before(due); {
			cursor = cursor.AddDate(0, 0, 1)
			if cursor.Weekday() != time.Saturday && cursor.Weekday() != time.Sunday {
				count++
			}
		}
		require.Equal(t, v, count)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Quantity
	}{
		{"12h", Quantity{12, UnitHours}},
		{"8 hours", Quantity{8, UnitHours}},
		{"5WD", Quantity{5, UnitDays}},
		{"5 Working Days", Quantity{5, UnitDays}},
		{"3 working days", Quantity{3, UnitDays}},
		{"2d", Quantity{2, UnitDays}},
		{"7", Quantity{7, UnitDays}},
		{"  4wd ", Quantity{4, UnitDays}},
		{"n/a", Default()},
		{"", Default()},
		{"soon", Default()},
		{"-3", Default()},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestElapsed(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	nextMonday := monday.AddDate(0, 0, 7)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		unit  Unit
		want  int
	}{
		{"one working day", monday, tuesday, UnitDays, 1},
		{"tuesday to next monday skips weekend", tuesday, nextMonday, UnitDays, 4},
		{"end before start clamps to zero", tuesday, monday, UnitDays, 0},
		{"same instant", monday, monday, UnitDays, 0},
		{"hours floor", monday, monday.Add(90 * time.Minute), UnitHours, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Elapsed(tt.start, tt.end, tt.unit)
			assert.Equal(t, Quantity{Value: tt.want, Unit: tt.unit}, got)
		})
	}
}

func TestOutcome(t *testing.T) {
	expected := Quantity{Value: 2, Unit: UnitDays}

	tests := []struct {
		name   string
		actual int
		grace  int
		want   Status
	}{
		{"under expected", 1, 100, StatusMet},
		{"exactly expected", 2, 100, StatusMet},
		{"inside grace window", 3, 100, StatusMissed},
		{"at grace boundary", 4, 100, StatusMissed},
		{"beyond grace", 5, 100, StatusExceeded},
		{"zero grace escalates immediately", 3, 0, StatusExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Outcome(expected, Quantity{Value: tt.actual, Unit: UnitDays}, tt.grace)
			assert.Equal(t, tt.want, got)
		})
	}
}
