// Package sla implements working-day calendar arithmetic for service-level
// agreements: due-date computation, elapsed-time measurement, and outcome
// classification. All functions are pure.
package sla

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit is the unit an SLA quantity is expressed in.
type Unit string

const (
	UnitHours Unit = "hours"
	UnitDays  Unit = "days"
)

// Quantity is an expected or actual duration.
type Quantity struct {
	Value int  `json:"value"`
	Unit  Unit `json:"unit"`
}

// Status classifies an actual duration against an expected one.
type Status string

const (
	StatusMet      Status = "met"
	StatusMissed   Status = "missed"
	StatusExceeded Status = "exceeded"
)

// Default is the quantity substituted for missing or unparseable SLA input.
func Default() Quantity {
	return Quantity{Value: 5, Unit: UnitDays}
}

func (q Quantity) String() string {
	if q.Unit == UnitHours {
		return fmt.Sprintf("%dh", q.Value)
	}
	return fmt.Sprintf("%dWD", q.Value)
}

var quantityPattern = regexp.MustCompile(`^(\d+)\s*(h|hr|hrs|hour|hours|d|day|days|wd|working\s*day|working\s*days)?$`)

// Parse reads an SLA quantity from legacy free-text encodings such as "12h",
// "5WD", "5 Working Days" or a bare integer. Unparseable or missing input
// yields Default(); that substitution is deliberate, not an error.
func Parse(raw string) Quantity {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Default()
	}
	match := quantityPattern.FindStringSubmatch(normalized)
	if match == nil {
		return Default()
	}
	value, err := strconv.Atoi(match[1])
	if err != nil || value < 0 {
		return Default()
	}
	switch match[2] {
	case "h", "hr", "hrs", "hour", "hours":
		return Quantity{Value: value, Unit: UnitHours}
	default:
		return Quantity{Value: value, Unit: UnitDays}
	}
}

// DueDate computes the instant an SLA expires. Hour quantities add directly;
// day quantities walk forward one calendar day at a time, counting only
// weekdays. A zero-day quantity returns start unchanged.
func DueDate(start time.Time, q Quantity) time.Time {
	if q.Unit == UnitHours {
		return start.Add(time.Duration(q.Value) * time.Hour)
	}
	due := start
	remaining := q.Value
	for remaining > 0 {
		due = due.AddDate(0, 0, 1)
		if isWorkingDay(due) {
			remaining--
		}
	}
	return due
}

// Elapsed measures the duration between start and end in the given unit,
// skipping weekends for day units so outcome comparisons stay unit-consistent
// with DueDate. Partial days and hours are floored; a non-positive span is
// zero.
func Elapsed(start, end time.Time, unit Unit) Quantity {
	if !end.After(start) {
		return Quantity{Value: 0, Unit: unit}
	}
	if unit == UnitHours {
		return Quantity{Value: int(end.Sub(start).Hours()), Unit: UnitHours}
	}
	count := 0
	cursor := start
	for cursor.Before(end) {
		cursor = cursor.AddDate(0, 0, 1)
		if isWorkingDay(cursor) && !cursor.After(end) {
			count++
		}
	}
	return Quantity{Value: count, Unit: UnitDays}
}

// Outcome classifies actual against expected. Actual within the expected
// value is met. Beyond it, the result is missed until the overrun passes the
// grace allowance (gracePercent of the expected value), after which it is
// exceeded.
func Outcome(expected, actual Quantity, gracePercent int) Status {
	if actual.Value <= expected.Value {
		return StatusMet
	}
	if gracePercent < 0 {
		gracePercent = 0
	}
	grace := expected.Value * gracePercent / 100
	if actual.Value <= expected.Value+grace {
		return StatusMissed
	}
	return StatusExceeded
}

func isWorkingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
