// Package schedule implements recurrence rules for medication schedules.
package schedule

import (
	"fmt"
	"time"

	apperrors "github.com/gmsas95/dosetrack/internal/errors"
)

// Frequency values supported by Rule.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
)

// Rule describes when a medication is due. Times uses 24h "HH:MM" strings.
// DaysOfWeek and DaysOfMonth hold weekday indices (0=Sunday..6=Saturday),
// Months holds 0-based month indices (0=January..11=December) and
// WeeksOfMonth holds 7-day buckets within a month (1-4).
type Rule struct {
	Frequency    string     `json:"frequency"`
	Times        []string   `json:"times"`
	DaysOfWeek   []int      `json:"days_of_week,omitempty"`
	Months       []int      `json:"months,omitempty"`
	WeeksOfMonth []int      `json:"weeks_of_month,omitempty"`
	DaysOfMonth  []int      `json:"days_of_month,omitempty"`
	YearRange    *YearRange `json:"year_range,omitempty"`
}

// YearRange bounds a rule to an inclusive span of years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Validate checks that the rule is well-formed. Malformed rules are
// rejected at create/edit time so the occurrence predicate never sees one.
func (r *Rule) Validate() error {
	switch r.Frequency {
	case Daily:
	case Weekly:
		if len(r.DaysOfWeek) == 0 {
			return apperrors.New("SCHED_001", "weekly schedule requires at least one day of week")
		}
	case Monthly:
		if len(r.Months) == 0 || len(r.WeeksOfMonth) == 0 || len(r.DaysOfMonth) == 0 {
			return apperrors.New("SCHED_001", "monthly schedule requires months, weeks of month and days")
		}
	default:
		return apperrors.New("SCHED_001", fmt.Sprintf("unknown frequency %q", r.Frequency))
	}

	if len(r.Times) == 0 {
		return apperrors.New("SCHED_001", "schedule requires at least one time of day")
	}
	for _, t := range r.Times {
		if _, _, err := ParseTimeOfDay(t); err != nil {
			return err
		}
	}
	for _, d := range r.DaysOfWeek {
		if d < 0 || d > 6 {
			return apperrors.New("SCHED_001", fmt.Sprintf("day of week out of range: %d", d))
		}
	}
	for _, m := range r.Months {
		if m < 0 || m > 11 {
			return apperrors.New("SCHED_001", fmt.Sprintf("month out of range: %d", m))
		}
	}
	for _, w := range r.WeeksOfMonth {
		if w < 1 || w > 4 {
			return apperrors.New("SCHED_001", fmt.Sprintf("week of month out of range: %d", w))
		}
	}
	for _, d := range r.DaysOfMonth {
		if d < 0 || d > 6 {
			return apperrors.New("SCHED_001", fmt.Sprintf("day of month weekday out of range: %d", d))
		}
	}
	if r.YearRange != nil && r.YearRange.End < r.YearRange.Start {
		return apperrors.New("SCHED_001", "year range end before start")
	}
	return nil
}

// ParseTimeOfDay parses a 24h "HH:MM" string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	if _, serr := fmt.Sscanf(s, "%d:%d", &hour, &minute); serr != nil {
		return 0, 0, apperrors.New("SCHED_001", fmt.Sprintf("invalid time of day %q", s), serr)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, apperrors.New("SCHED_001", fmt.Sprintf("invalid time of day %q", s))
	}
	return hour, minute, nil
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// WeekOfMonth returns the 7-day bucket of t within its month: days 1-7
// are week 1, days 8-14 week 2, and so on. This is intentionally not the
// ISO calendar week.
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// DueOn reports whether a medication created at createdAt with rule r is
// due on the given day. Pure function of its arguments; time-of-day on
// day and createdAt is ignored.
func DueOn(r Rule, createdAt, day time.Time) bool {
	if StartOfDay(day).Before(StartOfDay(createdAt)) {
		return false
	}

	if yr := r.YearRange; yr != nil {
		if y := day.Year(); y < yr.Start || y > yr.End {
			return false
		}
	}

	switch r.Frequency {
	case Daily:
		return true
	case Weekly:
		return containsInt(r.DaysOfWeek, int(day.Weekday()))
	case Monthly:
		return containsInt(r.Months, int(day.Month())-1) &&
			containsInt(r.WeeksOfMonth, WeekOfMonth(day)) &&
			containsInt(r.DaysOfMonth, int(day.Weekday()))
	default:
		return false
	}
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
