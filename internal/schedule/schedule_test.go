package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestValidate(t *testing.T) {
	valid := Rule{Frequency: Daily, Times: []string{"08:00"}}
	require.NoError(t, valid.Validate())

	weekly := Rule{Frequency: Weekly, Times: []string{"08:00"}, DaysOfWeek: []int{1, 3, 5}}
	require.NoError(t, weekly.Validate())

	monthly := Rule{
		Frequency:    Monthly,
		Times:        []string{"21:30"},
		Months:       []int{0, 6},
		WeeksOfMonth: []int{1},
		DaysOfMonth:  []int{1},
	}
	require.NoError(t, monthly.Validate())

	tests := []struct {
		name string
		rule Rule
	}{
		{"unknown frequency", Rule{Frequency: "hourly", Times: []string{"08:00"}}},
		{"no times", Rule{Frequency: Daily}},
		{"bad time", Rule{Frequency: Daily, Times: []string{"25:00"}}},
		{"weekly without days", Rule{Frequency: Weekly, Times: []string{"08:00"}}},
		{"monthly without months", Rule{Frequency: Monthly, Times: []string{"08:00"}, WeeksOfMonth: []int{1}, DaysOfMonth: []int{1}}},
		{"weekday out of range", Rule{Frequency: Weekly, Times: []string{"08:00"}, DaysOfWeek: []int{7}}},
		{"month out of range", Rule{Frequency: Monthly, Times: []string{"08:00"}, Months: []int{12}, WeeksOfMonth: []int{1}, DaysOfMonth: []int{1}}},
		{"week bucket out of range", Rule{Frequency: Monthly, Times: []string{"08:00"}, Months: []int{0}, WeeksOfMonth: []int{5}, DaysOfMonth: []int{1}}},
		{"inverted year range", Rule{Frequency: Daily, Times: []string{"08:00"}, YearRange: &YearRange{Start: 2026, End: 2025}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.rule.Validate())
		})
	}
}

func TestWeekOfMonth(t *testing.T) {
	assert.Equal(t, 1, WeekOfMonth(date(2025, time.March, 1)))
	assert.Equal(t, 1, WeekOfMonth(date(2025, time.March, 7)))
	assert.Equal(t, 2, WeekOfMonth(date(2025, time.March, 8)))
	assert.Equal(t, 4, WeekOfMonth(date(2025, time.March, 28)))
	// Days 29-31 land in bucket 5, which no rule can select.
	assert.Equal(t, 5, WeekOfMonth(date(2025, time.March, 31)))
}

func TestDueOnCreationFloor(t *testing.T) {
	rule := Rule{Frequency: Daily, Times: []string{"08:00"}}
	created := time.Date(2025, time.June, 10, 15, 30, 0, 0, time.Local)

	assert.False(t, DueOn(rule, created, date(2025, time.June, 9)))
	// Same calendar day counts even though the clock time is earlier.
	assert.True(t, DueOn(rule, created, time.Date(2025, time.June, 10, 8, 0, 0, 0, time.Local)))
	assert.True(t, DueOn(rule, created, date(2025, time.June, 11)))
}

func TestDueOnYearRange(t *testing.T) {
	rule := Rule{
		Frequency: Daily,
		Times:     []string{"08:00"},
		YearRange: &YearRange{Start: 2025, End: 2026},
	}
	created := date(2024, time.January, 1)

	assert.False(t, DueOn(rule, created, date(2024, time.December, 31)))
	assert.True(t, DueOn(rule, created, date(2025, time.January, 1)))
	assert.True(t, DueOn(rule, created, date(2026, time.December, 31)))
	assert.False(t, DueOn(rule, created, date(2027, time.January, 1)))
}

func TestDueOnWeekly(t *testing.T) {
	// Monday, Wednesday, Friday.
	rule := Rule{Frequency: Weekly, Times: []string{"08:00"}, DaysOfWeek: []int{1, 3, 5}}
	created := date(2025, time.June, 1)

	assert.True(t, DueOn(rule, created, date(2025, time.June, 2)))  // Monday
	assert.False(t, DueOn(rule, created, date(2025, time.June, 3))) // Tuesday
	assert.True(t, DueOn(rule, created, date(2025, time.June, 4)))  // Wednesday
	assert.True(t, DueOn(rule, created, date(2025, time.June, 6)))  // Friday
	assert.False(t, DueOn(rule, created, date(2025, time.June, 8))) // Sunday
}

func TestDueOnMonthly(t *testing.T) {
	// First-week Mondays of January and July.
	rule := Rule{
		Frequency:    Monthly,
		Times:        []string{"08:00"},
		Months:       []int{0, 6},
		WeeksOfMonth: []int{1},
		DaysOfMonth:  []int{1},
	}
	created := date(2024, time.December, 1)

	assert.True(t, DueOn(rule, created, date(2025, time.January, 6)))   // Mon, day 6 → week 1
	assert.False(t, DueOn(rule, created, date(2025, time.January, 13))) // Mon, week 2
	assert.False(t, DueOn(rule, created, date(2025, time.January, 7)))  // Tue, week 1
	assert.False(t, DueOn(rule, created, date(2025, time.February, 3))) // Mon, wrong month
	assert.True(t, DueOn(rule, created, date(2025, time.July, 7)))      // Mon, day 7 → week 1
}

func TestDueOnUnknownFrequency(t *testing.T) {
	rule := Rule{Frequency: "fortnightly", Times: []string{"08:00"}}
	assert.False(t, DueOn(rule, date(2025, time.January, 1), date(2025, time.June, 1)))
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseTimeOfDay("24:00")
	assert.Error(t, err)
	_, _, err = ParseTimeOfDay("noon")
	assert.Error(t, err)
}

func TestSameDayAndStartOfDay(t *testing.T) {
	a := time.Date(2025, time.June, 10, 23, 59, 0, 0, time.Local)
	b := time.Date(2025, time.June, 10, 0, 1, 0, 0, time.Local)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
	assert.Equal(t, date(2025, time.June, 10), StartOfDay(a))
}
