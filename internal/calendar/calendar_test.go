package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/dosetrack/internal/adherence"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

func ts(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.Local)
}

func dailyMed(id string, created time.Time) store.Medication {
	return store.Medication{
		ID:        id,
		Name:      id,
		Dosage:    store.Dosage{Amount: 1, Unit: store.UnitPill},
		Schedule:  schedule.Rule{Frequency: schedule.Daily, Times: []string{"08:00"}},
		CreatedAt: created,
	}
}

func TestMonthGridShape(t *testing.T) {
	now := ts(2025, time.June, 15, 12)

	cells := MonthGrid(nil, nil, 2025, time.June, now)
	require.Len(t, cells, 30)
	assert.Equal(t, 1, cells[0].Date.Day())
	assert.Equal(t, 30, cells[29].Date.Day())

	cells = MonthGrid(nil, nil, 2024, time.February, now)
	assert.Len(t, cells, 29)
}

func TestMonthGridStatuses(t *testing.T) {
	now := ts(2025, time.June, 15, 12)
	med := dailyMed("med_a", ts(2025, time.June, 10, 9))

	logs := []store.MedicationLog{
		{MedicationID: "med_a", Status: store.LogTaken, Timestamp: ts(2025, time.June, 11, 8)},
		{MedicationID: "med_a", Status: store.LogSkipped, Timestamp: ts(2025, time.June, 12, 8)},
	}

	cells := MonthGrid([]store.Medication{med}, logs, 2025, time.June, now)

	// Before creation nothing is due.
	assert.Equal(t, adherence.None, cells[8].Status) // June 9
	assert.Empty(t, cells[8].Due)

	assert.Equal(t, adherence.Missed, cells[9].Status)    // June 10, created but untaken
	assert.Equal(t, adherence.Complete, cells[10].Status) // June 11
	assert.Equal(t, adherence.Missed, cells[11].Status)   // June 12, skip does not count
	assert.Equal(t, adherence.None, cells[14].Status)     // June 15, today still pending
	assert.Equal(t, adherence.None, cells[19].Status)     // June 20, future

	require.Len(t, cells[10].Due, 1)
	assert.True(t, cells[10].Due[0].Taken)
	assert.Equal(t, "1 pill", cells[10].Due[0].Dosage)
	require.Len(t, cells[11].Due, 1)
	assert.False(t, cells[11].Due[0].Taken)
}

func TestYearSummary(t *testing.T) {
	now := ts(2026, time.January, 1, 12)
	med := dailyMed("med_a", ts(2025, time.June, 1, 0))

	var logs []store.MedicationLog
	for d := 1; d <= 30; d++ {
		logs = append(logs, store.MedicationLog{
			MedicationID: "med_a",
			Status:       store.LogTaken,
			Timestamp:    ts(2025, time.June, d, 8),
		})
	}

	months := YearSummary([]store.Medication{med}, logs, 2025, now)

	june := months[time.June-1]
	assert.Equal(t, time.June, june.Month)
	assert.Equal(t, 30, june.Complete)
	assert.Equal(t, 0, june.Missed)

	july := months[time.July-1]
	assert.Equal(t, 31, july.Missed)

	// Before the medication existed nothing counts.
	may := months[time.May-1]
	assert.Equal(t, 0, may.Complete+may.Partial+may.Missed)
}

func TestFormatDosage(t *testing.T) {
	assert.Equal(t, "1 pill", FormatDosage(store.Dosage{Amount: 1, Unit: store.UnitPill}))
	assert.Equal(t, "0.5 pill", FormatDosage(store.Dosage{Amount: 0.5, Unit: store.UnitPill}))
	assert.Equal(t, "2 ml (500 IU)", FormatDosage(store.Dosage{Amount: 2, Unit: store.UnitMl, Concentration: 500}))
}
