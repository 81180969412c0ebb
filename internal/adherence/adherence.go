// Package adherence resolves a calendar day to its adherence status.
package adherence

import (
	"time"

	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// Status of a single calendar day.
type Status string

const (
	None     Status = "none"     // nothing scheduled, or the day is not in the past
	Complete Status = "complete" // every due medication taken
	Partial  Status = "partial"  // some but not all due medications taken
	Missed   Status = "missed"   // past day with nothing taken
)

// Resolve computes the status of day given the medications due that day
// and the day's logs. Skipped logs never count as taken, so a day of
// skips resolves the same as a day of silence.
func Resolve(due []store.Medication, logsOnDay []store.MedicationLog, day, now time.Time) Status {
	if len(due) == 0 {
		return None
	}

	dueIDs := make(map[string]bool, len(due))
	for _, m := range due {
		dueIDs[m.ID] = true
	}

	taken := 0
	for _, l := range logsOnDay {
		if l.Status == store.LogTaken && dueIDs[l.MedicationID] {
			taken++
		}
	}

	switch {
	case taken == len(due):
		return Complete
	case taken > 0:
		return Partial
	}

	// Today and future days are still pending, not missed.
	if !schedule.StartOfDay(day).Before(schedule.StartOfDay(now)) {
		return None
	}
	return Missed
}
