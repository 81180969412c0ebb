// Package analytics aggregates medication and log history into the
// compliance metrics shown on the stats views. All functions are pure
// over their inputs and recomputable at any time.
package analytics

import (
	"math"
	"time"

	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// EngagementPoint is one day of the trailing engagement series.
type EngagementPoint struct {
	Date    string `json:"date"` // YYYY-MM-DD, local
	Taken   int    `json:"taken"`
	Skipped int    `json:"skipped"`
}

// MedicationCompliance is the per-medication compliance rate.
type MedicationCompliance struct {
	MedicationID string `json:"medication_id"`
	Name         string `json:"name"`
	Rate         int    `json:"rate"` // percent
}

// Snapshot is the full analytics rollup.
type Snapshot struct {
	ActiveMedications    int                    `json:"active_medications"`
	TotalDosesTaken      int                    `json:"total_doses_taken"`
	DailyReminders       int                    `json:"daily_reminders"`
	ComplianceRate       int                    `json:"compliance_rate"` // percent
	Engagement           []EngagementPoint      `json:"engagement"`
	MedicationCompliance []MedicationCompliance `json:"medication_compliance"`
	WeekdayDistribution  [7]int                 `json:"weekday_distribution"` // Sun..Sat, taken logs
}

// Compute builds a snapshot from the full medication and log collections.
// The engagement series covers the trailing 30 local days inclusive of
// the day containing now.
func Compute(meds []store.Medication, logs []store.MedicationLog, now time.Time) *Snapshot {
	snap := &Snapshot{
		ActiveMedications: len(meds),
	}

	createdAt := make(map[string]time.Time, len(meds))
	for _, m := range meds {
		createdAt[m.ID] = m.CreatedAt
		snap.DailyReminders += len(m.Schedule.Times)
	}

	// Total doses taken excludes logs predating the start of the
	// medication's creation day; the compliance denominator uses the raw
	// creation timestamp instead. Both cutoffs are deliberate.
	validTotal := 0
	validTaken := 0
	for _, l := range logs {
		created, ok := createdAt[l.MedicationID]
		if !ok {
			continue
		}
		if l.Status == store.LogTaken && !l.Timestamp.Before(schedule.StartOfDay(created)) {
			snap.TotalDosesTaken++
		}
		if !l.Timestamp.Before(created) {
			validTotal++
			if l.Status == store.LogTaken {
				validTaken++
			}
		}
		if l.Status == store.LogTaken {
			snap.WeekdayDistribution[int(l.Timestamp.Weekday())]++
		}
	}
	snap.ComplianceRate = percent(validTaken, validTotal)

	snap.Engagement = engagementSeries(logs, now)

	snap.MedicationCompliance = make([]MedicationCompliance, 0, len(meds))
	perMedTaken := make(map[string]int, len(meds))
	perMedTotal := make(map[string]int, len(meds))
	for _, l := range logs {
		perMedTotal[l.MedicationID]++
		if l.Status == store.LogTaken {
			perMedTaken[l.MedicationID]++
		}
	}
	for _, m := range meds {
		snap.MedicationCompliance = append(snap.MedicationCompliance, MedicationCompliance{
			MedicationID: m.ID,
			Name:         m.Name,
			Rate:         percent(perMedTaken[m.ID], perMedTotal[m.ID]),
		})
	}

	return snap
}

func engagementSeries(logs []store.MedicationLog, now time.Time) []EngagementPoint {
	const days = 30
	series := make([]EngagementPoint, days)
	start := schedule.StartOfDay(now).AddDate(0, 0, -(days - 1))

	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		series[i] = EngagementPoint{Date: key}
		index[key] = i
	}

	for _, l := range logs {
		i, ok := index[l.Timestamp.Format("2006-01-02")]
		if !ok {
			continue
		}
		switch l.Status {
		case store.LogTaken:
			series[i].Taken++
		case store.LogSkipped:
			series[i].Skipped++
		}
	}
	return series
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
