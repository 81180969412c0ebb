// Package calendar derives the month grid and year summary views from
// the occurrence predicate and the adherence resolver.
package calendar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gmsas95/dosetrack/internal/adherence"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// DueMedication is one medication due on a grid day.
type DueMedication struct {
	MedicationID string `json:"medication_id"`
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Taken        bool   `json:"taken"`
}

// DayCell is one day of the month grid.
type DayCell struct {
	Date   time.Time        `json:"date"`
	Status adherence.Status `json:"status"`
	Due    []DueMedication  `json:"due,omitempty"`
}

// MonthSummary aggregates one month for the year view.
type MonthSummary struct {
	Month    time.Month `json:"month"`
	Complete int        `json:"complete"`
	Partial  int        `json:"partial"`
	Missed   int        `json:"missed"`
}

// MonthGrid computes a cell per day of the given month. Logs may span any
// range; each cell only consults logs on its own local day.
func MonthGrid(meds []store.Medication, logs []store.MedicationLog, year int, month time.Month, now time.Time) []DayCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	daysInMonth := first.AddDate(0, 1, -1).Day()

	cells := make([]DayCell, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		day := time.Date(year, month, d, 0, 0, 0, 0, now.Location())

		var dayLogs []store.MedicationLog
		for _, l := range logs {
			if schedule.SameDay(l.Timestamp, day) {
				dayLogs = append(dayLogs, l)
			}
		}

		var due []store.Medication
		var dueView []DueMedication
		for _, m := range meds {
			if !schedule.DueOn(m.Schedule, m.CreatedAt, day) {
				continue
			}
			due = append(due, m)

			taken := false
			for _, l := range dayLogs {
				if l.MedicationID == m.ID && l.Status == store.LogTaken {
					taken = true
					break
				}
			}
			dueView = append(dueView, DueMedication{
				MedicationID: m.ID,
				Name:         m.Name,
				Dosage:       FormatDosage(m.Dosage),
				Taken:        taken,
			})
		}

		cells = append(cells, DayCell{
			Date:   day,
			Status: adherence.Resolve(due, dayLogs, day, now),
			Due:    dueView,
		})
	}
	return cells
}

// YearSummary tallies day statuses per month for the year view.
func YearSummary(meds []store.Medication, logs []store.MedicationLog, year int, now time.Time) [12]MonthSummary {
	var out [12]MonthSummary
	for m := time.January; m <= time.December; m++ {
		summary := MonthSummary{Month: m}
		for _, cell := range MonthGrid(meds, logs, year, m, now) {
			switch cell.Status {
			case adherence.Complete:
				summary.Complete++
			case adherence.Partial:
				summary.Partial++
			case adherence.Missed:
				summary.Missed++
			}
		}
		out[m-1] = summary
	}
	return out
}

// FormatDosage renders a dosage as "1 pill" or "2 ml (500 IU)".
func FormatDosage(d store.Dosage) string {
	s := strconv.FormatFloat(d.Amount, 'f', -1, 64) + " " + d.Unit
	if d.Concentration > 0 {
		s += fmt.Sprintf(" (%s IU)", strconv.FormatFloat(d.Concentration, 'f', -1, 64))
	}
	return s
}
