// Package cli implements the terminal subcommands. Each handler opens
// its own store, does its work and exits, so commands stay usable while
// the server is not running.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/adherence"
	"github.com/gmsas95/dosetrack/internal/analytics"
	"github.com/gmsas95/dosetrack/internal/billing"
	"github.com/gmsas95/dosetrack/internal/calendar"
	"github.com/gmsas95/dosetrack/internal/config"
	"github.com/gmsas95/dosetrack/internal/ledger"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

var (
	styleComplete = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stylePartial  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleMissed   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDim      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleToday    = lipgloss.NewStyle().Bold(true).Underline(true)
)

// app bundles what every command needs.
type app struct {
	config *config.Config
	store  *store.Store
	ledger *ledger.Service
	logger *zap.Logger
}

func open(configPath, dataDir string) *app {
	logger := zap.NewNop()

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	st, err := store.New(cfg)
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		fmt.Println("Is the server running? The database allows one writer at a time.")
		os.Exit(1)
	}

	return &app{
		config: cfg,
		store:  st,
		ledger: ledger.New(st, logger),
		logger: logger,
	}
}

func (a *app) close() {
	a.store.Close()
}

// findMedication resolves a name argument to a medication, matching
// case-insensitively on the full name first, then on a unique prefix.
func (a *app) findMedication(name string) *store.Medication {
	meds, err := a.store.ListMedications(store.DefaultUserID)
	if err != nil {
		fmt.Printf("Error listing medications: %v\n", err)
		os.Exit(1)
	}

	lower := strings.ToLower(name)
	for i := range meds {
		if strings.ToLower(meds[i].Name) == lower {
			return &meds[i]
		}
	}

	var matches []*store.Medication
	for i := range meds {
		if strings.HasPrefix(strings.ToLower(meds[i].Name), lower) {
			matches = append(matches, &meds[i])
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}
	if len(matches) > 1 {
		fmt.Printf("'%s' is ambiguous:\n", name)
		for _, m := range matches {
			fmt.Printf("  %s\n", m.Name)
		}
		os.Exit(1)
	}

	fmt.Printf("No medication named '%s'. Run 'dosetrack list' to see what is tracked.\n", name)
	os.Exit(1)
	return nil
}

// HandleListCommand prints every tracked medication.
func HandleListCommand(configPath, dataDir string) {
	a := open(configPath, dataDir)
	defer a.close()

	meds, err := a.store.ListMedications(store.DefaultUserID)
	if err != nil {
		fmt.Printf("Error listing medications: %v\n", err)
		os.Exit(1)
	}

	if len(meds) == 0 {
		fmt.Println("No medications tracked yet. Add one through the web UI or API.")
		return
	}

	fmt.Println(styleHeader.Render("Medications"))
	for _, m := range meds {
		fmt.Printf("  %-20s %-16s %s  %s\n",
			m.Name,
			calendar.FormatDosage(m.Dosage),
			scheduleSummary(m.Schedule),
			styleDim.Render(fmt.Sprintf("inventory: %d", m.Inventory)),
		)
	}
}

// HandleTodayCommand prints what is due today and what was already logged.
func HandleTodayCommand(configPath, dataDir string) {
	a := open(configPath, dataDir)
	defer a.close()

	now := time.Now()
	meds, err := a.store.ListMedications(store.DefaultUserID)
	if err != nil {
		fmt.Printf("Error listing medications: %v\n", err)
		os.Exit(1)
	}

	dayStart := schedule.StartOfDay(now)
	logs, err := a.store.LogsBetween(store.DefaultUserID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		fmt.Printf("Error listing logs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(styleHeader.Render("Due today, " + now.Format("Monday, Jan 2")))

	var due []store.Medication
	for _, m := range meds {
		if schedule.DueOn(m.Schedule, m.CreatedAt, now) {
			due = append(due, m)
		}
	}
	if len(due) == 0 {
		fmt.Println("  Nothing due today.")
		return
	}

	for _, m := range due {
		mark := "▢"
		for _, l := range logs {
			if l.MedicationID != m.ID {
				continue
			}
			if l.Status == store.LogTaken {
				mark = styleComplete.Render("✓")
				break
			}
			if l.Status == store.LogSkipped {
				mark = styleDim.Render("–")
			}
		}
		fmt.Printf("  %s %-20s %-16s %s\n",
			mark, m.Name, calendar.FormatDosage(m.Dosage), strings.Join(m.Schedule.Times, ", "))
	}

	status := adherence.Resolve(due, logs, now, now)
	fmt.Printf("\n  Day status: %s\n", renderStatus(status))
}

// HandleTakeCommand logs a dose as taken.
func HandleTakeCommand(args []string, configPath, dataDir string) {
	recordCommand(args, configPath, dataDir, store.LogTaken, "take")
}

// HandleSkipCommand logs a dose as deliberately skipped.
func HandleSkipCommand(args []string, configPath, dataDir string) {
	recordCommand(args, configPath, dataDir, store.LogSkipped, "skip")
}

func recordCommand(args []string, configPath, dataDir, status, verb string) {
	if len(args) == 0 {
		fmt.Printf("Usage: dosetrack %s <medication>\n", verb)
		os.Exit(1)
	}

	a := open(configPath, dataDir)
	defer a.close()

	med := a.findMedication(strings.Join(args, " "))
	log, err := a.ledger.RecordAction(context.Background(), store.DefaultUserID, med.ID, status)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if status == store.LogTaken {
		med, _ = a.store.GetMedication(store.DefaultUserID, med.ID)
		fmt.Printf("✓ Took %s at %s", med.Name, log.Timestamp.Format("15:04"))
		if med != nil {
			fmt.Printf(" (%d left)", med.Inventory)
		}
		fmt.Println()
	} else {
		fmt.Printf("– Skipped %s\n", med.Name)
	}
}

// HandleUndoCommand reverts the most recent action today for a medication.
func HandleUndoCommand(args []string, configPath, dataDir string) {
	if len(args) == 0 {
		fmt.Println("Usage: dosetrack undo <medication>")
		os.Exit(1)
	}

	a := open(configPath, dataDir)
	defer a.close()

	med := a.findMedication(strings.Join(args, " "))
	log, err := a.ledger.LastUndoable(store.DefaultUserID, med.ID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if log == nil {
		fmt.Printf("Nothing logged today for %s.\n", med.Name)
		return
	}

	if err := a.ledger.Undo(context.Background(), store.DefaultUserID, log.ID); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Undid %s for %s\n", log.Status, med.Name)
}

// HandleCalendarCommand renders a month grid. With no argument it shows
// the current month; "dosetrack calendar 2026-03" shows another one,
// which needs an active trial or subscription.
func HandleCalendarCommand(args []string, configPath, dataDir string) {
	a := open(configPath, dataDir)
	defer a.close()

	now := time.Now()
	year, month := now.Year(), now.Month()

	if len(args) > 0 {
		t, err := time.ParseInLocation("2006-01", args[0], time.Local)
		if err != nil {
			fmt.Println("Usage: dosetrack calendar [YYYY-MM]")
			os.Exit(1)
		}
		year, month = t.Year(), t.Month()
	}

	if year != now.Year() || month != now.Month() {
		ent := a.entitlement(now)
		if !ent.CanNavigateCalendar() {
			fmt.Println("Browsing other months needs an active trial or subscription.")
			os.Exit(1)
		}
	}

	meds, err := a.store.ListMedications(store.DefaultUserID)
	if err != nil {
		fmt.Printf("Error listing medications: %v\n", err)
		os.Exit(1)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	logs, err := a.store.LogsBetween(store.DefaultUserID, first, first.AddDate(0, 1, 0))
	if err != nil {
		fmt.Printf("Error listing logs: %v\n", err)
		os.Exit(1)
	}

	printMonth(calendar.MonthGrid(meds, logs, year, month, now), year, month, now)
}

func printMonth(cells []calendar.DayCell, year int, month time.Month, now time.Time) {
	fmt.Println(styleHeader.Render(fmt.Sprintf("%s %d", month, year)))
	fmt.Println(styleDim.Render(" Mo  Tu  We  Th  Fr  Sa  Su"))

	// Monday-first column for the 1st of the month.
	offset := (int(cells[0].Date.Weekday()) + 6) % 7
	line := strings.Repeat("    ", offset)
	col := offset

	for _, cell := range cells {
		day := strconv.Itoa(cell.Date.Day())
		cellText := fmt.Sprintf("%3s", day)
		if schedule.SameDay(cell.Date, now) {
			cellText = styleToday.Render(cellText)
		} else {
			switch cell.Status {
			case adherence.Complete:
				cellText = styleComplete.Render(cellText)
			case adherence.Partial:
				cellText = stylePartial.Render(cellText)
			case adherence.Missed:
				cellText = styleMissed.Render(cellText)
			default:
				cellText = styleDim.Render(cellText)
			}
		}
		line += cellText + " "

		col++
		if col == 7 {
			fmt.Println(line)
			line = ""
			col = 0
		}
	}
	if line != "" {
		fmt.Println(line)
	}

	fmt.Printf("\n %s complete  %s partial  %s missed\n",
		styleComplete.Render("■"), stylePartial.Render("■"), styleMissed.Render("■"))
}

// HandleStatsCommand prints the adherence analytics snapshot.
func HandleStatsCommand(configPath, dataDir string) {
	a := open(configPath, dataDir)
	defer a.close()

	meds, err := a.store.ListMedications(store.DefaultUserID)
	if err != nil {
		fmt.Printf("Error listing medications: %v\n", err)
		os.Exit(1)
	}
	logs, err := a.store.ListLogs(store.DefaultUserID)
	if err != nil {
		fmt.Printf("Error listing logs: %v\n", err)
		os.Exit(1)
	}

	snap := analytics.Compute(meds, logs, time.Now())

	fmt.Println(styleHeader.Render("Adherence"))
	fmt.Printf("  Active medications: %d\n", snap.ActiveMedications)
	fmt.Printf("  Doses taken:        %d\n", snap.TotalDosesTaken)
	fmt.Printf("  Daily reminders:    %d\n", snap.DailyReminders)
	fmt.Printf("  Compliance:         %d%%\n", snap.ComplianceRate)

	if len(snap.MedicationCompliance) > 0 {
		fmt.Println("\n" + styleHeader.Render("Per medication"))
		for _, mc := range snap.MedicationCompliance {
			fmt.Printf("  %-20s %s %d%%\n", mc.Name, complianceBar(mc.Rate), mc.Rate)
		}
	}
}

func complianceBar(rate int) string {
	filled := rate / 10
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	switch {
	case rate >= 80:
		return styleComplete.Render(bar)
	case rate >= 50:
		return stylePartial.Render(bar)
	default:
		return styleMissed.Render(bar)
	}
}

// HandleInitCommand writes a commented default config file.
func HandleInitCommand(configPath, dataDir string) {
	if configPath == "" {
		configPath = config.DefaultConfigPath(dataDir)
	}

	if err := config.WriteDefault(configPath); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Wrote %s\n", configPath)
	fmt.Println("Edit it and run 'dosetrack serve' to start the server.")
}

func (a *app) entitlement(now time.Time) billing.Entitlement {
	user, err := a.store.GetUser(store.DefaultUserID)
	if err != nil || user == nil {
		return billing.Entitlement{}
	}
	sub, err := a.store.GetSubscription(store.DefaultUserID)
	if err != nil {
		return billing.Entitlement{}
	}
	return billing.Evaluate(user, sub, now, a.config.Billing.TrialDays)
}

func renderStatus(s adherence.Status) string {
	switch s {
	case adherence.Complete:
		return styleComplete.Render(string(s))
	case adherence.Partial:
		return stylePartial.Render(string(s))
	case adherence.Missed:
		return styleMissed.Render(string(s))
	default:
		return styleDim.Render(string(s))
	}
}

func scheduleSummary(r schedule.Rule) string {
	times := strings.Join(r.Times, ", ")
	switch r.Frequency {
	case schedule.Daily:
		return "daily at " + times
	case schedule.Weekly:
		days := make([]string, 0, len(r.DaysOfWeek))
		for _, d := range r.DaysOfWeek {
			days = append(days, time.Weekday(d).String()[:3])
		}
		return strings.Join(days, "/") + " at " + times
	case schedule.Monthly:
		return "monthly at " + times
	default:
		return times
	}
}
