// Package reminder schedules dose notifications: one cron entry per
// (medication, time-of-day), deduplicated per day through a Badger key
// and fanned out to the configured delivery channels.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/calendar"
	"github.com/gmsas95/dosetrack/internal/metrics"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// Reminder is one dose notification.
type Reminder struct {
	MedicationID   string
	MedicationName string
	Dosage         string
	TimeOfDay      string // HH:MM
}

// Message renders the notification text sent to channels.
func (r Reminder) Message() string {
	return fmt.Sprintf("Time for %s (%s) at %s", r.MedicationName, r.Dosage, r.TimeOfDay)
}

// Notifier delivers a reminder over one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, r Reminder) error
}

type wrappedNotifier struct {
	notifier Notifier
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

// Scheduler owns the cron entries for all medications.
type Scheduler struct {
	store     *store.Store
	logger    *zap.Logger
	cron      *cron.Cron
	notifiers []wrappedNotifier
	dedupTTL  time.Duration

	mu      sync.Mutex
	entries []cron.EntryID

	now func() time.Time
}

// NewScheduler builds a scheduler over the given delivery channels. Each
// notifier gets its own circuit breaker so one failing channel does not
// stall the others.
func NewScheduler(st *store.Store, logger *zap.Logger, dedupTTL time.Duration, notifiers ...Notifier) *Scheduler {
	if dedupTTL <= 0 {
		dedupTTL = 48 * time.Hour
	}

	wrapped := make([]wrappedNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		wrapped = append(wrapped, wrappedNotifier{
			notifier: n,
			breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
				Name:    "notifier-" + n.Name(),
				Timeout: time.Minute,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			}),
		})
	}

	return &Scheduler{
		store:     st,
		logger:    logger,
		cron:      cron.New(),
		notifiers: wrapped,
		dedupTTL:  dedupTTL,
		now:       time.Now,
	}
}

// Start loads the current medication set and begins firing entries.
func (s *Scheduler) Start() error {
	if err := s.Reload(); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for in-flight entries.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("reminder scheduler stopped")
}

// Reload rebuilds the cron entries from the medication table. Called on
// start, on medication changes and on config reload.
func (s *Scheduler) Reload() error {
	meds, err := s.store.ListMedications(store.DefaultUserID)
	if err != nil {
		return fmt.Errorf("failed to list medications: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	for _, med := range meds {
		for _, tod := range med.Schedule.Times {
			hour, minute, err := schedule.ParseTimeOfDay(tod)
			if err != nil {
				s.logger.Warn("skipping unparseable reminder time",
					zap.String("medication_id", med.ID),
					zap.String("time", tod),
				)
				continue
			}

			medID := med.ID
			timeOfDay := tod
			id, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
				s.fire(medID, timeOfDay)
			})
			if err != nil {
				return fmt.Errorf("failed to schedule reminder: %w", err)
			}
			s.entries = append(s.entries, id)
		}
	}

	s.logger.Info("reminder entries rebuilt", zap.Int("entries", len(s.entries)))
	return nil
}

// fire runs when a cron entry triggers. The medication is re-read so
// stale entries (deleted or re-scheduled medications) fall out silently
// until the next Reload.
func (s *Scheduler) fire(medicationID, timeOfDay string) {
	now := s.now()

	med, err := s.store.GetMedication(store.DefaultUserID, medicationID)
	if err != nil {
		s.logger.Error("reminder lookup failed", zap.String("medication_id", medicationID), zap.Error(err))
		return
	}
	if med == nil {
		return
	}
	if !schedule.DueOn(med.Schedule, med.CreatedAt, now) {
		return
	}

	dedupKey := fmt.Sprintf("reminder:%s:%s:%s", med.ID, now.Format("2006-01-02"), timeOfDay)
	if existing, err := s.store.GetKV(dedupKey); err != nil {
		s.logger.Error("reminder dedup check failed", zap.Error(err))
		return
	} else if existing != nil {
		metrics.RemindersDeduped.Inc()
		return
	}
	if err := s.store.SetKV(dedupKey, []byte("1"), s.dedupTTL); err != nil {
		s.logger.Error("failed to set reminder dedup key", zap.Error(err))
		return
	}

	r := Reminder{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Dosage:         calendar.FormatDosage(med.Dosage),
		TimeOfDay:      timeOfDay,
	}
	s.dispatch(r)
}

func (s *Scheduler) dispatch(r Reminder) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range s.notifiers {
		name := w.notifier.Name()
		_, err := w.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, w.notifier.Notify(ctx, r)
		})
		if err != nil {
			metrics.ReminderFailures.WithLabelValues(name).Inc()
			s.logger.Warn("reminder delivery failed",
				zap.String("channel", name),
				zap.String("medication_id", r.MedicationID),
				zap.Error(err),
			)
			continue
		}
		metrics.RemindersSent.WithLabelValues(name).Inc()
	}
}
