// Package ledger implements the write side of adherence tracking:
// recording take/skip actions, undoing them, and keeping the inventory
// counter consistent with the log history.
package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/gmsas95/dosetrack/internal/errors"
	"github.com/gmsas95/dosetrack/internal/metrics"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// Service coordinates log writes with inventory updates. Each operation
// runs in a single database transaction, so a log entry and its inventory
// adjustment are visible together or not at all.
type Service struct {
	store  *store.Store
	logger *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(st *store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// RecordAction appends a taken or skipped log for a medication due today.
// A taken action decrements inventory, floored at 0.
func (s *Service) RecordAction(ctx context.Context, userID, medicationID, status string) (*store.MedicationLog, error) {
	if status != store.LogTaken && status != store.LogSkipped {
		return nil, apperrors.New("LOG_001", "status must be taken or skipped")
	}

	med, err := s.store.GetMedication(userID, medicationID)
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_001", "failed to load medication")
	}
	if med == nil {
		return nil, apperrors.ErrMedicationNotFound
	}

	now := s.now()
	if !schedule.DueOn(med.Schedule, med.CreatedAt, now) {
		return nil, apperrors.ErrNotScheduled
	}

	log := &store.MedicationLog{
		UserID:       userID,
		MedicationID: medicationID,
		Timestamp:    now,
		Status:       status,
	}

	err = s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		if status == store.LogTaken {
			newInv := med.Inventory - 1
			if newInv < 0 {
				newInv = 0
			}
			if err := tx.Model(&store.Medication{}).
				Where("id = ?", med.ID).
				Update("inventory", newInv).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_001", "failed to record action")
	}

	metrics.DosesLogged.WithLabelValues(status).Inc()
	s.logger.Info("recorded dose action",
		zap.String("medication_id", medicationID),
		zap.String("status", status),
	)
	return log, nil
}

// Undo removes a log entry and, for taken logs, restores one unit of
// inventory. Undoing a log that no longer exists is a silent no-op, so
// the operation is idempotent.
func (s *Service) Undo(ctx context.Context, userID, logID string) error {
	log, err := s.store.GetLog(userID, logID)
	if err != nil {
		return apperrors.Wrap(err, "STORE_001", "failed to load log")
	}
	if log == nil {
		return nil
	}

	err = s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userID, logID).Delete(&store.MedicationLog{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost a race with another undo; nothing to compensate.
			return nil
		}
		if log.Status == store.LogTaken {
			if err := tx.Model(&store.Medication{}).
				Where("id = ?", log.MedicationID).
				Update("inventory", gorm.Expr("inventory + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "STORE_001", "failed to undo log")
	}

	metrics.UndosTotal.Inc()
	s.logger.Info("undid dose action",
		zap.String("log_id", logID),
		zap.String("medication_id", log.MedicationID),
	)
	return nil
}

// LastUndoable returns the most recently created log for a medication on
// the current local day, or nil when there is nothing to undo.
func (s *Service) LastUndoable(userID, medicationID string) (*store.MedicationLog, error) {
	dayStart := schedule.StartOfDay(s.now())
	logs, err := s.store.LogsForMedicationBetween(userID, medicationID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperrors.Wrap(err, "STORE_001", "failed to list logs")
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}

// DeleteMedication removes a medication and all of its logs in one
// transaction, leaving no orphaned entries.
func (s *Service) DeleteMedication(ctx context.Context, userID, medicationID string) error {
	med, err := s.store.GetMedication(userID, medicationID)
	if err != nil {
		return apperrors.Wrap(err, "STORE_001", "failed to load medication")
	}
	if med == nil {
		return apperrors.ErrMedicationNotFound
	}

	err = s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medication_id = ?", medicationID).Delete(&store.MedicationLog{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id = ?", userID, medicationID).Delete(&store.Medication{}).Error
	})
	if err != nil {
		return apperrors.Wrap(err, "STORE_001", "failed to delete medication")
	}

	s.logger.Info("deleted medication", zap.String("medication_id", medicationID))
	return nil
}

// TakenToday reports whether the medication already has a taken log today.
func (s *Service) TakenToday(userID, medicationID string) (bool, error) {
	dayStart := schedule.StartOfDay(s.now())
	logs, err := s.store.LogsForMedicationBetween(userID, medicationID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return false, apperrors.Wrap(err, "STORE_001", "failed to list logs")
	}
	for _, l := range logs {
		if l.Status == store.LogTaken {
			return true, nil
		}
	}
	return false, nil
}
