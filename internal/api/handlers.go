package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/analytics"
	"github.com/gmsas95/dosetrack/internal/billing"
	"github.com/gmsas95/dosetrack/internal/calendar"
	apperrors "github.com/gmsas95/dosetrack/internal/errors"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// medicationRequest is the write shape for medication create/update.
type medicationRequest struct {
	Name      string        `json:"name"`
	Dosage    store.Dosage  `json:"dosage"`
	Schedule  schedule.Rule `json:"schedule"`
	Inventory int           `json:"inventory"`
	Notes     string        `json:"notes"`
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case "SCHED_002", "LOG_001":
		return 422
	case "SCHED_001", "MED_002", "GEN_002":
		return 400
	case "MED_001", "LOG_002", "GEN_001":
		return 404
	case "AUTH_003":
		return 403
	case "STORE_001":
		return 503
	default:
		return 500
	}
}

func (s *Server) jsonError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status >= 500 {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// ==================== Medications ====================

func (s *Server) handleListMedications(c *fiber.Ctx) error {
	meds, err := s.store.ListMedications(s.userID(c))
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list medications"))
	}
	return c.JSON(meds)
}

func (s *Server) handleCreateMedication(c *fiber.Ctx) error {
	var req medicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	med := &store.Medication{
		UserID:    s.userID(c),
		Name:      req.Name,
		Dosage:    req.Dosage,
		Schedule:  req.Schedule,
		Inventory: req.Inventory,
		Notes:     req.Notes,
	}

	if err := s.store.CreateMedication(med); err != nil {
		return s.jsonError(c, err)
	}

	s.medicationsChanged()
	s.hub.Broadcast(Event{Type: "medication_created", MedicationID: med.ID})
	return c.Status(201).JSON(med)
}

func (s *Server) handleGetMedication(c *fiber.Ctx) error {
	med, err := s.store.GetMedication(s.userID(c), c.Params("id"))
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to load medication"))
	}
	if med == nil {
		return s.jsonError(c, apperrors.ErrMedicationNotFound)
	}
	return c.JSON(med)
}

func (s *Server) handleUpdateMedication(c *fiber.Ctx) error {
	med, err := s.store.GetMedication(s.userID(c), c.Params("id"))
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to load medication"))
	}
	if med == nil {
		return s.jsonError(c, apperrors.ErrMedicationNotFound)
	}

	var req medicationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	med.Name = req.Name
	med.Dosage = req.Dosage
	med.Schedule = req.Schedule
	med.Inventory = req.Inventory
	med.Notes = req.Notes

	if err := s.store.UpdateMedication(med); err != nil {
		return s.jsonError(c, err)
	}

	s.medicationsChanged()
	s.hub.Broadcast(Event{Type: "medication_updated", MedicationID: med.ID})
	return c.JSON(med)
}

func (s *Server) handleDeleteMedication(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.ledger.DeleteMedication(c.Context(), s.userID(c), id); err != nil {
		return s.jsonError(c, err)
	}

	s.medicationsChanged()
	s.hub.Broadcast(Event{Type: "medication_deleted", MedicationID: id})
	return c.SendStatus(204)
}

// ==================== Adherence actions ====================

func (s *Server) handleTake(c *fiber.Ctx) error {
	return s.recordAction(c, store.LogTaken)
}

func (s *Server) handleSkip(c *fiber.Ctx) error {
	return s.recordAction(c, store.LogSkipped)
}

func (s *Server) recordAction(c *fiber.Ctx, status string) error {
	log, err := s.ledger.RecordAction(c.Context(), s.userID(c), c.Params("id"), status)
	if err != nil {
		return s.jsonError(c, err)
	}

	s.hub.Broadcast(Event{Type: "log_created", MedicationID: log.MedicationID, LogID: log.ID, Status: log.Status})
	return c.Status(201).JSON(log)
}

// handleUndoLast undoes the medication's most recent action today.
// Nothing to undo is a 204, same as a successful undo.
func (s *Server) handleUndoLast(c *fiber.Ctx) error {
	userID := s.userID(c)
	log, err := s.ledger.LastUndoable(userID, c.Params("id"))
	if err != nil {
		return s.jsonError(c, err)
	}
	if log == nil {
		return c.SendStatus(204)
	}

	if err := s.ledger.Undo(c.Context(), userID, log.ID); err != nil {
		return s.jsonError(c, err)
	}

	s.hub.Broadcast(Event{Type: "log_undone", MedicationID: log.MedicationID, LogID: log.ID})
	return c.SendStatus(204)
}

func (s *Server) handleUndoLog(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.ledger.Undo(c.Context(), s.userID(c), id); err != nil {
		return s.jsonError(c, err)
	}

	s.hub.Broadcast(Event{Type: "log_undone", LogID: id})
	return c.SendStatus(204)
}

func (s *Server) handleListLogs(c *fiber.Ctx) error {
	userID := s.userID(c)

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" && toStr == "" {
		logs, err := s.store.ListLogs(userID)
		if err != nil {
			return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list logs"))
		}
		return c.JSON(logs)
	}

	from, err := time.ParseInLocation("2006-01-02", fromStr, time.Local)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "from must be YYYY-MM-DD"})
	}
	to := from.AddDate(0, 0, 1)
	if toStr != "" {
		to, err = time.ParseInLocation("2006-01-02", toStr, time.Local)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "to must be YYYY-MM-DD"})
		}
		to = to.AddDate(0, 0, 1)
	}

	logs, err := s.store.LogsBetween(userID, from, to)
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list logs"))
	}
	return c.JSON(logs)
}

// ==================== Views ====================

func (s *Server) entitlement(userID string) (billing.Entitlement, error) {
	user, err := s.store.GetUser(userID)
	if err != nil {
		return billing.Entitlement{}, apperrors.Wrap(err, "STORE_001", "failed to load user")
	}
	if user == nil {
		return billing.Entitlement{}, apperrors.ErrNotFound
	}
	sub, err := s.store.GetSubscription(userID)
	if err != nil {
		return billing.Entitlement{}, apperrors.Wrap(err, "STORE_001", "failed to load subscription")
	}
	return billing.Evaluate(user, sub, time.Now(), s.config.Billing.TrialDays), nil
}

func (s *Server) handleCalendarMonth(c *fiber.Ctx) error {
	userID := s.userID(c)
	year, err := c.ParamsInt("year")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid year"})
	}
	monthNum, err := c.ParamsInt("month")
	if err != nil || monthNum < 1 || monthNum > 12 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid month"})
	}
	month := time.Month(monthNum)

	now := time.Now()
	if year != now.Year() || month != now.Month() {
		ent, err := s.entitlement(userID)
		if err != nil {
			return s.jsonError(c, err)
		}
		if !ent.CanNavigateCalendar() {
			return s.jsonError(c, apperrors.ErrPremiumGated)
		}
	}

	meds, err := s.store.ListMedications(userID)
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list medications"))
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	logs, err := s.store.LogsBetween(userID, first, first.AddDate(0, 1, 0))
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list logs"))
	}

	return c.JSON(fiber.Map{
		"year":  year,
		"month": int(month),
		"days":  calendar.MonthGrid(meds, logs, year, month, now),
	})
}

func (s *Server) handleCalendarYear(c *fiber.Ctx) error {
	userID := s.userID(c)
	year, err := c.ParamsInt("year")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid year"})
	}

	// The year view is navigation by definition.
	ent, err := s.entitlement(userID)
	if err != nil {
		return s.jsonError(c, err)
	}
	if !ent.CanNavigateCalendar() {
		return s.jsonError(c, apperrors.ErrPremiumGated)
	}

	meds, err := s.store.ListMedications(userID)
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list medications"))
	}

	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	logs, err := s.store.LogsBetween(userID, first, first.AddDate(1, 0, 0))
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list logs"))
	}

	return c.JSON(fiber.Map{
		"year":   year,
		"months": calendar.YearSummary(meds, logs, year, time.Now()),
	})
}

func (s *Server) handleAnalytics(c *fiber.Ctx) error {
	userID := s.userID(c)

	meds, err := s.store.ListMedications(userID)
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list medications"))
	}
	logs, err := s.store.ListLogs(userID)
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to list logs"))
	}

	return c.JSON(analytics.Compute(meds, logs, time.Now()))
}

func (s *Server) handleSubscription(c *fiber.Ctx) error {
	userID := s.userID(c)

	ent, err := s.entitlement(userID)
	if err != nil {
		return s.jsonError(c, err)
	}
	sub, err := s.store.GetSubscription(userID)
	if err != nil {
		return s.jsonError(c, apperrors.Wrap(err, "STORE_001", "failed to load subscription"))
	}

	return c.JSON(fiber.Map{
		"entitlement":  ent,
		"subscription": sub,
	})
}
