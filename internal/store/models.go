package store

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/gmsas95/dosetrack/internal/schedule"
)

// Log status values. "missed" is accepted for interop with imported data
// but never written by the take/skip paths.
const (
	LogTaken   = "taken"
	LogSkipped = "skipped"
	LogMissed  = "missed"
)

// Dose units.
const (
	UnitPill = "pill"
	UnitMl   = "ml"
	UnitMg   = "mg"
)

// Subscription status values (mirrors the billing provider's vocabulary).
const (
	SubActive   = "active"
	SubTrialing = "trialing"
	SubPastDue  = "past_due"
	SubCanceled = "canceled"
)

// User represents a user (single user in self-hosted mode)
type User struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	DisplayName string          `json:"display_name"`
	Email       string          `json:"email,omitempty"`
	Preferences json.RawMessage `json:"preferences"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Dosage is one dose of a medication. Concentration is an optional IU
// strength, 0 when not set.
type Dosage struct {
	Amount        float64 `json:"amount"`
	Unit          string  `json:"unit"` // pill, ml, mg
	Concentration float64 `json:"concentration,omitempty"`
}

// Medication represents a tracked medication with its recurrence schedule.
// The schedule is serialized into a JSON text column.
type Medication struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index" json:"user_id"`

	Name   string `json:"name"`
	Dosage Dosage `json:"dosage" gorm:"embedded;embeddedPrefix:dose_"`

	Schedule     schedule.Rule `json:"schedule" gorm:"-"`
	ScheduleJSON string        `json:"-" gorm:"type:text"`

	Inventory int    `json:"inventory"`
	Notes     string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MedicationLog is one adherence action against a medication.
type MedicationLog struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"index" json:"user_id"`
	MedicationID string    `gorm:"index:idx_med_ts" json:"medication_id"`
	Timestamp    time.Time `gorm:"index:idx_med_ts" json:"timestamp"`
	Status       string    `json:"status"` // taken, skipped, missed
	CreatedAt    time.Time `json:"created_at"`
}

// Subscription mirrors the external billing provider's record for a user.
type Subscription struct {
	UserID            string     `gorm:"primaryKey" json:"user_id"`
	CustomerID        string     `json:"customer_id,omitempty"`
	SubscriptionID    string     `json:"subscription_id,omitempty"`
	Status            string     `json:"status"` // active, trialing, past_due, canceled
	PriceID           string     `json:"price_id,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BeforeCreate hook for Medication
func (m *Medication) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateID("med")
	}
	return nil
}

// BeforeSave serializes the schedule into its text column.
func (m *Medication) BeforeSave(tx *gorm.DB) error {
	b, err := json.Marshal(m.Schedule)
	if err != nil {
		return err
	}
	m.ScheduleJSON = string(b)
	return nil
}

// AfterFind restores the schedule from its text column.
func (m *Medication) AfterFind(tx *gorm.DB) error {
	if m.ScheduleJSON == "" {
		return nil
	}
	return json.Unmarshal([]byte(m.ScheduleJSON), &m.Schedule)
}

// BeforeCreate hook for MedicationLog
func (l *MedicationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateID("log")
	}
	return nil
}

// generateID creates a unique ID with nanosecond precision
func generateID(prefix string) string {
	return prefix + "_" + time.Now().Format("20060102150405") + "_" + randomString(8)
}

// randomString generates a cryptographically secure random string
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}
