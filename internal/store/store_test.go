package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/dosetrack/internal/config"
	apperrors "github.com/gmsas95/dosetrack/internal/errors"
	"github.com/gmsas95/dosetrack/internal/schedule"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DataDir = dir
	cfg.Storage.SQLitePath = filepath.Join(dir, "test.db")
	cfg.Storage.BadgerPath = filepath.Join(dir, "badger")

	st, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func validMedication() *Medication {
	return &Medication{
		UserID:    DefaultUserID,
		Name:      "Aspirin",
		Dosage:    Dosage{Amount: 1, Unit: UnitPill},
		Schedule:  schedule.Rule{Frequency: schedule.Daily, Times: []string{"08:00"}},
		Inventory: 10,
	}
}

func TestDefaultUserCreated(t *testing.T) {
	st := newTestStore(t)

	user, err := st.GetUser(DefaultUserID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, DefaultUserID, user.ID)

	missing, err := st.GetUser("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMedicationScheduleRoundTrip(t *testing.T) {
	st := newTestStore(t)

	med := validMedication()
	med.Schedule = schedule.Rule{
		Frequency:    schedule.Monthly,
		Times:        []string{"08:00", "20:00"},
		Months:       []int{0, 6},
		WeeksOfMonth: []int{1},
		DaysOfMonth:  []int{1},
	}
	require.NoError(t, st.CreateMedication(med))
	require.NotEmpty(t, med.ID)

	got, err := st.GetMedication(DefaultUserID, med.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, med.Schedule.Frequency, got.Schedule.Frequency)
	assert.Equal(t, med.Schedule.Times, got.Schedule.Times)
	assert.Equal(t, med.Schedule.Months, got.Schedule.Months)
	assert.Equal(t, med.Dosage, got.Dosage)
}

func TestGetMedicationScoping(t *testing.T) {
	st := newTestStore(t)

	med := validMedication()
	require.NoError(t, st.CreateMedication(med))

	got, err := st.GetMedication("someone-else", med.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = st.GetMedication(DefaultUserID, "med_missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateMedicationValidation(t *testing.T) {
	st := newTestStore(t)

	cases := []struct {
		name   string
		mutate func(*Medication)
		code   string
	}{
		{"empty name", func(m *Medication) { m.Name = "" }, "MED_002"},
		{"zero amount", func(m *Medication) { m.Dosage.Amount = 0 }, "MED_002"},
		{"bad unit", func(m *Medication) { m.Dosage.Unit = "spoonful" }, "MED_002"},
		{"negative concentration", func(m *Medication) { m.Dosage.Concentration = -1 }, "MED_002"},
		{"negative inventory", func(m *Medication) { m.Inventory = -1 }, "MED_002"},
		{"bad schedule", func(m *Medication) { m.Schedule.Times = nil }, "SCHED_001"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			med := validMedication()
			tc.mutate(med)
			err := st.CreateMedication(med)
			assert.Equal(t, tc.code, apperrors.GetCode(err))
		})
	}
}

func TestLogsBetweenHalfOpen(t *testing.T) {
	st := newTestStore(t)

	med := validMedication()
	require.NoError(t, st.CreateMedication(med))

	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.Local)
	for _, ts := range []time.Time{
		day.Add(-time.Second),
		day,
		day.Add(12 * time.Hour),
		day.AddDate(0, 0, 1),
	} {
		require.NoError(t, st.CreateLog(&MedicationLog{
			UserID:       DefaultUserID,
			MedicationID: med.ID,
			Timestamp:    ts,
			Status:       LogTaken,
		}))
	}

	logs, err := st.LogsBetween(DefaultUserID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestSubscriptionUpsert(t *testing.T) {
	st := newTestStore(t)

	sub, err := st.GetSubscription(DefaultUserID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	require.NoError(t, st.UpsertSubscription(&Subscription{
		UserID: DefaultUserID,
		Status: SubTrialing,
	}))
	require.NoError(t, st.UpsertSubscription(&Subscription{
		UserID: DefaultUserID,
		Status: SubActive,
	}))

	sub, err = st.GetSubscription(DefaultUserID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, SubActive, sub.Status)
}

func TestKVRoundTrip(t *testing.T) {
	st := newTestStore(t)

	missing, err := st.GetKV("reminder:none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, st.SetKV("reminder:x", []byte("1"), time.Hour))
	got, err := st.GetKV("reminder:x")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestSessionLifecycle(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.SetSession("sess_1", []byte("payload"), time.Hour))

	got, err := st.GetSession("sess_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, st.DeleteSession("sess_1"))
	got, err = st.GetSession("sess_1")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestGenerateID(t *testing.T) {
	a := generateID("med")
	b := generateID("med")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "med_")
}
