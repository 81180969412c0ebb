package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/dosetrack/internal/config"
	apperrors "github.com/gmsas95/dosetrack/internal/errors"
)

// DefaultUserID identifies the single user of a self-hosted instance.
const DefaultUserID = "default"

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	config *config.StorageConfig
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "dosetrack.db")
	}

	// Open SQLite with optimizations
	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&User{},
		&Medication{},
		&MedicationLog{},
		&Subscription{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	store := &Store{
		db:     db,
		badger: badgerDB,
		config: &cfg.Storage,
	}

	if err := store.createDefaultUser(); err != nil {
		return nil, fmt.Errorf("failed to create default user: %w", err)
	}

	return store, nil
}

// Close closes all database connections
func (s *Store) Close() error {
	if s.badger == nil {
		return nil
	}
	return s.badger.Close()
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Badger returns the BadgerDB instance
func (s *Store) Badger() *badger.DB {
	return s.badger
}

// createDefaultUser creates a default user if the database is empty
func (s *Store) createDefaultUser() error {
	var count int64
	if err := s.db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		user := &User{
			ID:          DefaultUserID,
			DisplayName: "User",
			Preferences: []byte(`{}`),
		}
		return s.db.Create(user).Error
	}

	return nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when not found.
func (s *Store) GetUser(id string) (*User, error) {
	var user User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ==================== Medication Methods ====================

// CreateMedication validates and persists a new medication.
func (s *Store) CreateMedication(med *Medication) error {
	if err := validateMedication(med); err != nil {
		return err
	}
	return s.db.Create(med).Error
}

// GetMedication retrieves a medication scoped to its owner.
// Returns (nil, nil) when not found.
func (s *Store) GetMedication(userID, id string) (*Medication, error) {
	var med Medication
	err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&med).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &med, nil
}

// ListMedications lists all medications for a user, oldest first.
func (s *Store) ListMedications(userID string) ([]Medication, error) {
	var meds []Medication
	err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&meds).Error
	return meds, err
}

// UpdateMedication validates and saves changes to a medication.
func (s *Store) UpdateMedication(med *Medication) error {
	if err := validateMedication(med); err != nil {
		return err
	}
	return s.db.Save(med).Error
}

// validateMedication rejects malformed records before they reach the
// database, so the occurrence predicate never sees an invalid rule.
func validateMedication(med *Medication) error {
	if med.Name == "" {
		return apperrors.New("MED_002", "medication name is required")
	}
	if med.Dosage.Amount <= 0 {
		return apperrors.New("MED_002", "dose amount must be positive")
	}
	switch med.Dosage.Unit {
	case UnitPill, UnitMl, UnitMg:
	default:
		return apperrors.New("MED_002", fmt.Sprintf("unknown dose unit %q", med.Dosage.Unit))
	}
	if med.Dosage.Concentration < 0 {
		return apperrors.New("MED_002", "concentration cannot be negative")
	}
	if med.Inventory < 0 {
		return apperrors.New("MED_002", "inventory cannot be negative")
	}
	return med.Schedule.Validate()
}

// ==================== Log Methods ====================

// CreateLog persists a new medication log entry.
func (s *Store) CreateLog(log *MedicationLog) error {
	return s.db.Create(log).Error
}

// GetLog retrieves a log entry scoped to its owner.
// Returns (nil, nil) when not found.
func (s *Store) GetLog(userID, id string) (*MedicationLog, error) {
	var log MedicationLog
	err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// ListLogs lists all logs for a user, newest first.
func (s *Store) ListLogs(userID string) ([]MedicationLog, error) {
	var logs []MedicationLog
	err := s.db.Where("user_id = ?", userID).Order("timestamp DESC").Find(&logs).Error
	return logs, err
}

// LogsBetween lists a user's logs with timestamps in [from, to).
func (s *Store) LogsBetween(userID string, from, to time.Time) ([]MedicationLog, error) {
	var logs []MedicationLog
	err := s.db.Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, from, to).
		Order("timestamp ASC").
		Find(&logs).Error
	return logs, err
}

// LogsForMedicationBetween lists one medication's logs in [from, to),
// most recently created first.
func (s *Store) LogsForMedicationBetween(userID, medicationID string, from, to time.Time) ([]MedicationLog, error) {
	var logs []MedicationLog
	err := s.db.Where("user_id = ? AND medication_id = ? AND timestamp >= ? AND timestamp < ?",
		userID, medicationID, from, to).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// ==================== Subscription Methods ====================

// GetSubscription returns the billing record for a user, (nil, nil) if none.
func (s *Store) GetSubscription(userID string) (*Subscription, error) {
	var sub Subscription
	err := s.db.First(&sub, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription creates or replaces the billing record for a user.
func (s *Store) UpsertSubscription(sub *Subscription) error {
	return s.db.Save(sub).Error
}

// ==================== Session Methods (BadgerDB) ====================

// SetSession stores session data in BadgerDB
func (s *Store) SetSession(key string, value []byte, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("session:"+key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// GetSession retrieves session data from BadgerDB
func (s *Store) GetSession(key string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("session:" + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	return val, err
}

// DeleteSession removes session data
func (s *Store) DeleteSession(key string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte("session:" + key))
	})
}

// ==================== KV Methods (BadgerDB) ====================

// SetKV stores a key-value pair with an optional TTL (0 = no expiry).
func (s *Store) SetKV(key string, value []byte, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte("kv:"+key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// GetKV retrieves a value by key. Returns (nil, nil) when the key is absent.
func (s *Store) GetKV(key string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("kv:" + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return val, err
}
