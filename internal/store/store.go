package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/regimen-health/regimen/internal/config"
)

// Store provides unified access to SQLite and the BadgerDB cache
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	config *config.StorageConfig
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "regimen.db")
	}

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

	if err := migrate(db); err != nil {
		return nil, err
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

	return &Store{
		db:     db,
		badger: badgerDB,
		config: &cfg.Storage,
	}, nil
}

// NewWithDB wraps an existing gorm DB without a badger cache, for tests
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Condition{},
		&Treatment{},
		&CompletionEvent{},
		&UserProfile{},
		&CorpusEntry{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes all database connections
func (s *Store) Close() error {
	if s.badger != nil {
		return s.badger.Close()
	}
	return nil
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Badger returns the BadgerDB instance, nil when running without a cache
func (s *Store) Badger() *badger.DB {
	return s.badger
}

// ==================== Profile Methods ====================

// GetProfile fetches a user profile, nil when absent
func (s *Store) GetProfile(userID string) (*UserProfile, error) {
	var profile UserProfile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or updates a user profile
func (s *Store) UpsertProfile(profile *UserProfile) error {
	existing, err := s.GetProfile(profile.UserID)
	if err != nil {
		return err
	}
	now := time.Now()
	profile.UpdatedAt = now
	if existing == nil {
		profile.CreatedAt = now
		return s.db.Create(profile).Error
	}
	profile.CreatedAt = existing.CreatedAt
	return s.db.Save(profile).Error
}

// ListReminderProfiles returns profiles with reminders enabled
func (s *Store) ListReminderProfiles() ([]UserProfile, error) {
	var profiles []UserProfile
	err := s.db.Where("enable_reminders = ?", true).Find(&profiles).Error
	return profiles, err
}
