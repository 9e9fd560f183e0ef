package prefs

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// prefRow maps to the prefs table.
type prefRow struct {
	Key       string `gorm:"primaryKey"`
	Kind      string `gorm:"not null"`
	Int       int
	Float     float64
	String    string
	UpdatedAt time.Time
}

// TableName overrides the table name to 'prefs'
func (prefRow) TableName() string {
	return "prefs"
}

// SQLiteStore keeps preferences in a SQLite table. Every Set is written
// through immediately.
type SQLiteStore struct {
	db  *gorm.DB
	dsn string
}

// OpenSQLiteStore opens (creating if needed) the database at dsn.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("prefs: open sqlite %s: %w", dsn, err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	s.dsn = dsn
	return s, nil
}

// NewSQLiteStore uses an already opened database and migrates the prefs table.
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if err := db.AutoMigrate(&prefRow{}); err != nil {
		return nil, fmt.Errorf("prefs: migrate: %w", err)
	}
	return &SQLiteStore{db: db, dsn: db.Name()}, nil
}

func (s *SQLiteStore) read(key string) (prefRow, bool) {
	var row prefRow
	// Find instead of First: a missing key is normal and should not log.
	result := s.db.Where("key = ?", key).Limit(1).Find(&row)
	if result.Error != nil {
		slog.Warn("prefs: sqlite read failed, using default", "key", key, "err", result.Error)
		return prefRow{}, false
	}
	return row, result.RowsAffected > 0
}

func (s *SQLiteStore) GetInt(key string, def int) int {
	if row, ok := s.read(key); ok && Kind(row.Kind) == KindInt {
		return row.Int
	}
	return def
}

func (s *SQLiteStore) GetFloat(key string, def float64) float64 {
	if row, ok := s.read(key); ok && Kind(row.Kind) == KindFloat {
		return row.Float
	}
	return def
}

func (s *SQLiteStore) GetString(key string, def string) string {
	if row, ok := s.read(key); ok && Kind(row.Kind) == KindString {
		return row.String
	}
	return def
}

func (s *SQLiteStore) SetInt(key string, v int) error {
	return s.write(prefRow{Key: key, Kind: string(KindInt), Int: v})
}

func (s *SQLiteStore) SetFloat(key string, v float64) error {
	if err := checkFloat(key, v); err != nil {
		return err
	}
	return s.write(prefRow{Key: key, Kind: string(KindFloat), Float: v})
}

func (s *SQLiteStore) SetString(key string, v string) error {
	return s.write(prefRow{Key: key, Kind: string(KindString), String: v})
}

func (s *SQLiteStore) write(row prefRow) error {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "int", "float", "string", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("prefs: write key %s: %w", row.Key, result.Error)
	}
	return nil
}

func (s *SQLiteStore) HasKey(key string) bool {
	_, ok := s.read(key)
	return ok
}

func (s *SQLiteStore) DeleteKey(key string) error {
	if err := s.db.Where("key = ?", key).Delete(&prefRow{}).Error; err != nil {
		return fmt.Errorf("prefs: delete key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Keys() []string {
	var keys []string
	if err := s.db.Model(&prefRow{}).Order("key").Pluck("key", &keys).Error; err != nil {
		slog.Warn("prefs: sqlite list keys failed", "err", err)
		return nil
	}
	return keys
}

// Path returns the database DSN.
func (s *SQLiteStore) Path() string { return s.dsn }

// Flush is a no-op: every write is already committed.
func (s *SQLiteStore) Flush() error { return nil }

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure SQLiteStore implements prefs.Store
var _ Store = (*SQLiteStore)(nil)
