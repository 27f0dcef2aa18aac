package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cosmossdk.io/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is a key-value row.
type Record struct {
	Key       string    `gorm:"primaryKey"`
	Value     []byte    `gorm:"type:blob;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SecretRecord is a secret-store row.
type SecretRecord struct {
	Service   string    `gorm:"primaryKey"`
	Username  string    `gorm:"not null"`
	Password  string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SQLiteStore persists records and secrets in a SQLite file.
type SQLiteStore struct {
	db *gorm.DB
}

var (
	_ KeyValueStore = (*SQLiteStore)(nil)
	_ SecretStore   = (*SQLiteStore)(nil)
)

// OpenSQLite opens or creates the database at path and migrates it. An empty
// path opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file::memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if path == "" {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Record{}, &SecretRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&rec).Error
	if errors.IsOf(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.Value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: key, Value: value}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).
		Error
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where(map[string]any{"key": key}).Delete(&Record{}).Error
}

func (s *SQLiteStore) GetSecret(ctx context.Context, service string) (*Secret, error) {
	var rec SecretRecord
	err := s.db.WithContext(ctx).Where(map[string]any{"service": service}).First(&rec).Error
	if errors.IsOf(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Secret{Username: rec.Username, Password: rec.Password}, nil
}

func (s *SQLiteStore) SetSecret(ctx context.Context, service string, secret Secret) error {
	rec := SecretRecord{Service: service, Username: secret.Username, Password: secret.Password}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).
		Error
}

func (s *SQLiteStore) DeleteSecret(ctx context.Context, service string) error {
	return s.db.WithContext(ctx).Where(map[string]any{"service": service}).Delete(&SecretRecord{}).Error
}
