package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is the single table backing GORMKeyValueStore.
type KVEntry struct {
	Key   string `gorm:"column:kv_key;primaryKey;type:text"`
	Value string `gorm:"column:kv_value;type:text;not null"`
}

// TableName pins the table name regardless of naming strategy.
func (KVEntry) TableName() string {
	return "kv_entries"
}

// GORMKeyValueStore is a GORM implementation of KeyValueStore. It works with both
// the SQLite and the PostgreSQL drivers.
type GORMKeyValueStore struct {
	db *gorm.DB
}

// NewGORMKeyValueStore creates a GORMKeyValueStore and migrates its table.
func NewGORMKeyValueStore(db *gorm.DB) (*GORMKeyValueStore, error) {
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv table: %w", err)
	}
	return &GORMKeyValueStore{
		db: db,
	}, nil
}

// Get retrieves the value for key.
func (s *GORMKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	var entry KVEntry
	if err := s.db.WithContext(ctx).First(&entry, "kv_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("key %s: %w", key, errs.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return entry.Value, nil
}

// Set upserts key in a single statement.
func (s *GORMKeyValueStore) Set(ctx context.Context, key, value string) error {
	entry := KVEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent inserts key unless it already exists.
func (s *GORMKeyValueStore) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	entry := KVEntry{Key: key, Value: value}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, fmt.Errorf("failed to set key %s: %w", key, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes key.
func (s *GORMKeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&KVEntry{}, "kv_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Scan returns all entries under prefix ordered by key. It compares a substring instead of
// using LIKE so that '%' and '_' in keys need no escaping and matching stays case-sensitive.
func (s *GORMKeyValueStore) Scan(ctx context.Context, prefix string) ([]KeyValue, error) {
	var entries []KVEntry
	err := s.db.WithContext(ctx).
		Where("substr(kv_key, 1, ?) = ?", prefixLen(prefix), prefix).
		Order("kv_key").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}

	out := make([]KeyValue, 0, len(entries))
	for _, e := range entries {
		out = append(out, KeyValue{Key: e.Key, Value: e.Value})
	}
	return out, nil
}
