package db

import (
	"context"
	"errors"
	"time"

	"github.com/hyson0807/isolog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVRepository stores one JSON document per logical entity.
type KVRepository struct {
	database *gorm.DB
}

func NewKVRepository(database *gorm.DB) *KVRepository {
	return &KVRepository{database: database}
}

// Get returns the stored value and whether the key exists.
func (repo *KVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.KVEntry
	err := repo.database.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

// Set overwrites the value stored under key.
func (repo *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now().UTC(),
	}
	return repo.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}
