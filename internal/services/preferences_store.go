package services

import (
	"context"
	"errors"

	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/models"
)

var ErrInvalidReminderTime = errors.New("invalid reminder time")

// PreferencesUpdate carries a partial change; nil fields are left alone.
type PreferencesUpdate struct {
	Enabled                   *bool             `json:"enabled"`
	ReminderTime              *models.ClockTime `json:"reminder_time"`
	MedicationReminderEnabled *bool             `json:"medication_reminder_enabled"`
	SkinReminderEnabled       *bool             `json:"skin_reminder_enabled"`
	SkinReminderTime          *models.ClockTime `json:"skin_reminder_time"`
}

type PreferencesStore struct {
	writer      *WriteBehind
	preferences models.NotificationPreferences
}

func NewPreferencesStore(writer *WriteBehind) *PreferencesStore {
	return &PreferencesStore{
		writer:      writer,
		preferences: models.DefaultNotificationPreferences(),
	}
}

// Load reads the current key, falling back to the legacy single-toggle key.
// A migrated legacy value is written under the current key.
func (store *PreferencesStore) Load(ctx context.Context, kv KeyValueStore) {
	var current models.NotificationPreferences
	if loadJSON(ctx, kv, KeyNotificationPreferences, &current) {
		store.preferences = sanitizePreferences(current)
		return
	}

	var legacy models.LegacyNotificationSettings
	if !loadJSON(ctx, kv, KeyLegacyNotification, &legacy) {
		return
	}
	migrated := models.DefaultNotificationPreferences()
	migrated.Enabled = legacy.Enabled
	if clock := (models.ClockTime{Hour: legacy.Hour, Minute: legacy.Minute}); clock.Valid() {
		migrated.ReminderTime = clock
	}
	store.preferences = migrated
	logger.Info("preferences: migrated legacy notification settings", "enabled", migrated.Enabled)
	store.persist()
}

func (store *PreferencesStore) Current() models.NotificationPreferences {
	return store.preferences
}

// Apply validates the whole update before changing anything.
func (store *PreferencesStore) Apply(update PreferencesUpdate) (models.NotificationPreferences, error) {
	if update.ReminderTime != nil && !update.ReminderTime.Valid() {
		return store.preferences, ErrInvalidReminderTime
	}
	if update.SkinReminderTime != nil && !update.SkinReminderTime.Valid() {
		return store.preferences, ErrInvalidReminderTime
	}

	next := store.preferences
	if update.Enabled != nil {
		next.Enabled = *update.Enabled
	}
	if update.ReminderTime != nil {
		next.ReminderTime = *update.ReminderTime
	}
	if update.MedicationReminderEnabled != nil {
		next.MedicationReminderEnabled = *update.MedicationReminderEnabled
	}
	if update.SkinReminderEnabled != nil {
		next.SkinReminderEnabled = *update.SkinReminderEnabled
	}
	if update.SkinReminderTime != nil {
		next.SkinReminderTime = *update.SkinReminderTime
	}

	if next != store.preferences {
		store.preferences = next
		store.persist()
	}
	return store.preferences, nil
}

func (store *PreferencesStore) SetEnabled(enabled bool) {
	if store.preferences.Enabled == enabled {
		return
	}
	store.preferences.Enabled = enabled
	store.persist()
}

func (store *PreferencesStore) persist() {
	if store.writer != nil {
		store.writer.Put(KeyNotificationPreferences, store.preferences)
	}
}

func sanitizePreferences(preferences models.NotificationPreferences) models.NotificationPreferences {
	defaults := models.DefaultNotificationPreferences()
	if !preferences.ReminderTime.Valid() {
		preferences.ReminderTime = defaults.ReminderTime
	}
	if !preferences.SkinReminderTime.Valid() {
		preferences.SkinReminderTime = defaults.SkinReminderTime
	}
	return preferences
}
