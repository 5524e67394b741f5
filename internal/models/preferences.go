package models

type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (clock ClockTime) Valid() bool {
	return clock.Hour >= 0 && clock.Hour <= 23 && clock.Minute >= 0 && clock.Minute <= 59
}

type NotificationPreferences struct {
	Enabled                   bool      `json:"enabled"`
	ReminderTime              ClockTime `json:"reminder_time"`
	MedicationReminderEnabled bool      `json:"medication_reminder_enabled"`
	SkinReminderEnabled       bool      `json:"skin_reminder_enabled"`
	SkinReminderTime          ClockTime `json:"skin_reminder_time"`
}

func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Enabled:                   false,
		ReminderTime:              ClockTime{Hour: 9, Minute: 0},
		MedicationReminderEnabled: true,
		SkinReminderEnabled:       true,
		SkinReminderTime:          ClockTime{Hour: 21, Minute: 0},
	}
}

// LegacyNotificationSettings is the single-toggle format written by older builds.
type LegacyNotificationSettings struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
	Minute  int  `json:"minute"`
}
