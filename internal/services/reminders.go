package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/models"
)

const (
	DoseReminderIDPrefix = "dose-reminder-"
	SkinReminderID       = "skin-reminder-daily"
)

// ReminderScheduler is the device's local notification primitive. It has no
// listing API: entries can only be created or cancelled by id.
type ReminderScheduler interface {
	ScheduleAt(ctx context.Context, id string, at time.Time, payload models.ReminderPayload) error
	Cancel(ctx context.Context, id string) error
	ScheduleRepeatingDaily(ctx context.Context, id string, hour int, minute int, payload models.ReminderPayload) error
	PermissionState(ctx context.Context) (models.PermissionState, error)
	RequestPermission(ctx context.Context) (models.PermissionState, error)
}

func DoseReminderID(day time.Time) string {
	return DoseReminderIDPrefix + DayKey(day)
}

type ReconcileInput struct {
	// Window holds the upcoming dose days.
	Window []time.Time
	// Retired holds dates whose reminders must go even though they left the window.
	Retired     []time.Time
	Taken       func(day time.Time) bool
	Preferences models.NotificationPreferences
	Now         time.Time
	// ResetWindow cancels every window id not already armed this session at
	// the wanted instant, covering entries left by an earlier process.
	ResetWindow bool
}

type ReconcileResult struct {
	Scheduled  int `json:"scheduled"`
	Cancelled  int `json:"cancelled"`
	Suppressed int `json:"suppressed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (result *ReconcileResult) add(other ReconcileResult) {
	result.Scheduled += other.Scheduled
	result.Cancelled += other.Cancelled
	result.Suppressed += other.Suppressed
	result.Skipped += other.Skipped
	result.Failed += other.Failed
}

type desireKind int

const (
	desireCancel desireKind = iota
	desireSchedule
	desireSuppress
)

type desiredReminder struct {
	kind desireKind
	day  time.Time
	at   time.Time
}

// armedEntry is what this process last told the scheduler for an id.
type armedEntry struct {
	cancelled bool
	at        time.Time
	hour      int
	minute    int
}

// ReminderSynchronizer reconciles the scheduler against the current state.
// Every command is keyed by a deterministic id, so repeated calls converge.
// The memo only reflects commands that succeeded in this process; it never
// claims knowledge of entries armed by an earlier one.
type ReminderSynchronizer struct {
	scheduler ReminderScheduler
	location  *time.Location
	memo      map[string]armedEntry
}

func NewReminderSynchronizer(scheduler ReminderScheduler, location *time.Location) *ReminderSynchronizer {
	if location == nil {
		location = time.UTC
	}
	return &ReminderSynchronizer{
		scheduler: scheduler,
		location:  location,
		memo:      make(map[string]armedEntry),
	}
}

// Reconcile never fails as a whole; each id is handled on its own.
func (service *ReminderSynchronizer) Reconcile(ctx context.Context, input ReconcileInput) ReconcileResult {
	desired := make(map[string]desiredReminder, len(input.Window)+len(input.Retired))
	for _, day := range input.Retired {
		desired[DoseReminderID(day)] = desiredReminder{kind: desireCancel, day: day}
	}
	for _, day := range input.Window {
		desired[DoseReminderID(day)] = service.desireFor(day, true, input.Taken != nil && input.Taken(day), input.Preferences, input.Now)
	}
	for id, entry := range service.memo {
		if !strings.HasPrefix(id, DoseReminderIDPrefix) || entry.cancelled {
			continue
		}
		if _, wanted := desired[id]; !wanted {
			desired[id] = desiredReminder{kind: desireCancel}
		}
	}

	ids := make([]string, 0, len(desired))
	for id := range desired {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result ReconcileResult
	for _, id := range ids {
		result.add(service.apply(ctx, id, desired[id], input.ResetWindow))
	}
	result.add(service.reconcileSkin(ctx, input.Preferences))

	for id, entry := range service.memo {
		if _, wanted := desired[id]; !wanted && entry.cancelled && id != SkinReminderID {
			delete(service.memo, id)
		}
	}
	return result
}

// Forget drops the session memo. The next reconcile commands every id again.
func (service *ReminderSynchronizer) Forget() {
	service.memo = make(map[string]armedEntry)
}

// SyncDate is the single-date path used when today's taken state flips.
func (service *ReminderSynchronizer) SyncDate(ctx context.Context, day time.Time, isDoseDay bool, taken bool, preferences models.NotificationPreferences, now time.Time) ReconcileResult {
	return service.apply(ctx, DoseReminderID(day), service.desireFor(day, isDoseDay, taken, preferences, now), false)
}

func (service *ReminderSynchronizer) desireFor(day time.Time, isDoseDay bool, taken bool, preferences models.NotificationPreferences, now time.Time) desiredReminder {
	if !preferences.Enabled || !preferences.MedicationReminderEnabled || !isDoseDay || taken {
		return desiredReminder{kind: desireCancel, day: day}
	}
	year, month, date := day.Date()
	at := time.Date(year, month, date, preferences.ReminderTime.Hour, preferences.ReminderTime.Minute, 0, 0, service.location)
	if at.Before(now) {
		return desiredReminder{kind: desireSuppress, day: day, at: at}
	}
	return desiredReminder{kind: desireSchedule, day: day, at: at}
}

func (service *ReminderSynchronizer) apply(ctx context.Context, id string, want desiredReminder, reset bool) ReconcileResult {
	var result ReconcileResult
	entry, known := service.memo[id]

	switch want.kind {
	case desireSchedule:
		if known && !entry.cancelled && entry.at.Equal(want.at) {
			result.Skipped++
			return result
		}
		if (known && !entry.cancelled) || (!known && reset) {
			// the stale entry goes first so a failed reschedule never leaves the old time armed
			if !service.cancel(ctx, id, &result) {
				return result
			}
		}
		payload := doseReminderPayload(want.day, want.at)
		if err := service.scheduler.ScheduleAt(ctx, id, want.at, payload); err != nil {
			logger.Warn("reminders: schedule failed", "id", id, "at", want.at, "err", err)
			delete(service.memo, id)
			result.Failed++
			return result
		}
		service.memo[id] = armedEntry{at: want.at}
		result.Scheduled++
	case desireSuppress:
		result.Suppressed++
		if (known && !entry.cancelled && !entry.at.Equal(want.at)) || (!known && reset) {
			service.cancel(ctx, id, &result)
		}
	default:
		if known && entry.cancelled {
			result.Skipped++
			return result
		}
		service.cancel(ctx, id, &result)
	}
	return result
}

func (service *ReminderSynchronizer) cancel(ctx context.Context, id string, result *ReconcileResult) bool {
	if err := service.scheduler.Cancel(ctx, id); err != nil {
		logger.Warn("reminders: cancel failed", "id", id, "err", err)
		delete(service.memo, id)
		result.Failed++
		return false
	}
	service.memo[id] = armedEntry{cancelled: true}
	result.Cancelled++
	return true
}

func (service *ReminderSynchronizer) reconcileSkin(ctx context.Context, preferences models.NotificationPreferences) ReconcileResult {
	var result ReconcileResult
	entry, known := service.memo[SkinReminderID]

	if !preferences.Enabled || !preferences.SkinReminderEnabled {
		if known && entry.cancelled {
			result.Skipped++
			return result
		}
		service.cancel(ctx, SkinReminderID, &result)
		return result
	}

	hour, minute := preferences.SkinReminderTime.Hour, preferences.SkinReminderTime.Minute
	if known && !entry.cancelled && entry.hour == hour && entry.minute == minute {
		result.Skipped++
		return result
	}
	if err := service.scheduler.ScheduleRepeatingDaily(ctx, SkinReminderID, hour, minute, skinReminderPayload(hour, minute)); err != nil {
		logger.Warn("reminders: schedule skin reminder failed", "id", SkinReminderID, "err", err)
		delete(service.memo, SkinReminderID)
		result.Failed++
		return result
	}
	service.memo[SkinReminderID] = armedEntry{hour: hour, minute: minute}
	result.Scheduled++
	return result
}

func doseReminderPayload(day time.Time, at time.Time) models.ReminderPayload {
	return models.ReminderPayload{
		Kind:       models.ReminderKindDose,
		Date:       DayKey(day),
		Title:      "Time for your dose",
		Body:       fmt.Sprintf("Today is a dose day. Take your medication and mark it done (%s).", at.Format("15:04")),
		DeliveryID: uuid.NewString(),
	}
}

func skinReminderPayload(hour int, minute int) models.ReminderPayload {
	return models.ReminderPayload{
		Kind:       models.ReminderKindSkin,
		Title:      "How is your skin today?",
		Body:       fmt.Sprintf("Log today's skin condition (%02d:%02d).", hour, minute),
		DeliveryID: uuid.NewString(),
	}
}
