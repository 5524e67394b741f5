package services

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hyson0807/isolog/internal/models"
)

func reminderPreferences(hour int, minute int) models.NotificationPreferences {
	preferences := models.DefaultNotificationPreferences()
	preferences.Enabled = true
	preferences.ReminderTime = models.ClockTime{Hour: hour, Minute: minute}
	return preferences
}

func reminderWindow(t *testing.T, dates ...string) []time.Time {
	t.Helper()
	window := make([]time.Time, 0, len(dates))
	for _, date := range dates {
		window = append(window, mustDay(t, date))
	}
	return window
}

func takenDates(t *testing.T, dates ...string) func(time.Time) bool {
	t.Helper()
	set := make(map[string]bool, len(dates))
	for _, date := range dates {
		set[date] = true
	}
	return func(day time.Time) bool { return set[DayKey(day)] }
}

func TestReconcileSchedulesThenCancelsWhenTaken(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	today := mustDay(t, "2025-01-05")
	preferences := reminderPreferences(22, 0)

	result := synchronizer.Reconcile(context.Background(), ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-07"),
		Taken:       takenDates(t),
		Preferences: preferences,
		Now:         mustInstant(t, "2025-01-05 21:00"),
	})
	if result.Scheduled != 3 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	at, ok := scheduler.armedAt("dose-reminder-2025-01-05")
	if !ok || !at.Equal(mustInstant(t, "2025-01-05 22:00")) {
		t.Fatalf("expected today's reminder at 22:00, got %s ok=%v", at, ok)
	}
	if payload := scheduler.payloads["dose-reminder-2025-01-05"]; payload.Kind != models.ReminderKindDose || payload.Date != "2025-01-05" || payload.DeliveryID == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	synced := synchronizer.SyncDate(context.Background(), today, true, true, preferences, mustInstant(t, "2025-01-05 21:30"))
	if synced.Cancelled != 1 {
		t.Fatalf("expected a cancel after marking taken, got %+v", synced)
	}
	if _, ok := scheduler.armedAt("dose-reminder-2025-01-05"); ok {
		t.Fatalf("expected today's reminder to be cancelled")
	}
	if _, ok := scheduler.armedAt("dose-reminder-2025-01-07"); !ok {
		t.Fatalf("expected the next dose reminder to stay armed")
	}
}

func TestReconcileTwiceIssuesNoNewCommands(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	input := ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-07", "2025-01-09", "2025-01-11"),
		Taken:       takenDates(t, "2025-01-07"),
		Preferences: reminderPreferences(9, 0),
		Now:         mustInstant(t, "2025-01-05 12:00"),
	}

	first := synchronizer.Reconcile(context.Background(), input)
	before := scheduler.commandCount()
	second := synchronizer.Reconcile(context.Background(), input)

	if after := scheduler.commandCount(); after != before {
		t.Fatalf("expected no new commands, got %v", scheduler.commands[before:])
	}
	if first.Suppressed != 1 || second.Suppressed != 1 {
		t.Fatalf("expected today's past reminder to be suppressed both times: %+v %+v", first, second)
	}
	if second.Scheduled != 0 || second.Cancelled != 0 {
		t.Fatalf("unexpected second result: %+v", second)
	}
	if got, want := scheduler.armedIDs(), []string{"dose-reminder-2025-01-09", "dose-reminder-2025-01-11"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("armed ids = %v, want %v", got, want)
	}
}

func TestReconcileSuppressesPastInstant(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)

	result := synchronizer.Reconcile(context.Background(), ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05"),
		Preferences: reminderPreferences(22, 0),
		Now:         mustInstant(t, "2025-01-05 23:00"),
	})
	if result.Suppressed != 1 {
		t.Fatalf("expected suppression, got %+v", result)
	}
	for _, command := range scheduler.commands {
		if strings.HasPrefix(command, "schedule dose-reminder-2025-01-05") {
			t.Fatalf("past reminder must not be scheduled: %v", scheduler.commands)
		}
	}
}

func TestReconcileDisabledCancelsEverything(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	input := ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-07"),
		Preferences: reminderPreferences(22, 0),
		Now:         mustInstant(t, "2025-01-05 08:00"),
	}
	synchronizer.Reconcile(context.Background(), input)

	input.Preferences.Enabled = false
	result := synchronizer.Reconcile(context.Background(), input)

	if result.Cancelled != 3 {
		t.Fatalf("expected two dose cancels and the skin cancel, got %+v", result)
	}
	if len(scheduler.armedIDs()) != 0 || len(scheduler.repeating) != 0 {
		t.Fatalf("expected nothing armed, got %v %v", scheduler.armedIDs(), scheduler.repeating)
	}
}

func TestReconcileReminderTimeChangeCancelsBeforeRescheduling(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	input := ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-07"),
		Preferences: reminderPreferences(22, 0),
		Now:         mustInstant(t, "2025-01-05 21:00"),
	}
	synchronizer.Reconcile(context.Background(), input)
	before := scheduler.commandCount()

	input.Preferences.ReminderTime = models.ClockTime{Hour: 8, Minute: 0}
	synchronizer.Reconcile(context.Background(), input)

	want := []string{
		"cancel dose-reminder-2025-01-05",
		"cancel dose-reminder-2025-01-07",
		"schedule dose-reminder-2025-01-07 2025-01-07 08:00",
	}
	if got := scheduler.commands[before:]; !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	if got := scheduler.armedIDs(); !reflect.DeepEqual(got, []string{"dose-reminder-2025-01-07"}) {
		t.Fatalf("unexpected armed ids: %v", got)
	}
}

func TestReconcileIsolatesSchedulerFailures(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	scheduler.failIDs["dose-reminder-2025-01-07"] = true
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	input := ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-07", "2025-01-09"),
		Preferences: reminderPreferences(22, 0),
		Now:         mustInstant(t, "2025-01-05 08:00"),
	}

	result := synchronizer.Reconcile(context.Background(), input)
	if result.Failed != 1 || result.Scheduled != 3 {
		t.Fatalf("expected one failure and the rest scheduled, got %+v", result)
	}
	if got := scheduler.armedIDs(); !reflect.DeepEqual(got, []string{"dose-reminder-2025-01-05", "dose-reminder-2025-01-09"}) {
		t.Fatalf("unexpected armed ids: %v", got)
	}

	scheduler.mu.Lock()
	delete(scheduler.failIDs, "dose-reminder-2025-01-07")
	scheduler.mu.Unlock()

	retry := synchronizer.Reconcile(context.Background(), input)
	if retry.Scheduled != 1 || retry.Failed != 0 {
		t.Fatalf("expected the failed id to be retried, got %+v", retry)
	}
	if _, ok := scheduler.armedAt("dose-reminder-2025-01-07"); !ok {
		t.Fatalf("expected retried reminder to be armed")
	}
}

func TestReconcileCancelsRetiredAndStaleDates(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	preferences := reminderPreferences(22, 0)
	preferences.SkinReminderEnabled = false
	now := mustInstant(t, "2025-01-05 08:00")

	synchronizer.Reconcile(context.Background(), ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-07"),
		Preferences: preferences,
		Now:         now,
	})

	fresh := NewReminderSynchronizer(scheduler, time.UTC)
	fresh.Reconcile(context.Background(), ReconcileInput{
		Window:      reminderWindow(t, "2025-01-05", "2025-01-08"),
		Retired:     reminderWindow(t, "2025-01-05", "2025-01-07"),
		Preferences: preferences,
		Now:         now,
	})

	if got := scheduler.armedIDs(); !reflect.DeepEqual(got, []string{"dose-reminder-2025-01-05", "dose-reminder-2025-01-08"}) {
		t.Fatalf("unexpected armed ids: %v", got)
	}
}

func TestReconcileResetWindowCancelsUnknownEntriesFirst(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	preferences := reminderPreferences(22, 0)
	preferences.SkinReminderEnabled = false

	synchronizer.Reconcile(context.Background(), ReconcileInput{
		Window:      reminderWindow(t, "2025-01-06"),
		Preferences: preferences,
		Now:         mustInstant(t, "2025-01-05 08:00"),
		ResetWindow: true,
	})

	want := []string{
		"cancel dose-reminder-2025-01-06",
		"schedule dose-reminder-2025-01-06 2025-01-06 22:00",
		"cancel " + SkinReminderID,
	}
	if !reflect.DeepEqual(scheduler.commands, want) {
		t.Fatalf("commands = %v, want %v", scheduler.commands, want)
	}
}

func TestReconcileSkinReminderFollowsPreferences(t *testing.T) {
	t.Parallel()

	scheduler := newStubScheduler()
	synchronizer := NewReminderSynchronizer(scheduler, time.UTC)
	input := ReconcileInput{
		Preferences: reminderPreferences(9, 0),
		Now:         mustInstant(t, "2025-01-05 08:00"),
	}

	synchronizer.Reconcile(context.Background(), input)
	if got := scheduler.repeating[SkinReminderID]; got != (models.ClockTime{Hour: 21, Minute: 0}) {
		t.Fatalf("expected skin reminder at 21:00, got %+v", got)
	}

	input.Preferences.SkinReminderTime = models.ClockTime{Hour: 20, Minute: 15}
	result := synchronizer.Reconcile(context.Background(), input)
	if result.Scheduled != 1 {
		t.Fatalf("expected skin reminder to be rescheduled, got %+v", result)
	}
	if got := scheduler.repeating[SkinReminderID]; got != (models.ClockTime{Hour: 20, Minute: 15}) {
		t.Fatalf("expected skin reminder at 20:15, got %+v", got)
	}
	if payload := scheduler.payloads[SkinReminderID]; payload.Kind != models.ReminderKindSkin {
		t.Fatalf("unexpected skin payload: %+v", payload)
	}
}
