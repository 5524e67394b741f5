package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hyson0807/isolog/internal/models"
)

func mustDay(t *testing.T, raw string) time.Time {
	t.Helper()
	day, err := ParseDay(raw, time.UTC)
	if err != nil {
		t.Fatalf("parse day %q: %v", raw, err)
	}
	return day
}

func mustInstant(t *testing.T, raw string) time.Time {
	t.Helper()
	value, err := time.ParseInLocation("2006-01-02 15:04", raw, time.UTC)
	if err != nil {
		t.Fatalf("parse instant %q: %v", raw, err)
	}
	return value
}

func dayKeys(days []time.Time) []string {
	keys := make([]string, 0, len(days))
	for _, day := range days {
		keys = append(keys, DayKey(day))
	}
	return keys
}

type memoryKV struct {
	mu      sync.Mutex
	values  map[string][]byte
	writes  []string
	failSet error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string][]byte)}
}

func (store *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	value, ok := store.values[key]
	return value, ok, nil
}

func (store *memoryKV) Set(_ context.Context, key string, value []byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failSet != nil {
		return store.failSet
	}
	store.values[key] = append([]byte(nil), value...)
	store.writes = append(store.writes, key)
	return nil
}

func (store *memoryKV) raw(key string) string {
	store.mu.Lock()
	defer store.mu.Unlock()
	return string(store.values[key])
}

type stubScheduler struct {
	mu         sync.Mutex
	armed      map[string]time.Time
	repeating  map[string]models.ClockTime
	payloads   map[string]models.ReminderPayload
	commands   []string
	failIDs    map[string]bool
	permission models.PermissionState
	requested  models.PermissionState
	requests   int
}

func newStubScheduler() *stubScheduler {
	return &stubScheduler{
		armed:      make(map[string]time.Time),
		repeating:  make(map[string]models.ClockTime),
		payloads:   make(map[string]models.ReminderPayload),
		failIDs:    make(map[string]bool),
		permission: models.PermissionGranted,
		requested:  models.PermissionGranted,
	}
}

var errSchedulerRejected = errors.New("scheduler rejected")

func (scheduler *stubScheduler) ScheduleAt(_ context.Context, id string, at time.Time, payload models.ReminderPayload) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.commands = append(scheduler.commands, "schedule "+id+" "+at.Format("2006-01-02 15:04"))
	if scheduler.failIDs[id] {
		return errSchedulerRejected
	}
	scheduler.armed[id] = at
	scheduler.payloads[id] = payload
	return nil
}

func (scheduler *stubScheduler) Cancel(_ context.Context, id string) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.commands = append(scheduler.commands, "cancel "+id)
	if scheduler.failIDs[id] {
		return errSchedulerRejected
	}
	delete(scheduler.armed, id)
	delete(scheduler.repeating, id)
	delete(scheduler.payloads, id)
	return nil
}

func (scheduler *stubScheduler) ScheduleRepeatingDaily(_ context.Context, id string, hour int, minute int, payload models.ReminderPayload) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.commands = append(scheduler.commands, "repeat "+id)
	if scheduler.failIDs[id] {
		return errSchedulerRejected
	}
	scheduler.repeating[id] = models.ClockTime{Hour: hour, Minute: minute}
	scheduler.payloads[id] = payload
	return nil
}

func (scheduler *stubScheduler) PermissionState(context.Context) (models.PermissionState, error) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.permission, nil
}

func (scheduler *stubScheduler) RequestPermission(context.Context) (models.PermissionState, error) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.requests++
	scheduler.permission = scheduler.requested
	return scheduler.permission, nil
}

func (scheduler *stubScheduler) setPermission(state models.PermissionState) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.permission = state
}

// dropAll loses every entry without the engine issuing a command.
func (scheduler *stubScheduler) dropAll() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.armed = make(map[string]time.Time)
	scheduler.repeating = make(map[string]models.ClockTime)
}

func (scheduler *stubScheduler) commandCount() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return len(scheduler.commands)
}

func (scheduler *stubScheduler) armedIDs() []string {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	ids := make([]string, 0, len(scheduler.armed))
	for id := range scheduler.armed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (scheduler *stubScheduler) armedAt(id string) (time.Time, bool) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	at, ok := scheduler.armed[id]
	return at, ok
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	at       time.Time
	callback func()
	done     bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) AfterFunc(delay time.Duration, callback func()) Timer {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	timer := &fakeTimer{clock: clock, at: clock.now.Add(delay), callback: callback}
	clock.timers = append(clock.timers, timer)
	return timer
}

func (timer *fakeTimer) Stop() bool {
	timer.clock.mu.Lock()
	defer timer.clock.mu.Unlock()
	wasPending := !timer.done
	timer.done = true
	return wasPending
}

// Advance moves the clock and runs every timer that came due, in deadline order.
func (clock *fakeClock) Advance(delay time.Duration) {
	clock.mu.Lock()
	clock.now = clock.now.Add(delay)
	var due []*fakeTimer
	pending := clock.timers[:0]
	for _, timer := range clock.timers {
		switch {
		case timer.done:
		case !timer.at.After(clock.now):
			timer.done = true
			due = append(due, timer)
		default:
			pending = append(pending, timer)
		}
	}
	clock.timers = pending
	clock.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.callback()
	}
}

func (clock *fakeClock) pending() []time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	var deadlines []time.Time
	for _, timer := range clock.timers {
		if !timer.done {
			deadlines = append(deadlines, timer.at)
		}
	}
	return deadlines
}
