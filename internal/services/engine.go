package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/models"
)

const DefaultLookaheadDays = 7

var ErrEngineNotLoaded = errors.New("engine not loaded")

type EngineConfig struct {
	Location      *time.Location
	LookaheadDays int
	Clock         Clock
}

// DayDetail is what a day detail view needs beyond the calendar cell.
type DayDetail struct {
	DayView
	SkinRecord *models.SkinRecord `json:"skin_record,omitempty"`
}

// Engine is the single owner of schedule, adherence, conflicts, skin records
// and preferences. One mutex serializes every mutation, reconcile and
// lifecycle event, including timer callbacks.
type Engine struct {
	mu sync.Mutex

	kv        KeyValueStore
	writer    *WriteBehind
	scheduler ReminderScheduler
	location  *time.Location
	clock     Clock
	lookahead int

	adherence   *AdherenceStore
	conflicts   *ConflictStore
	skin        *SkinStore
	preferences *PreferencesStore
	reminders   *ReminderSynchronizer
	watcher     *RolloverWatcher

	permissionRequestPending bool
	loaded                   bool
	started                  bool
}

func NewEngine(kv KeyValueStore, scheduler ReminderScheduler, cfg EngineConfig) *Engine {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	lookahead := cfg.LookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultLookaheadDays
	}

	writer := NewWriteBehind(kv)
	return &Engine{
		kv:          kv,
		writer:      writer,
		scheduler:   scheduler,
		location:    location,
		clock:       clock,
		lookahead:   lookahead,
		adherence:   NewAdherenceStore(writer, location),
		conflicts:   NewConflictStore(writer, location),
		skin:        NewSkinStore(writer, location),
		preferences: NewPreferencesStore(writer),
		reminders:   NewReminderSynchronizer(scheduler, location),
		watcher:     NewRolloverWatcher(clock, location),
	}
}

// Load reads every entity once. Storage problems are logged and leave defaults.
func (engine *Engine) Load(ctx context.Context) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	engine.adherence.Load(ctx, engine.kv)
	engine.conflicts.Load(ctx, engine.kv)
	engine.skin.Load(ctx, engine.kv)
	engine.preferences.Load(ctx, engine.kv)
	engine.loaded = true
}

// Start arms the midnight watcher and runs the first reconcile.
func (engine *Engine) Start(ctx context.Context) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if !engine.loaded {
		return ErrEngineNotLoaded
	}
	if engine.started {
		return nil
	}
	engine.started = true

	today := engine.watcher.Start(func() {
		engine.handleMidnight(context.Background())
	})
	logger.Info("engine started", "today", DayKey(today), "lookahead_days", engine.lookahead)

	engine.checkPermissionLocked(ctx, false)
	engine.reconcileLocked(ctx, "startup", nil, false)
	return nil
}

// Stop disarms the watcher and drains pending writes.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	engine.started = false
	engine.watcher.Stop()
	engine.mu.Unlock()

	engine.writer.Close()
}

// Flush waits for queued persistence writes.
func (engine *Engine) Flush() {
	engine.writer.Flush()
}

func (engine *Engine) Location() *time.Location {
	return engine.location
}

func (engine *Engine) Today() time.Time {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.watcher.Today()
}

func (engine *Engine) Schedule() models.Schedule {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.adherence.Schedule()
}

func (engine *Engine) CanEdit(day time.Time) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.adherence.CanEdit(day, engine.watcher.Today())
}

// ToggleTaken flips day and reports the new state. Edit eligibility is the
// caller's check (CanEdit). Toggling today takes the single-date fast path.
func (engine *Engine) ToggleTaken(ctx context.Context, day time.Time) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	day = DateAtLocation(day, engine.location)
	taken := engine.adherence.ToggleTaken(day)
	if sameDay(day, engine.watcher.Today()) {
		result := engine.reminders.SyncDate(ctx, day, engine.adherence.IsDoseDay(day), taken, engine.preferences.Current(), engine.clock.Now())
		logger.Debug("reminders: synced today", "date", DayKey(day), "taken", taken, "scheduled", result.Scheduled, "cancelled", result.Cancelled)
	}
	return taken
}

// UpdateSchedule restarts the cycle today with the given cadence.
func (engine *Engine) UpdateSchedule(ctx context.Context, cadence models.Cadence) error {
	interval, ok := cadence.IntervalDays()
	if !ok {
		return ErrInvalidInterval
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	today := engine.watcher.Today()
	previous := engine.window(today)
	if err := engine.adherence.UpdateSchedule(interval, today); err != nil {
		return err
	}
	engine.reconcileLocked(ctx, "schedule changed", previous, false)
	return nil
}

// SeedSchedule sets the first schedule from the onboarding "last dose" date.
func (engine *Engine) SeedSchedule(ctx context.Context, cadence models.Cadence, lastDoseDate time.Time) error {
	interval, ok := cadence.IntervalDays()
	if !ok {
		return ErrInvalidInterval
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	today := engine.watcher.Today()
	previous := engine.window(today)
	if err := engine.adherence.SeedSchedule(interval, DateAtLocation(lastDoseDate, engine.location), today); err != nil {
		return err
	}
	engine.reconcileLocked(ctx, "schedule seeded", previous, false)
	return nil
}

func (engine *Engine) DayDetail(day time.Time) DayDetail {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	day = DateAtLocation(day, engine.location)
	detail := DayDetail{DayView: ResolveDay(engine.snapshotLocked(), day, true)}
	if record, ok := engine.skin.Get(day); ok {
		detail.SkinRecord = &record
	}
	return detail
}

func (engine *Engine) MonthDayViews(month time.Time) []DayView {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return BuildMonthDayViews(engine.snapshotLocked(), DateAtLocation(month, engine.location))
}

func (engine *Engine) Summary() AdherenceSummary {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return BuildAdherenceSummary(engine.snapshotLocked())
}

func (engine *Engine) UpcomingDoseDays() []time.Time {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.window(engine.watcher.Today())
}

func (engine *Engine) AddConflict(day time.Time) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.conflicts.Add(DateAtLocation(day, engine.location))
}

func (engine *Engine) RemoveConflict(day time.Time) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.conflicts.Remove(DateAtLocation(day, engine.location))
}

func (engine *Engine) ConflictDates() []string {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.conflicts.Keys()
}

func (engine *Engine) SaveSkinRecord(day time.Time, record models.SkinRecord) (models.SkinRecord, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.skin.Save(DateAtLocation(day, engine.location), record)
}

func (engine *Engine) SkinRecord(day time.Time) (models.SkinRecord, bool) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.skin.Get(DateAtLocation(day, engine.location))
}

func (engine *Engine) DeleteSkinRecord(day time.Time) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.skin.Delete(DateAtLocation(day, engine.location))
}

func (engine *Engine) Preferences() models.NotificationPreferences {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.preferences.Current()
}

// UpdatePreferences applies a partial change. Turning notifications on goes
// through the permission flow and may leave them off; that is reported through
// the returned permission state, not as an error.
func (engine *Engine) UpdatePreferences(ctx context.Context, update PreferencesUpdate) (models.NotificationPreferences, models.PermissionState, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	before := engine.preferences.Current()
	enable := update.Enabled
	update.Enabled = nil
	if _, err := engine.preferences.Apply(update); err != nil {
		return before, "", err
	}

	state := models.PermissionState("")
	if enable != nil {
		if *enable {
			state = engine.enableLocked(ctx)
		} else {
			engine.permissionRequestPending = false
			engine.preferences.SetEnabled(false)
		}
	}

	after := engine.preferences.Current()
	if after == before {
		return after, state, nil
	}
	timeChanged := after.ReminderTime != before.ReminderTime
	reason := "preferences changed"
	if timeChanged {
		reason = "reminder time changed"
	}
	engine.reconcileLocked(ctx, reason, nil, timeChanged)
	return after, state, nil
}

// BecameActive handles the host's foreground signal: today is recomputed,
// permission is rechecked on a background to active edge or while a request
// is pending, then the scheduler is reconciled.
func (engine *Engine) BecameActive(ctx context.Context) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	edge := engine.watcher.BecameActive()
	today, changed := engine.watcher.Recompute()
	if changed {
		logger.Info("engine: day changed while inactive", "today", DayKey(today))
	}
	if edge || engine.permissionRequestPending {
		engine.checkPermissionLocked(ctx, true)
	}
	engine.reconcileLocked(ctx, "became active", nil, false)
}

// PermissionChanged handles a permission report made while the engine runs.
// The scheduler may have dropped its entries, so nothing in the memo is trusted.
func (engine *Engine) PermissionChanged(ctx context.Context) ReconcileResult {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	engine.reminders.Forget()
	engine.checkPermissionLocked(ctx, false)
	return engine.reconcileLocked(ctx, "permission changed", nil, false)
}

func (engine *Engine) EnteredBackground() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.watcher.EnteredBackground()
}

// Reconcile runs a full reconcile against the current state.
func (engine *Engine) Reconcile(ctx context.Context) ReconcileResult {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.reconcileLocked(ctx, "requested", nil, false)
}

func (engine *Engine) handleMidnight(ctx context.Context) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if !engine.started {
		return
	}
	today, changed := engine.watcher.Recompute()
	if !changed {
		return
	}
	logger.Info("engine: midnight rollover", "today", DayKey(today))
	engine.reconcileLocked(ctx, "midnight", nil, false)
}

func (engine *Engine) enableLocked(ctx context.Context) models.PermissionState {
	state, err := engine.scheduler.PermissionState(ctx)
	if err != nil {
		logger.Warn("notifications: permission query failed", "err", err)
		state = models.PermissionUndetermined
	}
	if state == models.PermissionUndetermined {
		state, err = engine.scheduler.RequestPermission(ctx)
		if err != nil {
			logger.Warn("notifications: permission request failed", "err", err)
			state = models.PermissionDenied
		}
	}

	if state == models.PermissionGranted {
		engine.permissionRequestPending = false
		engine.preferences.SetEnabled(true)
		return state
	}

	// the host is expected to send the user to system settings; the next
	// foreground edge enables notifications if permission shows up
	engine.permissionRequestPending = true
	engine.preferences.SetEnabled(false)
	return state
}

// checkPermissionLocked forces enabled off when permission is denied and, on a
// foreground edge, turns it on when a pending request has since been granted.
// An undetermined state leaves enabled alone: a freshly started host has not
// answered yet, and that is not a revocation.
func (engine *Engine) checkPermissionLocked(ctx context.Context, foregroundEdge bool) {
	state, err := engine.scheduler.PermissionState(ctx)
	if err != nil {
		logger.Warn("notifications: permission query failed", "err", err)
		return
	}

	preferences := engine.preferences.Current()
	switch {
	case state == models.PermissionDenied && preferences.Enabled:
		logger.Info("notifications: permission revoked, disabling", "state", state)
		engine.preferences.SetEnabled(false)
	case state == models.PermissionGranted && !preferences.Enabled && engine.permissionRequestPending && foregroundEdge:
		logger.Info("notifications: permission granted, enabling")
		engine.permissionRequestPending = false
		engine.preferences.SetEnabled(true)
	}
}

func (engine *Engine) reconcileLocked(ctx context.Context, reason string, retired []time.Time, resetWindow bool) ReconcileResult {
	today := engine.watcher.Today()
	result := engine.reminders.Reconcile(ctx, ReconcileInput{
		Window:      engine.window(today),
		Retired:     retired,
		Taken:       engine.adherence.IsTaken,
		Preferences: engine.preferences.Current(),
		Now:         engine.clock.Now(),
		ResetWindow: resetWindow,
	})
	logger.Debug("reminders: reconciled",
		"reason", reason,
		"today", DayKey(today),
		"scheduled", result.Scheduled,
		"cancelled", result.Cancelled,
		"suppressed", result.Suppressed,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result
}

func (engine *Engine) window(today time.Time) []time.Time {
	return ScheduleWindow(engine.adherence.Schedule(), today, engine.lookahead, engine.location)
}

func (engine *Engine) snapshotLocked() CalendarSnapshot {
	firstTaken, _ := engine.adherence.FirstTakenDate()
	return CalendarSnapshot{
		Today:          engine.watcher.Today(),
		Schedule:       engine.adherence.Schedule(),
		Taken:          engine.adherence.takenSet(),
		FirstTakenDate: firstTaken,
		Conflicts:      engine.conflicts.Dates(),
	}
}

func (engine *Engine) SetNotificationsEnabled(ctx context.Context, enabled bool) (models.NotificationPreferences, models.PermissionState, error) {
	return engine.UpdatePreferences(ctx, PreferencesUpdate{Enabled: &enabled})
}

// ToggleConflict flips day in the conflict set and reports whether it is now declared.
func (engine *Engine) ToggleConflict(day time.Time) bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	day = DateAtLocation(day, engine.location)
	if engine.conflicts.Remove(day) {
		return false
	}
	engine.conflicts.Add(day)
	return true
}
