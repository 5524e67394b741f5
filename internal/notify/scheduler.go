package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyson0807/isolog/internal/logger"
	"github.com/hyson0807/isolog/internal/models"
	"github.com/robfig/cron/v3"
)

var (
	ErrPermissionNotGranted = errors.New("notification permission not granted")
	ErrInvalidReminderTime  = errors.New("invalid reminder time")
)

const deliveryTimeout = 15 * time.Second

// Dispatcher delivers a fired reminder to the user.
type Dispatcher interface {
	Deliver(ctx context.Context, payload models.ReminderPayload) error
}

type stopper interface {
	Stop() bool
}

type oneShot struct {
	timer   stopper
	seq     uint64
	at      time.Time
	payload models.ReminderPayload
}

type repeating struct {
	entry   cron.EntryID
	hour    int
	minute  int
	payload models.ReminderPayload
}

// ArmedReminder describes one live scheduler entry.
type ArmedReminder struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at,omitempty"`
	Repeating bool      `json:"repeating"`
	Hour      int       `json:"hour,omitempty"`
	Minute    int       `json:"minute,omitempty"`
}

// LocalScheduler is the process-local notification queue. One-shot entries are
// timers; the repeating entry runs on a cron in the configured location.
type LocalScheduler struct {
	mu         sync.Mutex
	location   *time.Location
	dispatcher Dispatcher
	cron       *cron.Cron
	permission models.PermissionState
	oneShots   map[string]oneShot
	repeats    map[string]repeating
	seq        uint64

	now       func() time.Time
	afterFunc func(time.Duration, func()) stopper
}

func NewLocalScheduler(location *time.Location, dispatcher Dispatcher) *LocalScheduler {
	if location == nil {
		location = time.Local
	}
	return &LocalScheduler{
		location:   location,
		dispatcher: dispatcher,
		cron:       cron.New(cron.WithLocation(location)),
		permission: models.PermissionUndetermined,
		oneShots:   make(map[string]oneShot),
		repeats:    make(map[string]repeating),
		now:        time.Now,
		afterFunc: func(delay time.Duration, callback func()) stopper {
			return time.AfterFunc(delay, callback)
		},
	}
}

func (scheduler *LocalScheduler) Start() {
	scheduler.cron.Start()
}

// Stop halts the cron and disarms every one-shot entry.
func (scheduler *LocalScheduler) Stop() {
	<-scheduler.cron.Stop().Done()

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	for id, entry := range scheduler.oneShots {
		entry.timer.Stop()
		delete(scheduler.oneShots, id)
	}
}

func (scheduler *LocalScheduler) ScheduleAt(_ context.Context, id string, at time.Time, payload models.ReminderPayload) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.permission != models.PermissionGranted {
		return ErrPermissionNotGranted
	}
	scheduler.cancelLocked(id)

	delay := at.Sub(scheduler.now())
	if delay < 0 {
		delay = 0
	}
	scheduler.seq++
	seq := scheduler.seq
	timer := scheduler.afterFunc(delay, func() {
		scheduler.fireOneShot(id, seq)
	})
	scheduler.oneShots[id] = oneShot{timer: timer, seq: seq, at: at, payload: payload}
	logger.Debug("scheduler: armed", "id", id, "at", at.In(scheduler.location).Format(time.RFC3339))
	return nil
}

func (scheduler *LocalScheduler) Cancel(_ context.Context, id string) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.cancelLocked(id)
	return nil
}

func (scheduler *LocalScheduler) ScheduleRepeatingDaily(_ context.Context, id string, hour int, minute int, payload models.ReminderPayload) error {
	if !(models.ClockTime{Hour: hour, Minute: minute}).Valid() {
		return ErrInvalidReminderTime
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.permission != models.PermissionGranted {
		return ErrPermissionNotGranted
	}
	scheduler.cancelLocked(id)

	entry, err := scheduler.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
		scheduler.fireRepeating(id)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", id, err)
	}
	scheduler.repeats[id] = repeating{entry: entry, hour: hour, minute: minute, payload: payload}
	logger.Debug("scheduler: armed daily", "id", id, "time", fmt.Sprintf("%02d:%02d", hour, minute))
	return nil
}

func (scheduler *LocalScheduler) PermissionState(context.Context) (models.PermissionState, error) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.permission, nil
}

// RequestPermission grants delivery when a dispatcher is configured. An answer
// already given is returned unchanged.
func (scheduler *LocalScheduler) RequestPermission(context.Context) (models.PermissionState, error) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.permission != models.PermissionUndetermined {
		return scheduler.permission, nil
	}
	if scheduler.dispatcher == nil {
		scheduler.permission = models.PermissionDenied
	} else {
		scheduler.permission = models.PermissionGranted
	}
	return scheduler.permission, nil
}

// SetPermission records a permission change made outside the engine. Losing
// permission disarms everything.
func (scheduler *LocalScheduler) SetPermission(state models.PermissionState) error {
	if !state.Valid() {
		return fmt.Errorf("unknown permission state %q", state)
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	scheduler.permission = state
	if state == models.PermissionGranted {
		return nil
	}
	for id := range scheduler.oneShots {
		scheduler.cancelLocked(id)
	}
	for id := range scheduler.repeats {
		scheduler.cancelLocked(id)
	}
	return nil
}

func (scheduler *LocalScheduler) Armed() []ArmedReminder {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	armed := make([]ArmedReminder, 0, len(scheduler.oneShots)+len(scheduler.repeats))
	for id, entry := range scheduler.oneShots {
		armed = append(armed, ArmedReminder{ID: id, Kind: string(entry.payload.Kind), At: entry.at.In(scheduler.location)})
	}
	for id, entry := range scheduler.repeats {
		armed = append(armed, ArmedReminder{ID: id, Kind: string(entry.payload.Kind), Repeating: true, Hour: entry.hour, Minute: entry.minute})
	}
	sort.Slice(armed, func(i, j int) bool { return armed[i].ID < armed[j].ID })
	return armed
}

func (scheduler *LocalScheduler) cancelLocked(id string) {
	if entry, ok := scheduler.oneShots[id]; ok {
		entry.timer.Stop()
		delete(scheduler.oneShots, id)
	}
	if entry, ok := scheduler.repeats[id]; ok {
		scheduler.cron.Remove(entry.entry)
		delete(scheduler.repeats, id)
	}
}

func (scheduler *LocalScheduler) fireOneShot(id string, seq uint64) {
	scheduler.mu.Lock()
	entry, ok := scheduler.oneShots[id]
	if !ok || entry.seq != seq {
		scheduler.mu.Unlock()
		return
	}
	delete(scheduler.oneShots, id)
	scheduler.mu.Unlock()

	scheduler.deliver(id, entry.payload)
}

func (scheduler *LocalScheduler) fireRepeating(id string) {
	scheduler.mu.Lock()
	entry, ok := scheduler.repeats[id]
	scheduler.mu.Unlock()
	if !ok {
		return
	}

	payload := entry.payload
	payload.Date = scheduler.now().In(scheduler.location).Format(models.DateLayout)
	payload.DeliveryID = uuid.NewString()
	scheduler.deliver(id, payload)
}

func (scheduler *LocalScheduler) deliver(id string, payload models.ReminderPayload) {
	if scheduler.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := scheduler.dispatcher.Deliver(ctx, payload); err != nil {
		logger.Warn("scheduler: delivery failed", "id", id, "delivery_id", payload.DeliveryID, "err", err)
		return
	}
	logger.Info("scheduler: delivered", "id", id, "kind", payload.Kind, "delivery_id", payload.DeliveryID)
}
