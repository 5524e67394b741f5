package services

import "time"

type Timer interface {
	Stop() bool
}

// Clock is the only source of wall-clock time in the engine.
type Clock interface {
	Now() time.Time
	AfterFunc(delay time.Duration, callback func()) Timer
}

type systemClock struct{}

func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(delay time.Duration, callback func()) Timer {
	return time.AfterFunc(delay, callback)
}

type lifecycleState int

const (
	lifecycleActive lifecycleState = iota
	lifecycleBackground
)

// RolloverWatcher owns the single "today" value. It re-arms a one-shot timer
// for the next local midnight after every firing instead of using a fixed
// period, so clock changes and sleep cannot make it drift. It is not safe for
// concurrent use; Engine serializes access and supplies onMidnight.
type RolloverWatcher struct {
	clock      Clock
	location   *time.Location
	today      time.Time
	timer      Timer
	onMidnight func()
	running    bool
	state      lifecycleState
}

func NewRolloverWatcher(clock Clock, location *time.Location) *RolloverWatcher {
	if clock == nil {
		clock = SystemClock()
	}
	if location == nil {
		location = time.Local
	}
	watcher := &RolloverWatcher{clock: clock, location: location}
	watcher.today = DateAtLocation(clock.Now(), location)
	return watcher
}

func (watcher *RolloverWatcher) Start(onMidnight func()) time.Time {
	watcher.onMidnight = onMidnight
	watcher.running = true
	watcher.today = DateAtLocation(watcher.clock.Now(), watcher.location)
	watcher.arm()
	return watcher.today
}

func (watcher *RolloverWatcher) Stop() {
	watcher.running = false
	if watcher.timer != nil {
		watcher.timer.Stop()
		watcher.timer = nil
	}
}

func (watcher *RolloverWatcher) Today() time.Time {
	return watcher.today
}

// Recompute refreshes today from the clock and re-arms the midnight timer.
// It reports whether the date moved.
func (watcher *RolloverWatcher) Recompute() (time.Time, bool) {
	next := DateAtLocation(watcher.clock.Now(), watcher.location)
	changed := !sameDay(next, watcher.today)
	watcher.today = next
	if watcher.running {
		watcher.arm()
	}
	return watcher.today, changed
}

func (watcher *RolloverWatcher) EnteredBackground() {
	watcher.state = lifecycleBackground
}

// BecameActive reports true only on a background to active edge, so one-shot
// work runs once per return to the foreground.
func (watcher *RolloverWatcher) BecameActive() bool {
	edge := watcher.state == lifecycleBackground
	watcher.state = lifecycleActive
	return edge
}

func (watcher *RolloverWatcher) NextMidnight() time.Time {
	return DateAtLocation(watcher.clock.Now(), watcher.location).AddDate(0, 0, 1)
}

func (watcher *RolloverWatcher) arm() {
	if watcher.timer != nil {
		watcher.timer.Stop()
	}
	delay := watcher.NextMidnight().Sub(watcher.clock.Now())
	if delay <= 0 {
		delay = time.Millisecond
	}
	callback := watcher.onMidnight
	watcher.timer = watcher.clock.AfterFunc(delay, func() {
		if callback != nil {
			callback()
		}
	})
}
