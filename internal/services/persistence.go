package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hyson0807/isolog/internal/logger"
)

const (
	KeyAdherence               = "adherence"
	KeyNotificationPreferences = "notification_preferences"
	KeyLegacyNotification      = "notification_settings"
	KeyConflictDates           = "conflict_dates"
	KeySkinRecords             = "skin_records"
)

type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type writeJob struct {
	key   string
	value []byte
}

// WriteBehind hands JSON snapshots to a single writer goroutine so that
// mutations never wait on storage. Only the newest snapshot per key is kept:
// a Put that arrives while an older one is still queued replaces it, so the
// queue holds at most one entry per key and Put never blocks. Keys are
// written in the order they were first queued. A failed write is logged and
// not retried; the next snapshot supersedes it.
type WriteBehind struct {
	store KeyValueStore
	wake  chan struct{}
	done  chan struct{}

	mu       sync.Mutex
	idle     *sync.Cond
	pending  map[string][]byte
	order    []string
	inFlight bool
	closed   bool
}

func NewWriteBehind(store KeyValueStore) *WriteBehind {
	writer := &WriteBehind{
		store:   store,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[string][]byte),
	}
	writer.idle = sync.NewCond(&writer.mu)
	go writer.run()
	return writer
}

// Put snapshots value and queues it for key.
func (writer *WriteBehind) Put(key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warn("persistence: encode failed", "key", key, "err", err)
		return
	}

	writer.mu.Lock()
	if writer.closed {
		writer.mu.Unlock()
		writer.write(writeJob{key: key, value: payload})
		return
	}
	if _, queued := writer.pending[key]; !queued {
		writer.order = append(writer.order, key)
	}
	writer.pending[key] = payload
	select {
	case writer.wake <- struct{}{}:
	default:
	}
	writer.mu.Unlock()
}

// Flush blocks until every queued write has been attempted.
func (writer *WriteBehind) Flush() {
	writer.mu.Lock()
	for len(writer.order) > 0 || writer.inFlight {
		writer.idle.Wait()
	}
	writer.mu.Unlock()
}

// Close drains the queue and stops the writer. Later Puts write synchronously.
func (writer *WriteBehind) Close() {
	writer.mu.Lock()
	if writer.closed {
		writer.mu.Unlock()
		return
	}
	writer.closed = true
	close(writer.wake)
	writer.mu.Unlock()
	<-writer.done
}

func (writer *WriteBehind) run() {
	defer close(writer.done)
	// every Put leaves a token behind, so the last token drains the queue
	for range writer.wake {
		for job, ok := writer.next(); ok; job, ok = writer.next() {
			writer.write(job)
		}
	}
}

// next pops the oldest queued key. Reporting false means the queue is empty
// and wakes anyone waiting in Flush.
func (writer *WriteBehind) next() (writeJob, bool) {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.inFlight = false
	if len(writer.order) == 0 {
		writer.idle.Broadcast()
		return writeJob{}, false
	}
	key := writer.order[0]
	writer.order = writer.order[1:]
	job := writeJob{key: key, value: writer.pending[key]}
	delete(writer.pending, key)
	writer.inFlight = true
	return job, true
}

func (writer *WriteBehind) write(job writeJob) {
	if err := writer.store.Set(context.Background(), job.key, job.value); err != nil {
		logger.Warn("persistence: write failed", "key", job.key, "err", err)
	}
}

// loadJSON decodes key into target. Read and decode failures are logged and
// reported as not found so that callers start from defaults.
func loadJSON(ctx context.Context, store KeyValueStore, key string, target any) bool {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn("persistence: read failed", "key", key, "err", err)
		return false
	}
	if !found || len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		logger.Warn("persistence: stored value is corrupt", "key", key, "err", err)
		return false
	}
	return true
}
