package services

import (
	"context"
	"sort"
	"time"
)

// ConflictStore holds the dates declared as alcohol-consumption days.
type ConflictStore struct {
	location *time.Location
	writer   *WriteBehind
	dates    map[string]struct{}
}

func NewConflictStore(writer *WriteBehind, location *time.Location) *ConflictStore {
	if location == nil {
		location = time.UTC
	}
	return &ConflictStore{
		location: location,
		writer:   writer,
		dates:    make(map[string]struct{}),
	}
}

func (store *ConflictStore) Load(ctx context.Context, kv KeyValueStore) {
	var raw []string
	if !loadJSON(ctx, kv, KeyConflictDates, &raw) {
		return
	}
	store.dates = make(map[string]struct{}, len(raw))
	for _, value := range raw {
		if day, err := ParseDay(value, store.location); err == nil {
			store.dates[DayKey(day)] = struct{}{}
		}
	}
}

// Add reports whether day was newly added.
func (store *ConflictStore) Add(day time.Time) bool {
	key := DayKey(day)
	if _, ok := store.dates[key]; ok {
		return false
	}
	store.dates[key] = struct{}{}
	store.persist()
	return true
}

// Remove reports whether day was present.
func (store *ConflictStore) Remove(day time.Time) bool {
	key := DayKey(day)
	if _, ok := store.dates[key]; !ok {
		return false
	}
	delete(store.dates, key)
	store.persist()
	return true
}

func (store *ConflictStore) Keys() []string {
	keys := make([]string, 0, len(store.dates))
	for key := range store.dates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (store *ConflictStore) Dates() []time.Time {
	keys := store.Keys()
	dates := make([]time.Time, 0, len(keys))
	for _, key := range keys {
		if day, err := ParseDay(key, store.location); err == nil {
			dates = append(dates, day)
		}
	}
	return dates
}

func (store *ConflictStore) persist() {
	if store.writer != nil {
		store.writer.Put(KeyConflictDates, store.Keys())
	}
}
