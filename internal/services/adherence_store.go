package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hyson0807/isolog/internal/models"
)

var (
	ErrInvalidInterval    = errors.New("invalid interval")
	ErrScheduleAlreadySet = errors.New("schedule already set")
)

// AdherenceStore owns the schedule and taken dates. It is not safe for
// concurrent use; Engine serializes access.
type AdherenceStore struct {
	location   *time.Location
	writer     *WriteBehind
	schedule   models.Schedule
	taken      map[string]struct{}
	firstTaken string
}

func NewAdherenceStore(writer *WriteBehind, location *time.Location) *AdherenceStore {
	if location == nil {
		location = time.UTC
	}
	return &AdherenceStore{
		location: location,
		writer:   writer,
		taken:    make(map[string]struct{}),
	}
}

func (store *AdherenceStore) Load(ctx context.Context, kv KeyValueStore) {
	var record models.AdherenceRecord
	if !loadJSON(ctx, kv, KeyAdherence, &record) {
		return
	}

	if record.Schedule.IntervalDays < 0 {
		record.Schedule = models.Schedule{}
	}
	store.schedule = record.Schedule
	store.taken = make(map[string]struct{}, len(record.TakenDates))
	for _, raw := range record.TakenDates {
		day, err := ParseDay(raw, store.location)
		if err != nil {
			continue
		}
		store.taken[DayKey(day)] = struct{}{}
	}
	if _, err := ParseDay(record.FirstTakenDate, store.location); err == nil {
		store.firstTaken = record.FirstTakenDate
	}
}

// ToggleTaken flips day in the taken set and reports whether it is now taken.
// Removing a day never moves the first-taken floor.
func (store *AdherenceStore) ToggleTaken(day time.Time) bool {
	key := DayKey(day)
	if _, ok := store.taken[key]; ok {
		delete(store.taken, key)
		store.persist()
		return false
	}

	store.taken[key] = struct{}{}
	if store.firstTaken == "" || key < store.firstTaken {
		store.firstTaken = key
	}
	store.persist()
	return true
}

func (store *AdherenceStore) IsTaken(day time.Time) bool {
	_, ok := store.taken[DayKey(day)]
	return ok
}

// UpdateSchedule restarts the cycle at effectiveDate. An interval of 0 stops it.
func (store *AdherenceStore) UpdateSchedule(intervalDays int, effectiveDate time.Time) error {
	if err := validateInterval(intervalDays); err != nil {
		return err
	}
	store.schedule = models.Schedule{
		IntervalDays:  intervalDays,
		ReferenceDate: DayKey(effectiveDate),
	}
	store.persist()
	return nil
}

// SeedSchedule sets the first schedule from an onboarding "last dose" date.
func (store *AdherenceStore) SeedSchedule(intervalDays int, lastDoseDate time.Time, today time.Time) error {
	if store.schedule.Active() {
		return ErrScheduleAlreadySet
	}
	if intervalDays == 0 {
		return ErrInvalidInterval
	}
	if err := validateInterval(intervalDays); err != nil {
		return err
	}
	if DaysBetween(today, lastDoseDate) > 0 {
		return ErrInvalidDate
	}
	store.schedule = models.Schedule{
		IntervalDays:  intervalDays,
		ReferenceDate: DayKey(lastDoseDate),
	}
	store.persist()
	return nil
}

func (store *AdherenceStore) Schedule() models.Schedule {
	return store.schedule
}

func (store *AdherenceStore) IsDoseDay(day time.Time) bool {
	return ScheduleIsDoseDay(store.schedule, day)
}

func (store *AdherenceStore) FirstTakenDate() (time.Time, bool) {
	if store.firstTaken == "" {
		return time.Time{}, false
	}
	day, err := ParseDay(store.firstTaken, store.location)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func (store *AdherenceStore) CanEdit(day time.Time, today time.Time) bool {
	floor, _ := store.FirstTakenDate()
	return CanEditDate(day, today, floor)
}

func (store *AdherenceStore) TakenDates() []string {
	dates := make([]string, 0, len(store.taken))
	for key := range store.taken {
		dates = append(dates, key)
	}
	sort.Strings(dates)
	return dates
}

func (store *AdherenceStore) takenSet() map[string]struct{} {
	copied := make(map[string]struct{}, len(store.taken))
	for key := range store.taken {
		copied[key] = struct{}{}
	}
	return copied
}

func (store *AdherenceStore) record() models.AdherenceRecord {
	return models.AdherenceRecord{
		Schedule:       store.schedule,
		TakenDates:     store.TakenDates(),
		FirstTakenDate: store.firstTaken,
	}
}

func (store *AdherenceStore) persist() {
	if store.writer != nil {
		store.writer.Put(KeyAdherence, store.record())
	}
}

// CanEditDate is the edit-eligibility gate: never the future, and never
// before the first taken date once one exists. A zero floor means unset.
func CanEditDate(day time.Time, today time.Time, firstTaken time.Time) bool {
	if DaysBetween(today, day) > 0 {
		return false
	}
	if firstTaken.IsZero() {
		return true
	}
	return DaysBetween(firstTaken, day) >= 0
}

func validateInterval(intervalDays int) error {
	if intervalDays < 0 {
		return ErrInvalidInterval
	}
	if _, ok := models.CadenceForInterval(intervalDays); !ok {
		return ErrInvalidInterval
	}
	return nil
}
