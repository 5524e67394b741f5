package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyson0807/isolog/internal/models"
)

var (
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrSkinNoteTooLong = errors.New("skin note too long")
)

// SkinStore keeps at most one skin record per date. Saves replace the whole record.
type SkinStore struct {
	location *time.Location
	writer   *WriteBehind
	records  map[string]models.SkinRecord
}

func NewSkinStore(writer *WriteBehind, location *time.Location) *SkinStore {
	if location == nil {
		location = time.UTC
	}
	return &SkinStore{
		location: location,
		writer:   writer,
		records:  make(map[string]models.SkinRecord),
	}
}

func (store *SkinStore) Load(ctx context.Context, kv KeyValueStore) {
	var raw map[string]models.SkinRecord
	if !loadJSON(ctx, kv, KeySkinRecords, &raw) {
		return
	}
	store.records = make(map[string]models.SkinRecord, len(raw))
	for key, record := range raw {
		day, err := ParseDay(key, store.location)
		if err != nil {
			continue
		}
		record.Date = DayKey(day)
		store.records[record.Date] = record
	}
}

func (store *SkinStore) Save(day time.Time, record models.SkinRecord) (models.SkinRecord, error) {
	if !record.Acne.Valid() || !record.Dryness.Valid() {
		return models.SkinRecord{}, ErrInvalidSeverity
	}
	record.Note = strings.TrimSpace(record.Note)
	if utf8.RuneCountInString(record.Note) > models.MaxSkinNoteLength {
		return models.SkinRecord{}, ErrSkinNoteTooLong
	}
	record.Date = DayKey(day)
	store.records[record.Date] = record
	store.persist()
	return record, nil
}

func (store *SkinStore) Get(day time.Time) (models.SkinRecord, bool) {
	record, ok := store.records[DayKey(day)]
	return record, ok
}

func (store *SkinStore) Delete(day time.Time) bool {
	key := DayKey(day)
	if _, ok := store.records[key]; !ok {
		return false
	}
	delete(store.records, key)
	store.persist()
	return true
}

func (store *SkinStore) persist() {
	if store.writer == nil {
		return
	}
	snapshot := make(map[string]models.SkinRecord, len(store.records))
	for key, record := range store.records {
		snapshot[key] = record
	}
	store.writer.Put(KeySkinRecords, snapshot)
}
