package services

import (
	"errors"
	"strings"
	"time"

	"github.com/hyson0807/isolog/internal/models"
)

var ErrInvalidDate = errors.New("invalid date")

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// DaysBetween counts calendar days from `from` to `to` using each value's own
// calendar date. The result is negative when to is before from.
func DaysBetween(from time.Time, to time.Time) int {
	return int(utcDate(to).Sub(utcDate(from)) / (24 * time.Hour))
}

func ParseDay(raw string, location *time.Location) (time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(raw), location)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}

func DayKey(day time.Time) string {
	return day.Format(models.DateLayout)
}

func sameDay(a time.Time, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}

// utcDate drops the clock and zone so that day arithmetic never sees DST.
func utcDate(value time.Time) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func inLocation(value time.Time, location *time.Location) time.Time {
	year, month, day := value.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

func floorDiv(a int, b int) int {
	quotient := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		quotient--
	}
	return quotient
}
