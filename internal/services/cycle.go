package services

import (
	"time"

	"github.com/hyson0807/isolog/internal/models"
	"github.com/teambition/rrule-go"
)

// IsDoseDay reports whether targetDate lands on an exact multiple of
// intervalDays from referenceDate, in either direction.
func IsDoseDay(referenceDate time.Time, intervalDays int, targetDate time.Time) bool {
	if intervalDays < 1 {
		return false
	}
	diff := DaysBetween(referenceDate, targetDate)
	return ((diff%intervalDays)+intervalDays)%intervalDays == 0
}

// ScheduleIsDoseDay is IsDoseDay over a persisted schedule. Inactive or
// unparsable schedules have no dose days.
func ScheduleIsDoseDay(schedule models.Schedule, targetDate time.Time) bool {
	if !schedule.Active() {
		return false
	}
	reference, err := ParseDay(schedule.ReferenceDate, targetDate.Location())
	if err != nil {
		return false
	}
	return IsDoseDay(reference, schedule.IntervalDays, targetDate)
}

// UpcomingDoseDays lists the dose days inside [from, from+days-1], expressed
// as midnights in location.
func UpcomingDoseDays(referenceDate time.Time, intervalDays int, from time.Time, days int, location *time.Location) []time.Time {
	if intervalDays < 1 || days <= 0 {
		return nil
	}
	if location == nil {
		location = time.UTC
	}

	offset := DaysBetween(referenceDate, from)
	anchor := utcDate(referenceDate).AddDate(0, 0, floorDiv(offset, intervalDays)*intervalDays)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: intervalDays,
		Dtstart:  anchor,
	})
	if err != nil {
		return nil
	}

	windowStart := utcDate(from)
	windowEnd := windowStart.AddDate(0, 0, days-1)
	occurrences := rule.Between(windowStart, windowEnd, true)

	result := make([]time.Time, 0, len(occurrences))
	for _, occurrence := range occurrences {
		result = append(result, inLocation(occurrence, location))
	}
	return result
}

// ScheduleWindow is UpcomingDoseDays over a persisted schedule.
func ScheduleWindow(schedule models.Schedule, from time.Time, days int, location *time.Location) []time.Time {
	if !schedule.Active() {
		return nil
	}
	reference, err := ParseDay(schedule.ReferenceDate, location)
	if err != nil {
		return nil
	}
	return UpcomingDoseDays(reference, schedule.IntervalDays, from, days, location)
}
