package services

import (
	"time"

	"github.com/hyson0807/isolog/internal/models"
)

type DayStatus string

const (
	DayStatusTaken     DayStatus = "taken"
	DayStatusMissed    DayStatus = "missed"
	DayStatusDisabled  DayStatus = "disabled"
	DayStatusToday     DayStatus = "today"
	DayStatusScheduled DayStatus = "scheduled"
	DayStatusRest      DayStatus = "rest"
)

// CalendarSnapshot is the read-only state the resolver needs. Today is
// passed in rather than read from a clock.
type CalendarSnapshot struct {
	Today          time.Time
	Schedule       models.Schedule
	Taken          map[string]struct{}
	FirstTakenDate time.Time
	Conflicts      []time.Time
}

type DayView struct {
	Date       time.Time    `json:"-"`
	DateString string       `json:"date"`
	Day        int          `json:"day"`
	InMonth    bool         `json:"in_month"`
	Status     DayStatus    `json:"status"`
	IsDoseDay  bool         `json:"is_dose_day"`
	IsTaken    bool         `json:"is_taken"`
	CanEdit    bool         `json:"can_edit"`
	IsConflict bool         `json:"is_conflict"`
	Warning    WarningLevel `json:"warning,omitempty"`
}

// ResolveDay derives the status of one date. Taken state and edit
// eligibility decide the status; the warning level is decoration on top.
func ResolveDay(snapshot CalendarSnapshot, day time.Time, inDisplayedMonth bool) DayView {
	key := DayKey(day)
	_, taken := snapshot.Taken[key]
	isDoseDay := ScheduleIsDoseDay(snapshot.Schedule, day)
	canEdit := CanEditDate(day, snapshot.Today, snapshot.FirstTakenDate)
	offset := DaysBetween(snapshot.Today, day)

	isConflict := false
	for _, conflict := range snapshot.Conflicts {
		if sameDay(conflict, day) {
			isConflict = true
			break
		}
	}

	view := DayView{
		Date:       day,
		DateString: key,
		Day:        day.Day(),
		InMonth:    inDisplayedMonth,
		IsDoseDay:  isDoseDay,
		IsTaken:    taken,
		CanEdit:    canEdit,
		IsConflict: isConflict,
		Warning:    ResolveWarningLevel(snapshot.Conflicts, day),
	}

	switch {
	case !inDisplayedMonth:
		view.Status = DayStatusDisabled
	case taken:
		view.Status = DayStatusTaken
	case offset == 0:
		view.Status = DayStatusToday
	case offset > 0 && isDoseDay:
		view.Status = DayStatusScheduled
	case offset > 0:
		view.Status = DayStatusRest
	case !canEdit:
		view.Status = DayStatusDisabled
	case isDoseDay:
		view.Status = DayStatusMissed
	default:
		view.Status = DayStatusRest
	}
	return view
}

// BuildMonthDayViews lays out the Sunday-aligned weeks covering the month of monthStart.
func BuildMonthDayViews(snapshot CalendarSnapshot, monthStart time.Time) []DayView {
	year, month, _ := monthStart.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, monthStart.Location())
	last := first.AddDate(0, 1, -1)
	gridStart := first.AddDate(0, 0, -int(first.Weekday()))
	gridEnd := last.AddDate(0, 0, 6-int(last.Weekday()))

	days := make([]DayView, 0, 42)
	for day := gridStart; !day.After(gridEnd); day = day.AddDate(0, 0, 1) {
		days = append(days, ResolveDay(snapshot, day, day.Month() == month))
	}
	return days
}

type AdherenceSummary struct {
	Cadence                models.Cadence `json:"cadence"`
	ReferenceDate          string         `json:"reference_date,omitempty"`
	TakenCount             int            `json:"taken_count"`
	DoseDaysSinceReference int            `json:"dose_days_since_reference"`
	TakenDoseDays          int            `json:"taken_dose_days"`
	Streak                 int            `json:"streak"`
	FirstTakenDate         string         `json:"first_taken_date,omitempty"`
}

// BuildAdherenceSummary counts dose days from the reference date through today.
// An untaken dose today does not break the streak; it is still pending.
func BuildAdherenceSummary(snapshot CalendarSnapshot) AdherenceSummary {
	summary := AdherenceSummary{
		Cadence:    snapshot.Schedule.Cadence(),
		TakenCount: len(snapshot.Taken),
	}
	if !snapshot.FirstTakenDate.IsZero() {
		summary.FirstTakenDate = DayKey(snapshot.FirstTakenDate)
	}
	if !snapshot.Schedule.Active() {
		return summary
	}
	summary.ReferenceDate = snapshot.Schedule.ReferenceDate

	reference, err := ParseDay(snapshot.Schedule.ReferenceDate, snapshot.Today.Location())
	if err != nil {
		return summary
	}
	elapsed := DaysBetween(reference, snapshot.Today)
	if elapsed < 0 {
		return summary
	}

	interval := snapshot.Schedule.IntervalDays
	streakOpen := true
	for offset := elapsed - elapsed%interval; offset >= 0; offset -= interval {
		day := reference.AddDate(0, 0, offset)
		summary.DoseDaysSinceReference++
		_, taken := snapshot.Taken[DayKey(day)]
		if taken {
			summary.TakenDoseDays++
		}
		if !streakOpen {
			continue
		}
		switch {
		case taken:
			summary.Streak++
		case offset == elapsed:
			// today's dose is still pending
		default:
			streakOpen = false
		}
	}
	return summary
}
