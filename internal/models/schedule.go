package models

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

type Cadence string

const (
	CadenceNone       Cadence = "none"
	CadenceDaily      Cadence = "daily"
	CadenceEvery2Days Cadence = "every_2_days"
	CadenceEvery3Days Cadence = "every_3_days"
	CadenceWeekly     Cadence = "weekly"
)

var cadenceIntervals = map[Cadence]int{
	CadenceNone:       0,
	CadenceDaily:      1,
	CadenceEvery2Days: 2,
	CadenceEvery3Days: 3,
	CadenceWeekly:     7,
}

// IntervalDays maps a cadence to its cycle length. CadenceNone maps to 0.
func (cadence Cadence) IntervalDays() (int, bool) {
	days, ok := cadenceIntervals[cadence]
	return days, ok
}

func CadenceForInterval(days int) (Cadence, bool) {
	for cadence, interval := range cadenceIntervals {
		if interval == days {
			return cadence, true
		}
	}
	return "", false
}

// Schedule anchors the dosing cycle. IntervalDays == 0 means no active cycle.
type Schedule struct {
	IntervalDays  int    `json:"interval_days"`
	ReferenceDate string `json:"reference_date,omitempty"`
}

func (schedule Schedule) Active() bool {
	return schedule.IntervalDays >= 1 && schedule.ReferenceDate != ""
}

func (schedule Schedule) Cadence() Cadence {
	if !schedule.Active() {
		return CadenceNone
	}
	cadence, ok := CadenceForInterval(schedule.IntervalDays)
	if !ok {
		return CadenceNone
	}
	return cadence
}

// AdherenceRecord is the persisted form of the schedule and taken dates.
type AdherenceRecord struct {
	Schedule       Schedule `json:"schedule"`
	TakenDates     []string `json:"taken_dates"`
	FirstTakenDate string   `json:"first_taken_date,omitempty"`
}
