package services

import "time"

type WarningLevel string

const (
	WarningNone WarningLevel = ""
	WarningDDay WarningLevel = "dday"
	WarningDay1 WarningLevel = "day1"
	WarningDay2 WarningLevel = "day2"
	WarningDay3 WarningLevel = "day3"
	WarningDay4 WarningLevel = "day4"
)

// WarningWindowDays is the reach of a conflict date on each side.
const WarningWindowDays = 4

var warningLevelsByDistance = [...]WarningLevel{WarningDDay, WarningDay1, WarningDay2, WarningDay3, WarningDay4}

// ResolveWarningLevel ranks targetDate by its distance to the nearest conflict date.
func ResolveWarningLevel(conflictDates []time.Time, targetDate time.Time) WarningLevel {
	minDistance := -1
	for _, conflict := range conflictDates {
		distance := DaysBetween(conflict, targetDate)
		if distance < 0 {
			distance = -distance
		}
		if minDistance < 0 || distance < minDistance {
			minDistance = distance
		}
	}
	if minDistance < 0 || minDistance > WarningWindowDays {
		return WarningNone
	}
	return warningLevelsByDistance[minDistance]
}

// Distance returns how many days away from the conflict the level sits, or -1 for none.
func (level WarningLevel) Distance() int {
	for distance, candidate := range warningLevelsByDistance {
		if candidate == level {
			return distance
		}
	}
	return -1
}
