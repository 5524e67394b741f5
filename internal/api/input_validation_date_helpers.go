package api

import (
	"errors"
	"strings"
	"time"

	"github.com/hyson0807/isolog/internal/services"
)

func parseDayParam(raw string, location *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("date is required")
	}
	parsed, err := services.ParseDay(raw, location)
	if err != nil {
		return time.Time{}, err
	}
	return services.DateAtLocation(parsed, location), nil
}

func parseMonthQuery(raw string, today time.Time, location *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, location), nil
	}
	parsed, err := time.ParseInLocation("2006-01", strings.TrimSpace(raw), location)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), 1, 0, 0, 0, 0, location), nil
}
