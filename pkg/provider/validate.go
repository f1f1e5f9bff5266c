package provider

import (
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/bus-search-gateway/pkg/model"
)

func validateSession(session model.Session) error {
	if strings.TrimSpace(session.SessionID) == "" || strings.TrimSpace(session.DeviceID) == "" {
		return paramError("session id and device id are required")
	}
	return nil
}

// validateRoute checks the journey search arguments and returns the numeric
// origin and destination ids.
func validateRoute(originID, destinationID string, departureDate, now time.Time) (int, int, error) {
	if strings.TrimSpace(originID) == "" || strings.TrimSpace(destinationID) == "" {
		return 0, 0, paramError("origin and destination ids are required")
	}

	if departureDate.IsZero() {
		return 0, 0, paramError("departure date is required")
	}
	if calendarDate(departureDate).Before(calendarDate(now.In(departureDate.Location()))) {
		return 0, 0, paramError("departure date cannot be in the past")
	}

	origin, err := strconv.Atoi(strings.TrimSpace(originID))
	if err != nil {
		return 0, 0, paramError("origin id must be numeric")
	}
	destination, err := strconv.Atoi(strings.TrimSpace(destinationID))
	if err != nil {
		return 0, 0, paramError("destination id must be numeric")
	}

	return origin, destination, nil
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
