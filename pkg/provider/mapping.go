package provider

import (
	"sort"
	"strconv"
	"time"

	"github.com/Sternrassler/bus-search-gateway/pkg/model"
)

// timestampLayouts are tried in order by parseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2006-01-02",
}

// parseTimestamp parses a provider timestamp. Layouts without a zone are read in loc.
func parseTimestamp(value string, loc *time.Location) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toLocations(data []locationData) []model.Location {
	locations := make([]model.Location, 0, len(data))
	for _, l := range data {
		locations = append(locations, model.Location{
			ID:      strconv.FormatInt(l.ID, 10),
			Name:    l.Name,
			Country: l.Country,
			City:    l.City,
		})
	}
	return locations
}

// toJourney maps one provider journey. Unparsable departure and arrival times
// become the zero time instead of failing the whole response.
func toJourney(j journeyData, loc *time.Location, now time.Time) model.Journey {
	departure, _ := parseTimestamp(j.Journey.Departure, loc)
	arrival, _ := parseTimestamp(j.Journey.Arrival, loc)

	features := make([]string, len(j.Journey.Features))
	copy(features, j.Journey.Features)

	return model.Journey{
		ID:             j.ID,
		PartnerName:    j.PartnerName,
		BusTypeName:    j.BusTypeName,
		TotalSeats:     j.TotalSeats,
		AvailableSeats: j.AvailableSeats,
		Origin:         j.Journey.Origin,
		Destination:    j.Journey.Destination,
		DepartureAt:    departure,
		ArrivalAt:      arrival,
		Price:          j.Journey.OriginalPrice,
		Stops:          toStops(j.Journey.Stops, loc),
		Features:       features,
		IsActive:       true,
		CreatedAt:      now,
	}
}

func toStops(data []stopData, loc *time.Location) []model.Stop {
	stops := make([]model.Stop, 0, len(data))
	for _, s := range data {
		stop := model.Stop{
			ID:            s.ID,
			Name:          s.Name,
			Station:       s.Station,
			IsOrigin:      s.IsOrigin,
			IsDestination: s.IsDestination,
			Index:         s.Index,
		}
		if s.Time != nil {
			if t, ok := parseTimestamp(*s.Time, loc); ok {
				stop.Time = &t
			}
		}
		stops = append(stops, stop)
	}
	sort.SliceStable(stops, func(a, b int) bool {
		return stops[a].Index < stops[b].Index
	})
	return stops
}

// toAvailableJourneys maps data and drops every journey without free seats,
// keeping the provider's relative order. It also returns how many were dropped.
func toAvailableJourneys(data []journeyData, loc *time.Location, now time.Time) ([]model.Journey, int) {
	journeys := make([]model.Journey, 0, len(data))
	for _, j := range data {
		journey := toJourney(j, loc, now)
		if journey.IsFull() {
			continue
		}
		journeys = append(journeys, journey)
	}
	return journeys, len(data) - len(journeys)
}
