// Package model holds the domain records returned by the provider gateway.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the provider-issued credential pair carried on every downstream call.
// It is never mutated once issued.
type Session struct {
	SessionID string `json:"session_id"`
	DeviceID  string `json:"device_id"`
}

// Valid reports whether both halves of the credential pair are present.
func (s Session) Valid() bool {
	return s.SessionID != "" && s.DeviceID != ""
}

// Location is a bus terminal or city the provider can route between.
type Location struct {
	// ID is the provider-assigned numeric id in string form
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// Journey is a single bookable bus departure for one origin/destination/date triple.
type Journey struct {
	ID             int             `json:"id"`
	PartnerName    string          `json:"partner_name"`
	BusTypeName    string          `json:"bus_type_name"`
	TotalSeats     int             `json:"total_seats"`
	AvailableSeats int             `json:"available_seats"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureAt    time.Time       `json:"departure_at"`
	ArrivalAt      time.Time       `json:"arrival_at"`
	Price          decimal.Decimal `json:"price"`
	Stops          []Stop          `json:"stops"`
	Features       []string        `json:"features"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsFull reports whether no seats are left.
func (j Journey) IsFull() bool {
	return j.AvailableSeats <= 0
}

// Stop is an intermediate or terminal stop of a journey, ordered by Index.
type Stop struct {
	ID            int        `json:"id"`
	Name          *string    `json:"name,omitempty"`
	Station       *string    `json:"station,omitempty"`
	Time          *time.Time `json:"time,omitempty"`
	IsOrigin      bool       `json:"is_origin"`
	IsDestination bool       `json:"is_destination"`
	Index         int        `json:"index"`
}
