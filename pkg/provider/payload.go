package provider

import (
	"github.com/shopspring/decimal"
)

// Provider endpoints.
const (
	PathSession   = "/api/client/getsession"
	PathLocations = "/api/location/getbuslocations"
	PathJourneys  = "/api/journey/getbusjourneys"
)

// Fixed handshake values expected by the provider.
const (
	sessionType      = 7
	handshakeIP      = "127.0.0.1"
	handshakePort    = "5117"
	handshakeBrowser = "Chrome"
	handshakeVersion = "47.0.0.12"
)

type sessionRequest struct {
	Type       int               `json:"type"`
	Connection sessionConnection `json:"connection"`
	Browser    sessionBrowser    `json:"browser"`
}

type sessionConnection struct {
	IPAddress string `json:"ip-address"`
	Port      string `json:"port"`
}

type sessionBrowser struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type deviceSession struct {
	SessionID string `json:"session-id"`
	DeviceID  string `json:"device-id"`
}

type sessionResponse struct {
	Data *deviceSession `json:"data"`
}

type locationsRequest struct {
	Data          string        `json:"data"`
	DeviceSession deviceSession `json:"device-session"`
	Date          string        `json:"date"`
	Language      string        `json:"language"`
}

type locationsResponse struct {
	Data []locationData `json:"data"`
}

type locationData struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country-name"`
	City    string `json:"city-name"`
}

type journeysRequest struct {
	DeviceSession deviceSession `json:"device-session"`
	Date          string        `json:"date"`
	Language      string        `json:"language"`
	Data          journeysQuery `json:"data"`
}

type journeysQuery struct {
	OriginID      int    `json:"origin-id"`
	DestinationID int    `json:"destination-id"`
	DepartureDate string `json:"departure-date"`
}

type journeysResponse struct {
	Data []journeyData `json:"data"`
}

type journeyData struct {
	ID             int         `json:"id"`
	PartnerName    string      `json:"partner-name"`
	BusTypeName    string      `json:"bus-type-name"`
	TotalSeats     int         `json:"total-seats"`
	AvailableSeats int         `json:"available-seats"`
	Journey        journeyInfo `json:"journey"`
}

type journeyInfo struct {
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	Departure     string          `json:"departure"`
	Arrival       string          `json:"arrival"`
	OriginalPrice decimal.Decimal `json:"original-price"`
	Stops         []stopData      `json:"stops"`
	Features      []string        `json:"features"`
}

type stopData struct {
	ID            int     `json:"id"`
	Name          *string `json:"name"`
	Station       *string `json:"station"`
	Time          *string `json:"time"`
	IsOrigin      bool    `json:"is-origin"`
	IsDestination bool    `json:"is-destination"`
	Index         int     `json:"index"`
}
