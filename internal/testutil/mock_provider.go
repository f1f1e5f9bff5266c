// Package testutil provides testing utilities for the bus search gateway.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Provider endpoint paths served by MockProvider.
const (
	SessionPath   = "/api/client/getsession"
	LocationsPath = "/api/location/getbuslocations"
	JourneysPath  = "/api/journey/getbusjourneys"
)

// MockResponse defines the behavior for a mock provider endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockProvider is a configurable mock bus provider for testing.
type MockProvider struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount int
	pathCounts   map[string]int
	lastBody     map[string][]byte
	lastHeader   http.Header
}

// NewMockProvider creates a new mock provider server.
func NewMockProvider() *MockProvider {
	mock := &MockProvider{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
		lastBody:   make(map[string][]byte),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastBody[r.URL.Path] = body
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastBody = make(map[string][]byte)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockProvider) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockProvider) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJourneysResponse answers journey searches with the given journeys under "data".
func (m *MockProvider) SetJourneysResponse(journeys ...map[string]any) {
	m.SetResponse(JourneysPath, NewDataResponse(journeys))
}

// SetLocationsResponse answers location searches with the given locations under "data".
func (m *MockProvider) SetLocationsResponse(locations ...map[string]any) {
	m.SetResponse(LocationsPath, NewDataResponse(locations))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockProvider) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetPathCount returns the number of requests made to path.
func (m *MockProvider) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastBody decodes the last request body sent to path into dst.
func (m *MockProvider) LastBody(path string, dst any) error {
	m.mu.RLock()
	body, ok := m.lastBody[path]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no request recorded for %s", path)
	}
	return json.Unmarshal(body, dst)
}

// LastHeader returns the headers of the last request.
func (m *MockProvider) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// defaultHandler answers the session handshake and returns empty data for searches.
func (m *MockProvider) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch r.URL.Path {
	case SessionPath:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"Success","data":{"session-id":"mock-session","device-id":"mock-device"}}`))
	case LocationsPath, JourneysPath:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"Success","data":[]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":"NotFound"}`))
	}
}

// NewDataResponse creates a 200 OK response wrapping data in the provider envelope.
func NewDataResponse(data any) MockResponse {
	body, err := json.Marshal(map[string]any{
		"status": "Success",
		"data":   data,
	})
	if err != nil {
		panic(err)
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":"Error","message":"Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewJourney builds a provider journey payload.
func NewJourney(id, availableSeats int, departure, arrival string) map[string]any {
	return map[string]any{
		"id":              id,
		"partner-name":    "Partner",
		"bus-type-name":   "2+1",
		"total-seats":     40,
		"available-seats": availableSeats,
		"journey": map[string]any{
			"origin":         "Istanbul",
			"destination":    "Ankara",
			"departure":      departure,
			"arrival":        arrival,
			"original-price": 450.5,
			"features":       []string{"wifi"},
			"stops":          []any{},
		},
	}
}

// NewLocation builds a provider location payload.
func NewLocation(id int, name string) map[string]any {
	return map[string]any{
		"id":           id,
		"name":         name,
		"country-name": "Türkiye",
		"city-name":    name,
	}
}

// FlakyTransport fails the first Failures round trips with a refused connection
// and then delegates to Next (http.DefaultTransport when nil).
type FlakyTransport struct {
	Failures int32
	Next     http.RoundTripper

	calls atomic.Int32
}

// RoundTrip implements http.RoundTripper.
func (t *FlakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.calls.Add(1) <= t.Failures {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// Calls returns the number of round trips attempted.
func (t *FlakyTransport) Calls() int {
	return int(t.calls.Load())
}
