package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/bus-search-gateway/internal/testutil"
	"github.com/Sternrassler/bus-search-gateway/pkg/cache"
	"github.com/Sternrassler/bus-search-gateway/pkg/invalidation"
	"github.com/Sternrassler/bus-search-gateway/pkg/model"
	"github.com/Sternrassler/bus-search-gateway/pkg/provider"
	"github.com/Sternrassler/bus-search-gateway/pkg/ratelimit"
	"github.com/Sternrassler/bus-search-gateway/pkg/retry"
	"github.com/Sternrassler/bus-search-gateway/pkg/session"
)

type testEnv struct {
	mock    *testutil.MockProvider
	store   *cache.Manager
	handler http.Handler
}

func setupTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()

	mock := testutil.NewMockProvider()
	t.Cleanup(mock.Close)

	logger := zerolog.Nop()
	store := cache.NewManager(cache.NewMemoryBackend(), logger)

	cfg := provider.DefaultConfig(store, mock.URL())
	cfg.Logger = &logger
	cfg.Retry = retry.New(retry.Policy{MaxRetries: 0}, logger)

	gateway, err := provider.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create gateway: %v", err)
	}

	handler := newRouter(routerConfig{
		Provider:     gateway,
		Sessions:     session.NewCoordinator(gateway, logger),
		Invalidation: invalidation.New(store, logger),
		Limiter:      limiter,
		Logger:       logger,
	})

	return &testEnv{mock: mock, store: store, handler: handler}
}

func (e *testEnv) do(method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		readyHandler(func(context.Context) error { return nil })(w, httptest.NewRequest("GET", "/ready", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		w := httptest.NewRecorder()
		readyHandler(func(context.Context) error { return errors.New("redis down") })(w, httptest.NewRequest("GET", "/ready", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestEnv(t, nil)

	// Produce at least one provider metric sample
	env.do(http.MethodPost, "/api/bustours/session")

	rec := env.do(http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(body, "bus_provider_requests_total") {
		t.Error("Expected metrics output to contain bus_provider_requests_total")
	}
}

func TestLocations_SessionCookieRoundTrip(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.mock.SetLocationsResponse(testutil.NewLocation(349, "Istanbul"))

	first := env.do(http.MethodGet, "/api/bustours/locations?search=ist")
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", first.Code, first.Body.String())
	}

	cookies := first.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("cookies = %v, want session and device cookie", cookies)
	}
	values := map[string]string{}
	for _, c := range cookies {
		values[c.Name] = c.Value
		if !c.HttpOnly || c.MaxAge != 3600 {
			t.Errorf("cookie %s: HttpOnly=%v MaxAge=%d", c.Name, c.HttpOnly, c.MaxAge)
		}
	}
	if values[sessionCookie] != "mock-session" || values[deviceCookie] != "mock-device" {
		t.Errorf("cookie values = %v", values)
	}

	var locations []model.Location
	if err := json.Unmarshal(first.Body.Bytes(), &locations); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(locations) != 1 || locations[0].ID != "349" {
		t.Errorf("locations = %+v", locations)
	}

	// Second call reuses the cookie session and hits the cache
	second := env.do(http.MethodGet, "/api/bustours/locations?search=IST", cookies...)
	if second.Code != http.StatusOK {
		t.Fatalf("status = %d", second.Code)
	}
	if len(second.Result().Cookies()) != 0 {
		t.Error("cookies should not be reissued for a reused session")
	}
	if got := env.mock.GetPathCount(testutil.SessionPath); got != 1 {
		t.Errorf("session requests = %d, want 1", got)
	}
	if got := env.mock.GetPathCount(testutil.LocationsPath); got != 1 {
		t.Errorf("location requests = %d, want 1", got)
	}
}

func TestJourneys(t *testing.T) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format(cache.DateLayout)
	yesterday := time.Now().AddDate(0, 0, -1).Format(cache.DateLayout)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{"success", "originId=349&destinationId=356&departureDate=" + tomorrow, http.StatusOK, ""},
		{"missing date", "originId=349&destinationId=356", http.StatusBadRequest, provider.CodeValidation},
		{"bad date", "originId=349&destinationId=356&departureDate=02.06.2025", http.StatusBadRequest, provider.CodeValidation},
		{"past date", "originId=349&destinationId=356&departureDate=" + yesterday, http.StatusBadRequest, provider.CodeValidation},
		{"non-numeric origin", "originId=x&destinationId=356&departureDate=" + tomorrow, http.StatusBadRequest, provider.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, nil)
			env.mock.SetJourneysResponse(
				testutil.NewJourney(1, 0, tomorrow+"T08:00:00", tomorrow+"T14:00:00"),
				testutil.NewJourney(2, 9, tomorrow+"T09:00:00", tomorrow+"T15:00:00"),
			)

			rec := env.do(http.MethodGet, "/api/bustours/journeys?"+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantCode != "" {
				if body := decodeError(t, rec); body.Error != tt.wantCode {
					t.Errorf("error = %q, want %q", body.Error, tt.wantCode)
				}
				if got := env.mock.GetPathCount(testutil.JourneysPath); got != 0 {
					t.Errorf("journey requests = %d, want 0", got)
				}
				return
			}

			var journeys []model.Journey
			if err := json.Unmarshal(rec.Body.Bytes(), &journeys); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(journeys) != 1 || journeys[0].ID != 2 {
				t.Errorf("journeys = %+v, want only id 2", journeys)
			}
		})
	}
}

func TestProviderErrorMapping(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.mock.SetResponse(testutil.SessionPath, testutil.NewServerErrorResponse())

	rec := env.do(http.MethodPost, "/api/bustours/session")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != "EXTERNAL_API_500" {
		t.Errorf("error = %q, want EXTERNAL_API_500", body.Error)
	}
}

func TestCacheEndpoints(t *testing.T) {
	env := setupTestEnv(t, nil)
	ctx := context.Background()
	date := time.Date(2030, 1, 2, 0, 0, 0, 0, time.Local)

	seed := func() {
		env.store.Set(ctx, cache.SessionKey("abc"), model.Session{SessionID: "abc", DeviceID: "d"}, cache.SessionTTL)
		env.store.Set(ctx, cache.LocationsKey("ank"), []model.Location{{ID: "1"}}, cache.LocationsTTL)
		env.store.Set(ctx, cache.LocationsKey(""), []model.Location{{ID: "2"}}, cache.LocationsTTL)
		env.store.Set(ctx, cache.JourneysKey("1", "2", date), []model.Journey{{ID: 3}}, cache.JourneysTTL)
	}
	present := func(key string) bool {
		var v json.RawMessage
		return env.store.Get(ctx, key, &v)
	}

	tests := []struct {
		name    string
		target  string
		removed []string
		kept    []string
	}{
		{
			name:    "session",
			target:  "/api/cache/invalidate/session/abc",
			removed: []string{cache.SessionKey("abc")},
			kept:    []string{cache.LocationsKey("ank")},
		},
		{
			name:    "locations",
			target:  "/api/cache/invalidate/locations?search=ANK",
			removed: []string{cache.LocationsKey("ank")},
			kept:    []string{cache.LocationsKey("")},
		},
		{
			name:    "journeys",
			target:  "/api/cache/invalidate/journeys?originId=1&destinationId=2&departureDate=2030-01-02",
			removed: []string{cache.JourneysKey("1", "2", date)},
			kept:    []string{cache.SessionKey("abc")},
		},
		{
			name:    "all locations",
			target:  "/api/cache/invalidate/all-locations",
			removed: []string{cache.LocationsKey("")},
			kept:    []string{cache.LocationsKey("ank")},
		},
		{
			name:   "all journeys",
			target: "/api/cache/invalidate/all-journeys",
			kept:   []string{cache.JourneysKey("1", "2", date)},
		},
		{
			name:    "clear",
			target:  "/api/cache/clear",
			removed: []string{cache.SessionKey("abc"), cache.LocationsKey("ank"), cache.JourneysKey("1", "2", date)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed()

			rec := env.do(http.MethodPost, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}

			for _, key := range tt.removed {
				if present(key) {
					t.Errorf("%s should be removed", key)
				}
			}
			for _, key := range tt.kept {
				if !present(key) {
					t.Errorf("%s should be kept", key)
				}
			}
		})
	}
}

func TestCacheStatusEndpoint(t *testing.T) {
	env := setupTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/cache/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var status invalidation.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(status.CacheTypes) != 3 || status.CacheTypes[0].TTLText != "1h0m0s" {
		t.Errorf("status = %+v", status)
	}
}

func TestRateLimit(t *testing.T) {
	limiter, err := ratelimit.NewMemoryTracker(ratelimit.Config{Requests: 2, Window: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewMemoryTracker() error = %v", err)
	}
	env := setupTestEnv(t, limiter)

	for i := 0; i < 2; i++ {
		if rec := env.do(http.MethodGet, "/api/cache/status"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := env.do(http.MethodGet, "/api/cache/status")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	var body ratelimit.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Rate limit exceeded" || body.RetryAfter == "" {
		t.Errorf("body = %+v", body)
	}

	// Health stays outside the limit
	if rec := env.do(http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
