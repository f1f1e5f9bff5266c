package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/bus-search-gateway/pkg/cache"
	"github.com/Sternrassler/bus-search-gateway/pkg/invalidation"
	"github.com/Sternrassler/bus-search-gateway/pkg/logging"
	"github.com/Sternrassler/bus-search-gateway/pkg/metrics"
	"github.com/Sternrassler/bus-search-gateway/pkg/model"
	"github.com/Sternrassler/bus-search-gateway/pkg/provider"
	"github.com/Sternrassler/bus-search-gateway/pkg/ratelimit"
)

// Cookies carrying the provider session between requests.
const (
	sessionCookie = "provider_session_id"
	deviceCookie  = "provider_device_id"
)

// sessionSource hands out a usable provider session. *session.Coordinator implements it.
type sessionSource interface {
	GetOrCreateSession(ctx context.Context, existing *model.Session) (model.Session, error)
}

type routerConfig struct {
	Provider     provider.Provider
	Sessions     sessionSource
	Invalidation *invalidation.Facade
	Limiter      ratelimit.Limiter
	Ready        func(ctx context.Context) error
	Logger       zerolog.Logger
}

type api struct {
	provider     provider.Provider
	sessions     sessionSource
	invalidation *invalidation.Facade
}

// newRouter wires the HTTP routes.
func newRouter(cfg routerConfig) http.Handler {
	a := &api{
		provider:     cfg.Provider,
		sessions:     cfg.Sessions,
		invalidation: cfg.Invalidation,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.Ready))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(ratelimit.Middleware(cfg.Limiter, nil, cfg.Logger))
		}

		r.Route("/bustours", func(r chi.Router) {
			r.Post("/session", a.handleCreateSession)
			r.Get("/locations", a.handleLocations)
			r.Get("/journeys", a.handleJourneys)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Post("/invalidate/session/{sessionID}", a.handleInvalidateSession)
			r.Post("/invalidate/locations", a.handleInvalidateLocations)
			r.Post("/invalidate/journeys", a.handleInvalidateJourneys)
			r.Post("/invalidate/all-locations", a.handleInvalidateAllLocations)
			r.Post("/invalidate/all-journeys", a.handleInvalidateAllJourneys)
			r.Post("/clear", a.handleClear)
			r.Get("/status", a.handleStatus)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				http.Error(w, "Not Ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func (a *api) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.respondProviderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (a *api) handleLocations(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(w, r)
	if err != nil {
		a.respondProviderError(w, err)
		return
	}

	locations, err := a.provider.SearchLocations(r.Context(), s, r.URL.Query().Get("search"))
	if err != nil {
		a.respondProviderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (a *api) handleJourneys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := parseDate(q.Get("departureDate"))
	if err != nil {
		respondError(w, http.StatusBadRequest, provider.CodeValidation, err.Error())
		return
	}

	s, err := a.session(w, r)
	if err != nil {
		a.respondProviderError(w, err)
		return
	}

	journeys, err := a.provider.SearchJourneys(r.Context(), s, q.Get("originId"), q.Get("destinationId"), date)
	if err != nil {
		a.respondProviderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, journeys)
}

func (a *api) handleInvalidateSession(w http.ResponseWriter, r *http.Request) {
	a.invalidation.InvalidateSession(r.Context(), chi.URLParam(r, "sessionID"))
	respondInvalidated(w, "session")
}

func (a *api) handleInvalidateLocations(w http.ResponseWriter, r *http.Request) {
	a.invalidation.InvalidateLocations(r.Context(), r.URL.Query().Get("search"))
	respondInvalidated(w, "locations")
}

func (a *api) handleInvalidateJourneys(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := parseDate(q.Get("departureDate"))
	if err != nil {
		respondError(w, http.StatusBadRequest, provider.CodeValidation, err.Error())
		return
	}
	if q.Get("originId") == "" || q.Get("destinationId") == "" {
		respondError(w, http.StatusBadRequest, provider.CodeValidation, "originId and destinationId are required")
		return
	}

	a.invalidation.InvalidateJourneys(r.Context(), q.Get("originId"), q.Get("destinationId"), date)
	respondInvalidated(w, "journeys")
}

func (a *api) handleInvalidateAllLocations(w http.ResponseWriter, r *http.Request) {
	a.invalidation.InvalidateAllLocations(r.Context())
	respondInvalidated(w, "all_locations")
}

func (a *api) handleInvalidateAllJourneys(w http.ResponseWriter, r *http.Request) {
	a.invalidation.InvalidateAllJourneys(r.Context())
	respondInvalidated(w, "all_journeys")
}

func (a *api) handleClear(w http.ResponseWriter, r *http.Request) {
	a.invalidation.ClearAll(r.Context())
	respondInvalidated(w, "all")
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.invalidation.Status())
}

// session reconciles the cookie handle and refreshes the cookies when a new
// session was issued.
func (a *api) session(w http.ResponseWriter, r *http.Request) (model.Session, error) {
	var existing *model.Session
	sid, errS := r.Cookie(sessionCookie)
	did, errD := r.Cookie(deviceCookie)
	if errS == nil && errD == nil {
		existing = &model.Session{SessionID: sid.Value, DeviceID: did.Value}
	}

	s, err := a.sessions.GetOrCreateSession(r.Context(), existing)
	if err != nil {
		return model.Session{}, err
	}

	if existing == nil || *existing != s {
		setSessionCookies(w, s)
	}
	return s, nil
}

func setSessionCookies(w http.ResponseWriter, s model.Session) {
	for name, value := range map[string]string{sessionCookie: s.SessionID, deviceCookie: s.DeviceID} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int(cache.SessionTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("departureDate is required")
	}
	date, err := time.ParseInLocation(cache.DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("departureDate must be yyyy-MM-dd")
	}
	return date, nil
}

type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *api) respondProviderError(w http.ResponseWriter, err error) {
	status := provider.HTTPStatus(err)
	code, message := provider.CodeGateway, "internal error"
	if e, ok := provider.AsError(err); ok {
		code, message = e.Code, e.Message
	}
	respondError(w, status, code, message)
}

func respondInvalidated(w http.ResponseWriter, target string) {
	respondJSON(w, http.StatusOK, map[string]any{
		"invalidated": target,
		"timestamp":   time.Now().UTC(),
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
