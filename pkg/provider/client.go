// Package provider is the gateway to the third-party bus booking provider.
//
// It creates provider sessions, searches locations and journeys, maps the provider
// payloads into the domain model and populates the response cache. Every outbound
// call goes through the retry executor.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/bus-search-gateway/pkg/cache"
	"github.com/Sternrassler/bus-search-gateway/pkg/model"
	"github.com/Sternrassler/bus-search-gateway/pkg/retry"
)

// Provider is the set of operations the gateway offers to callers.
type Provider interface {
	CreateSession(ctx context.Context) (model.Session, error)
	SearchLocations(ctx context.Context, session model.Session, searchTerm string) ([]model.Location, error)
	SearchJourneys(ctx context.Context, session model.Session, originID, destinationID string, departureDate time.Time) ([]model.Journey, error)
}

// Retrier runs a single outbound call with retries.
type Retrier interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

var _ Provider = (*Gateway)(nil)

// Gateway talks to the provider.
type Gateway struct {
	httpClient *http.Client
	cache      cache.Store
	retry      Retrier
	config     Config
	logger     zerolog.Logger
	now        func() time.Time
}

// Config holds the gateway configuration.
type Config struct {
	// BaseURL of the provider API (REQUIRED)
	BaseURL string

	// APIKey is sent as "Authorization: Basic <key>" when set
	APIKey string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Language sent with every search
	Language string

	// Cache for sessions, locations and journeys (REQUIRED)
	Cache cache.Store

	// Retry executor; defaults to retry.DefaultPolicy
	Retry Retrier

	// CacheJourneys enables caching of journey search results for cache.JourneysTTL
	CacheJourneys bool

	// Location used for provider timestamps without a zone
	Location *time.Location

	// Logger; defaults to the global logger with component=provider-gateway
	Logger *zerolog.Logger

	// Clock; defaults to time.Now
	Clock func() time.Time
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(store cache.Store, baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       30 * time.Second,
		Language:      "tr-TR",
		Cache:         store,
		CacheJourneys: true,
		Location:      time.Local,
	}
}

// New creates a new provider gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache store is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	if cfg.Language == "" {
		cfg.Language = "tr-TR"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "provider-gateway").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	retrier := cfg.Retry
	if retrier == nil {
		retrier = retry.New(retry.DefaultPolicy(), logger)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Gateway{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		retry:  retrier,
		config: cfg,
		logger: logger,
		now:    now,
	}, nil
}

// CreateSession performs the provider handshake and caches the new session for
// cache.SessionTTL.
func (g *Gateway) CreateSession(ctx context.Context) (model.Session, error) {
	const operation = "create_session"
	logger := g.callLogger(operation)
	logger.Info().Msg("Creating provider session")

	req := sessionRequest{
		Type: sessionType,
		Connection: sessionConnection{
			IPAddress: handshakeIP,
			Port:      handshakePort,
		},
		Browser: sessionBrowser{
			Name:    handshakeBrowser,
			Version: handshakeVersion,
		},
	}

	status, body, err := g.post(ctx, operation, PathSession, req)
	if err != nil {
		return model.Session{}, g.fail(logger, CodeGateway, "session could not be created", err)
	}
	if !isSuccess(status) {
		return model.Session{}, g.fail(logger, CodeGateway, "",
			externalError(status, fmt.Sprintf("session could not be created: HTTP %d", status)))
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data == nil ||
		resp.Data.SessionID == "" || resp.Data.DeviceID == "" {
		return model.Session{}, g.fail(logger, CodeGateway, "",
			externalError(http.StatusInternalServerError, "invalid session response format"))
	}

	session := model.Session{
		SessionID: resp.Data.SessionID,
		DeviceID:  resp.Data.DeviceID,
	}
	g.cache.Set(ctx, cache.SessionKey(session.SessionID), session, cache.SessionTTL)

	logger.Info().Str("session_id", session.SessionID).Msg("Provider session created")
	return session, nil
}

// SearchLocations returns the locations matching searchTerm; an empty term lists
// every location. A cached result is returned without touching the provider.
func (g *Gateway) SearchLocations(ctx context.Context, session model.Session, searchTerm string) ([]model.Location, error) {
	const operation = "search_locations"
	logger := g.callLogger(operation)

	key := cache.LocationsKey(searchTerm)
	var cached []model.Location
	if g.cache.Get(ctx, key, &cached) {
		logger.Info().
			Str("search_term", searchTerm).
			Int("count", len(cached)).
			Bool("cache_hit", true).
			Msg("Locations served from cache")
		return cached, nil
	}

	if err := validateSession(session); err != nil {
		return nil, g.fail(logger, CodeGateway, "", err)
	}

	logger.Info().
		Str("search_term", searchTerm).
		Bool("cache_hit", false).
		Msg("Fetching locations from provider")

	req := locationsRequest{
		Data:          searchTerm,
		DeviceSession: toDeviceSession(session),
		Date:          g.now().Format(cache.DateLayout),
		Language:      g.config.Language,
	}

	status, body, err := g.post(ctx, operation, PathLocations, req)
	if err != nil {
		return nil, g.fail(logger, CodeGateway, "locations could not be fetched", err)
	}
	if !isSuccess(status) {
		return nil, g.fail(logger, CodeGateway, "",
			externalError(status, fmt.Sprintf("locations could not be fetched: HTTP %d", status)))
	}

	var resp locationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, g.fail(logger, CodeGateway, "locations could not be fetched",
			fmt.Errorf("decode locations response: %w", err))
	}

	if resp.Data == nil {
		logger.Warn().Msg("No locations found or invalid response format")
		return []model.Location{}, nil
	}

	locations := toLocations(resp.Data)
	g.cache.Set(ctx, key, locations, cache.LocationsTTL)

	logger.Info().Int("count", len(locations)).Msg("Locations fetched and cached")
	return locations, nil
}

// SearchJourneys returns the journeys with free seats for one route and date.
func (g *Gateway) SearchJourneys(ctx context.Context, session model.Session, originID, destinationID string, departureDate time.Time) ([]model.Journey, error) {
	const operation = "search_journeys"
	logger := g.callLogger(operation)

	if err := validateSession(session); err != nil {
		return nil, g.fail(logger, CodeJourneySearch, "", err)
	}
	origin, destination, err := validateRoute(originID, destinationID, departureDate, g.now())
	if err != nil {
		return nil, g.fail(logger, CodeJourneySearch, "", err)
	}

	date := departureDate.Format(cache.DateLayout)
	logger = logger.With().
		Str("origin_id", originID).
		Str("destination_id", destinationID).
		Str("departure_date", date).
		Logger()

	key := cache.JourneysKey(originID, destinationID, departureDate)
	if g.config.CacheJourneys {
		var cached []model.Journey
		if g.cache.Get(ctx, key, &cached) {
			logger.Info().Int("count", len(cached)).Bool("cache_hit", true).Msg("Journeys served from cache")
			return cached, nil
		}
	}

	logger.Info().Bool("cache_hit", false).Msg("Fetching journeys from provider")

	req := journeysRequest{
		DeviceSession: toDeviceSession(session),
		Date:          g.now().Format(cache.DateLayout),
		Language:      g.config.Language,
		Data: journeysQuery{
			OriginID:      origin,
			DestinationID: destination,
			DepartureDate: date,
		},
	}

	status, body, err := g.post(ctx, operation, PathJourneys, req)
	if err != nil {
		return nil, g.fail(logger, CodeJourneySearch, "journeys could not be fetched", err)
	}
	if !isSuccess(status) {
		return nil, g.fail(logger, CodeJourneySearch, "",
			externalError(status, fmt.Sprintf("journeys could not be fetched: HTTP %d", status)))
	}

	var resp journeysResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, g.fail(logger, CodeJourneySearch, "journeys could not be fetched",
			fmt.Errorf("decode journeys response: %w", err))
	}

	if resp.Data == nil {
		logger.Warn().Msg("No journeys found or invalid response format")
		return []model.Journey{}, nil
	}

	journeys, dropped := toAvailableJourneys(resp.Data, g.config.Location, g.now())
	journeysFilteredTotal.Add(float64(dropped))

	if g.config.CacheJourneys {
		g.cache.Set(ctx, key, journeys, cache.JourneysTTL)
	}

	logger.Info().
		Int("count", len(journeys)).
		Int("dropped_full", dropped).
		Msg("Journeys fetched")
	return journeys, nil
}

// post sends body as JSON to path through the retry executor and returns the
// final status code and response body. Only transport failures are errors.
func (g *Gateway) post(ctx context.Context, operation, path string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s request: %w", operation, err)
	}

	startTime := time.Now()
	defer func() {
		providerRequestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	var status int
	var respBody []byte

	err = g.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if g.config.APIKey != "" {
			req.Header.Set("Authorization", "Basic "+g.config.APIKey)
		}

		g.logger.Debug().
			Str("operation", operation).
			Str("path", path).
			Msg("Executing provider request")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			providerRequestsTotal.WithLabelValues(operation, "network_error").Inc()
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			providerRequestsTotal.WithLabelValues(operation, "network_error").Inc()
			return retry.MarkTransient(fmt.Errorf("read response body: %w", err))
		}

		providerRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()
		status = resp.StatusCode
		respBody = data
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return status, respBody, nil
}

// fail classifies err, logs the terminal failure and returns the boundary error.
// Already classified errors pass through unchanged.
func (g *Gateway) fail(logger zerolog.Logger, code, message string, err error) error {
	var out *Error
	switch e, ok := AsError(err); {
	case ok:
		out = e
	case retry.IsTransient(err):
		out = transientError(err)
	default:
		out = WrapUnexpected(err, code, message).(*Error)
	}

	providerErrorsTotal.WithLabelValues(out.Kind.String()).Inc()

	event := logger.Error()
	if out.Kind == KindParameter {
		event = logger.Warn()
	}
	event.Err(out.Err).
		Str("kind", out.Kind.String()).
		Str("code", out.Code).
		Int("status_code", out.StatusCode).
		Msg(out.Message)

	return out
}

func (g *Gateway) callLogger(operation string) zerolog.Logger {
	return g.logger.With().
		Str("operation", operation).
		Str("call_id", uuid.NewString()).
		Logger()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (g *Gateway) SetHTTPClient(client *http.Client) {
	g.httpClient = client
}

func toDeviceSession(session model.Session) deviceSession {
	return deviceSession{
		SessionID: session.SessionID,
		DeviceID:  session.DeviceID,
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
