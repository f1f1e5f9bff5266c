package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Response is the JSON body sent with 429 Too Many Requests.
type Response struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	RetryAfter string    `json:"retryAfter"`
	Timestamp  time.Time `json:"timestamp"`
}

// ClientIDFunc derives the rate limit identity of a request.
type ClientIDFunc func(r *http.Request) string

// ClientIP identifies a client by the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests beyond the limiter's window with 429.
// Limiter failures let the request through.
func Middleware(limiter Limiter, clientID ClientIDFunc, logger zerolog.Logger) func(http.Handler) http.Handler {
	if clientID == nil {
		clientID = ClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)

			state, err := limiter.Allow(r.Context(), id)
			if err != nil {
				rateLimitRequestsTotal.WithLabelValues("error").Inc()
				logger.Error().Err(err).Str("client_id", id).Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(state.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(state.Remaining()))

			if state.Allowed() {
				rateLimitRequestsTotal.WithLabelValues("allowed").Inc()
				next.ServeHTTP(w, r)
				return
			}

			rateLimitRequestsTotal.WithLabelValues("blocked").Inc()
			now := time.Now()
			retryAfter := strconv.Itoa(int(state.RetryAfter(now) / time.Second))

			logger.Warn().
				Str("client_id", id).
				Str("path", r.URL.Path).
				Int("count", state.Count).
				Int("limit", state.Limit).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(Response{
				Error:      "Rate limit exceeded",
				Message:    "Too many requests. Please wait before retrying.",
				RetryAfter: retryAfter,
				Timestamp:  now.UTC(),
			})
		})
	}
}
