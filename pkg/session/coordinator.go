// Package session reconciles a caller-supplied provider session handle with the gateway.
package session

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/bus-search-gateway/pkg/model"
	"github.com/Sternrassler/bus-search-gateway/pkg/provider"
)

// Creator mints new provider sessions. *provider.Gateway implements it.
type Creator interface {
	CreateSession(ctx context.Context) (model.Session, error)
}

// Coordinator hands out a usable session for every request.
type Coordinator struct {
	creator Creator
	logger  zerolog.Logger
}

// NewCoordinator creates a coordinator backed by creator.
func NewCoordinator(creator Creator, logger zerolog.Logger) *Coordinator {
	if creator == nil {
		panic("session creator must not be nil")
	}
	return &Coordinator{
		creator: creator,
		logger:  logger,
	}
}

// GetOrCreateSession returns existing unchanged when both of its ids are set.
// The handle is trusted as is; there is no freshness check against the cache.
// Otherwise a new session is created through the gateway.
func (c *Coordinator) GetOrCreateSession(ctx context.Context, existing *model.Session) (model.Session, error) {
	if existing != nil && usable(*existing) {
		c.logger.Debug().
			Str("session_id", existing.SessionID).
			Msg("Reusing caller session")
		return *existing, nil
	}

	session, err := c.creator.CreateSession(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to obtain provider session")
		return model.Session{}, provider.WrapUnexpected(err, provider.CodeGateway, "session could not be created")
	}

	c.logger.Info().
		Str("session_id", session.SessionID).
		Msg("New provider session issued")
	return session, nil
}

func usable(s model.Session) bool {
	return strings.TrimSpace(s.SessionID) != "" && strings.TrimSpace(s.DeviceID) != ""
}
