//go:build integration

package provider

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/bus-search-gateway/internal/testutil"
	"github.com/Sternrassler/bus-search-gateway/pkg/cache"
	"github.com/Sternrassler/bus-search-gateway/pkg/model"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newRedisGateway(t *testing.T, redisClient *redis.Client) (*Gateway, *testutil.MockProvider, *cache.Manager) {
	t.Helper()

	mock := testutil.NewMockProvider()
	t.Cleanup(mock.Close)

	logger := zerolog.Nop()
	store := cache.NewManager(cache.NewRedisBackend(redisClient, "bus:"), logger)

	cfg := DefaultConfig(store, mock.URL())
	cfg.Location = time.UTC
	cfg.Logger = &logger

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create gateway: %v", err)
	}
	return g, mock, store
}

func TestIntegration_FullSearchFlow(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	g, mock, _ := newRedisGateway(t, redisClient)
	mock.SetLocationsResponse(testutil.NewLocation(349, "Istanbul Avrupa"))
	mock.SetJourneysResponse(
		testutil.NewJourney(1, 0, "2030-01-02T08:00:00", "2030-01-02T14:00:00"),
		testutil.NewJourney(2, 12, "2030-01-02T09:00:00", "2030-01-02T15:00:00"),
	)

	ctx := context.Background()

	// Step 1: session handshake
	session, err := g.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if n, err := redisClient.Exists(ctx, "bus:"+cache.SessionKey(session.SessionID)).Result(); err != nil || n != 1 {
		t.Errorf("session key missing in redis (n=%d, err=%v)", n, err)
	}

	// Step 2: locations, second call served by redis
	for i := 0; i < 2; i++ {
		locations, err := g.SearchLocations(ctx, session, "ist")
		if err != nil {
			t.Fatalf("SearchLocations failed: %v", err)
		}
		if len(locations) != 1 || locations[0].ID != "349" {
			t.Errorf("locations = %+v", locations)
		}
	}
	if got := mock.GetPathCount(testutil.LocationsPath); got != 1 {
		t.Errorf("location requests = %d, want 1", got)
	}

	ttl, err := redisClient.TTL(ctx, "bus:"+cache.LocationsKey("ist")).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > cache.LocationsTTL {
		t.Errorf("locations TTL = %v, want (0, %v]", ttl, cache.LocationsTTL)
	}

	// Step 3: journeys
	date := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	journeys, err := g.SearchJourneys(ctx, session, "349", "356", date)
	if err != nil {
		t.Fatalf("SearchJourneys failed: %v", err)
	}
	if len(journeys) != 1 || journeys[0].ID != 2 {
		t.Errorf("journeys = %+v, want only id 2", journeys)
	}

	var cached []model.Journey
	if !g.cache.Get(ctx, cache.JourneysKey("349", "356", date), &cached) || len(cached) != 1 {
		t.Errorf("journeys should be cached, got %+v", cached)
	}
}

func TestIntegration_CacheExpiration(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	g, mock, store := newRedisGateway(t, redisClient)
	ctx := context.Background()

	store.Set(ctx, cache.LocationsKey(""), []model.Location{{ID: "1", Name: "Ankara"}}, time.Second)

	if _, err := g.SearchLocations(ctx, model.Session{}, ""); err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Fatalf("requests = %d, want 0", mock.GetRequestCount())
	}

	time.Sleep(1500 * time.Millisecond)

	// Expired: falls through to the session check
	_, err := g.SearchLocations(ctx, model.Session{}, "")
	if !IsKind(err, KindParameter) {
		t.Errorf("expected parameter error after expiry, got %v", err)
	}
}
