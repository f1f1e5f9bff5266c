//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client.
func setupRedisContainer(t *testing.T) *redis.Client {
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

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})

	return client
}

func TestIntegration_RedisManagerRoundTrip(t *testing.T) {
	client := setupRedisContainer(t)
	manager := NewManager(NewRedisBackend(client, "bus:"), zerolog.Nop())
	ctx := context.Background()

	type location struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	want := []location{{ID: "349", Name: "İstanbul Avrupa"}, {ID: "356", Name: "Ankara"}}

	manager.Set(ctx, LocationsKey("Ist"), want, LocationsTTL)

	var got []location
	if !manager.Get(ctx, LocationsKey("ist"), &got) {
		t.Fatal("expected cache hit")
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	ttl := client.TTL(ctx, "bus:"+LocationsKey("ist")).Val()
	if ttl <= 0 || ttl > LocationsTTL {
		t.Errorf("redis TTL = %v, want (0, %v]", ttl, LocationsTTL)
	}
}

func TestIntegration_RedisTTLExpiration(t *testing.T) {
	client := setupRedisContainer(t)
	manager := NewManager(NewRedisBackend(client, "bus:"), zerolog.Nop())
	ctx := context.Background()

	manager.Set(ctx, SessionKey("short"), map[string]string{"session_id": "short"}, 1*time.Second)

	var got map[string]string
	if !manager.Get(ctx, SessionKey("short"), &got) {
		t.Fatal("entry should be present immediately after Set")
	}

	time.Sleep(1500 * time.Millisecond)

	if manager.Get(ctx, SessionKey("short"), &got) {
		t.Error("entry should be absent after TTL elapsed")
	}
}

func TestIntegration_RedisClearWithManyKeys(t *testing.T) {
	client := setupRedisContainer(t)
	backend := NewRedisBackend(client, "bus:")
	ctx := context.Background()

	for i := 0; i < 3*clearBatchSize+7; i++ {
		if err := backend.Set(ctx, JourneysKey("1", "2", time.Now().AddDate(0, 0, i)), []byte("[]"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := backend.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := client.Keys(ctx, "bus:*").Result()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("%d keys survived Clear", len(keys))
	}
}
