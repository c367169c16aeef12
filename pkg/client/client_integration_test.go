//go:build integration

package client

import (
	"context"
	"testing"

	"github.com/Sternrassler/astronews/internal/testutil"
	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/Sternrassler/astronews/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() {
		client.Close()
		_ = container.Terminate(context.Background())
	})
	return client
}

// TestIntegration_FeedOverCachedSource drives a controller over the HTTP
// client with a real redis cache and checks that refresh bypasses cached
// pages.
func TestIntegration_FeedOverCachedSource(t *testing.T) {
	mock := testutil.NewMockNews(20)
	defer mock.Close()

	c := newTestClient(t, mock.URL(), setupRedisContainer(t))

	nop := zerolog.Nop()
	cfg := feed.DefaultConfig()
	cfg.Logger = &nop

	ctrl, err := feed.NewController(pagination.NewFetcher(c), cfg)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	defer ctrl.Close()

	ctx := context.Background()
	for ctrl.HasMore() {
		if _, err := ctrl.LoadMore(ctx); err != nil {
			t.Fatalf("LoadMore() error = %v", err)
		}
	}

	if got := len(ctrl.Items()); got != 20 {
		t.Fatalf("items = %d, want 20", got)
	}

	// New articles at the head of the collection must show up after refresh.
	mock.Prepend(testutil.GenerateArticles(100, 3)...)

	if _, err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	items := ctrl.Items()
	if len(items) != 9 {
		t.Fatalf("items after refresh = %d, want 9", len(items))
	}
	if items[0].ID != "100" {
		t.Errorf("first item = %q, want 100", items[0].ID)
	}
	if mock.GetConditionalCount() != 0 {
		t.Errorf("conditional requests = %d, want 0", mock.GetConditionalCount())
	}
}
