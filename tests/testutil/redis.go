package testutil

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	redisImage              = "redis:7-alpine"
	redisStartupTimeout     = 60 * time.Second
	redisCtxTimeout         = 10 * time.Second
	redisContainerMemoryMax = 128 * 1024 * 1024
)

var (
	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// startRedis runs one Redis container for the whole test binary. Ryuk
// removes it when the process exits.
func startRedis() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisStartupTimeout)
	defer cancel()

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        redisImage,
			ExposedPorts: []string{"6379/tcp"},
			HostConfigModifier: func(hc *container.HostConfig) {
				hc.Memory = redisContainerMemoryMax
				hc.MemorySwap = redisContainerMemoryMax
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections").WithStartupTimeout(redisStartupTimeout),
				wait.ForListeningPort("6379/tcp").WithStartupTimeout(redisStartupTimeout),
			),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start Redis container: %w", err)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := cont.MappedPort(ctx, "6379")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return net.JoinHostPort(host, port.Port()), nil
}

// SetupTestRedis returns a client connected to the shared Redis container
// and a key prefix unique to the test. The test is skipped under -short or
// when Docker is unavailable.
func SetupTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	SkipIfShort(t)

	redisOnce.Do(func() {
		redisAddr, redisErr = startRedis()
	})
	if redisErr != nil {
		t.Skipf("redis container unavailable: %v", redisErr)
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), redisCtxTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to ping Redis: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	prefix := "test:" + strings.ReplaceAll(t.Name(), "/", ":") + ":"
	return client, prefix
}
