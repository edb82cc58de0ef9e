package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisContainer is a throwaway redis for the redis store and event bus tests.
type RedisContainer struct {
	container testcontainers.Container
	Addr      string
	Client    *goredis.Client
}

// NewRedisContainer starts redis:7-alpine and returns a pinged client.
//
// Precondition: Docker must be available.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	c, host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("pinging test redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return &RedisContainer{container: c, Addr: addr, Client: client}
}

// Reset flushes the database the client is connected to.
func (rc *RedisContainer) Reset(t *testing.T) {
	t.Helper()
	if err := rc.Client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing redis: %v", err)
	}
}
