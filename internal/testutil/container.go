// Package testutil provides container-backed test fixtures for the persistence backends.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

// startContainer runs req and returns the container with the host and port
// mapped for its first exposed port. The calling test is skipped under -short.
// The container is terminated when the test ends.
func startContainer(t *testing.T, req testcontainers.ContainerRequest) (testcontainers.Container, string, int) {
	t.Helper()
	if testing.Short() {
		t.Skipf("skipping %s container in -short mode", req.Image)
	}
	ctx := context.Background()
	start := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v [%s]", req.Image, err, time.Since(start))
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("resolving %s host: %v", req.Image, err)
	}
	port, err := c.MappedPort(ctx, req.ExposedPorts[0])
	if err != nil {
		t.Fatalf("resolving %s port: %v", req.Image, err)
	}
	t.Logf("%s up at %s:%d [%s]", req.Image, host, port.Int(), time.Since(start))
	return c, host, port.Int()
}
