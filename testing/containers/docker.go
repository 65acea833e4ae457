//go:build integration

// Package containers starts throwaway database servers for querykit's integration
// tests and describes each one as a config.DatabaseConfig.
package containers

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"

	"github.com/gaborage/querykit/config"
)

// isDockerAvailable reports whether the Docker daemon answers.
func isDockerAvailable(ctx context.Context) bool {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

func skipWithoutDocker(ctx context.Context, t *testing.T) {
	t.Helper()
	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
	}
}

// Database is a running container plus the configuration that reaches it.
type Database struct {
	container testcontainers.Container
	Config    *config.DatabaseConfig
}

// Terminate stops and removes the container.
func (d *Database) Terminate(ctx context.Context) error {
	if d == nil || d.container == nil {
		return nil
	}
	return d.container.Terminate(ctx)
}

// WithCleanup terminates the container when the test finishes.
func (d *Database) WithCleanup(t *testing.T) *Database {
	t.Helper()
	t.Cleanup(func() {
		if err := d.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate %s container: %v", d.Config.Type, err)
		}
	})
	return d
}

// describe fills the host and mapped port of cfg from container.
func describe(ctx context.Context, container testcontainers.Container, port nat.Port, cfg *config.DatabaseConfig) (*Database, error) {
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get %s container host: %w", cfg.Type, err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get %s container port: %w", cfg.Type, err)
	}
	cfg.Host = host
	cfg.Port = mapped.Int()
	return &Database{container: container, Config: cfg}, nil
}
