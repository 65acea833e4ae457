//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/types"
)

// OracleOptions configures StartOracle. Zero values take the defaults.
type OracleOptions struct {
	ImageTag string
	Password string
	// Service is the pluggable database to connect to.
	Service        string
	AppUser        string
	StartupTimeout time.Duration
}

func (o OracleOptions) withDefaults() OracleOptions {
	if o.ImageTag == "" {
		o.ImageTag = "23-slim"
	}
	if o.Password == "" {
		o.Password = "querykit"
	}
	if o.Service == "" {
		o.Service = "FREEPDB1"
	}
	if o.AppUser == "" {
		o.AppUser = "querykit"
	}
	if o.StartupTimeout == 0 {
		o.StartupTimeout = 180 * time.Second
	}
	return o
}

// StartOracle starts Oracle Free from the gvenzl/oracle-free image, skipping the
// test without Docker. Startup takes minutes on a cold image cache.
func StartOracle(ctx context.Context, t *testing.T, opts OracleOptions) (*Database, error) {
	t.Helper()
	skipWithoutDocker(ctx, t)
	opts = opts.withDefaults()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        fmt.Sprintf("gvenzl/oracle-free:%s", opts.ImageTag),
			ExposedPorts: []string{"1521/tcp"},
			Env: map[string]string{
				"ORACLE_PASSWORD":   opts.Password,
				"APP_USER":          opts.AppUser,
				"APP_USER_PASSWORD": opts.Password,
			},
			WaitingFor: wait.ForLog("DATABASE IS READY TO USE!").WithStartupTimeout(opts.StartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Oracle container: %w", err)
	}

	return describe(ctx, container, "1521/tcp", &config.DatabaseConfig{
		Type:     types.Oracle,
		Username: opts.AppUser,
		Password: opts.Password,
		Oracle:   config.OracleConfig{Service: config.ServiceConfig{Name: opts.Service}},
	})
}
