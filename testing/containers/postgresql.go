//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gaborage/querykit/config"
	"github.com/gaborage/querykit/database/types"
)

// PostgreSQLOptions configures StartPostgreSQL. Zero values take the defaults.
type PostgreSQLOptions struct {
	ImageTag       string
	Username       string
	Password       string
	Database       string
	StartupTimeout time.Duration
}

func (o PostgreSQLOptions) withDefaults() PostgreSQLOptions {
	if o.ImageTag == "" {
		o.ImageTag = "17-alpine"
	}
	if o.Username == "" {
		o.Username = "querykit"
	}
	if o.Password == "" {
		o.Password = "querykit"
	}
	if o.Database == "" {
		o.Database = "querykit"
	}
	if o.StartupTimeout == 0 {
		o.StartupTimeout = 60 * time.Second
	}
	return o
}

// StartPostgreSQL starts a PostgreSQL server, skipping the test without Docker.
func StartPostgreSQL(ctx context.Context, t *testing.T, opts PostgreSQLOptions) (*Database, error) {
	t.Helper()
	skipWithoutDocker(ctx, t)
	opts = opts.withDefaults()

	container, err := postgres.Run(ctx,
		fmt.Sprintf("postgres:%s", opts.ImageTag),
		postgres.WithDatabase(opts.Database),
		postgres.WithUsername(opts.Username),
		postgres.WithPassword(opts.Password),
		testcontainers.WithWaitStrategy(
			// the server restarts once after initdb
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(opts.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	return describe(ctx, container, "5432/tcp", &config.DatabaseConfig{
		Type:       types.PostgreSQL,
		Database:   opts.Database,
		Username:   opts.Username,
		Password:   opts.Password,
		PostgreSQL: config.PostgreSQLConfig{SSLMode: "disable"},
	})
}
