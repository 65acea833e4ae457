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

// MySQLOptions configures StartMySQL. Zero values take the defaults.
type MySQLOptions struct {
	ImageTag       string
	Username       string
	Password       string
	Database       string
	StartupTimeout time.Duration
}

func (o MySQLOptions) withDefaults() MySQLOptions {
	if o.ImageTag == "" {
		o.ImageTag = "8.4"
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
		o.StartupTimeout = 90 * time.Second
	}
	return o
}

// StartMySQL starts a MySQL server from the official image, skipping the test
// without Docker.
func StartMySQL(ctx context.Context, t *testing.T, opts MySQLOptions) (*Database, error) {
	t.Helper()
	skipWithoutDocker(ctx, t)
	opts = opts.withDefaults()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        fmt.Sprintf("mysql:%s", opts.ImageTag),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": opts.Password,
				"MYSQL_USER":          opts.Username,
				"MYSQL_PASSWORD":      opts.Password,
				"MYSQL_DATABASE":      opts.Database,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("port: 3306  MySQL Community Server"),
				wait.ForListeningPort("3306/tcp"),
			).WithDeadline(opts.StartupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	return describe(ctx, container, "3306/tcp", &config.DatabaseConfig{
		Type:     types.MySQL,
		Database: opts.Database,
		Username: opts.Username,
		Password: opts.Password,
	})
}
