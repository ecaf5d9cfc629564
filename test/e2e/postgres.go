//go:build e2e

// Package e2e holds tests that need a real PostgreSQL backend rather
// than the in-process sqlite used by the rest of the suite, run only
// under the e2e build tag since they require a Docker daemon.
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresHelper manages a PostgreSQL container (or an externally
// configured instance) for tests exercising mcpd's postgres-backed
// mission control table.
type PostgresHelper struct {
	Container testcontainers.Container
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
}

var sharedPostgresHelper *PostgresHelper

// NewPostgresHelper returns a shared PostgreSQL helper for the test
// run, starting a container on first use (or reusing POSTGRES_HOST if
// set, for CI environments with an externally managed instance).
func NewPostgresHelper(t *testing.T) *PostgresHelper {
	t.Helper()

	if sharedPostgresHelper != nil {
		return sharedPostgresHelper
	}

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		sharedPostgresHelper = &PostgresHelper{
			Host:     host,
			Port:     5432,
			Database: envOr("POSTGRES_DATABASE", "mcpd_e2e"),
			User:     envOr("POSTGRES_USER", "mcpd_e2e"),
			Password: envOr("POSTGRES_PASSWORD", "mcpd_e2e"),
		}
		return sharedPostgresHelper
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mcpd_e2e"),
		postgres.WithUsername("mcpd_e2e"),
		postgres.WithPassword("mcpd_e2e"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("get container port: %v", err)
	}

	sharedPostgresHelper = &PostgresHelper{
		Container: container,
		Host:      host,
		Port:      port.Int(),
		Database:  "mcpd_e2e",
		User:      "mcpd_e2e",
		Password:  "mcpd_e2e",
	}
	return sharedPostgresHelper
}

// DSN returns a postgres:// connection string for the helper's instance.
func (ph *PostgresHelper) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		ph.User, ph.Password, ph.Host, ph.Port, ph.Database)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
