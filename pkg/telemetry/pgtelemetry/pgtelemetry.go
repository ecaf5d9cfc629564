// Package pgtelemetry implements telemetry.Telemetry over a PostgreSQL
// connection, standing in for the original's VMS database link that
// mcpDomCtrl.c's vms_set_vm_state calls pushed partition state to.
package pgtelemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/metrics"
	"github.com/flightos/mcpd/pkg/telemetry"
)

// Config configures the connection pool and the bounded retry loop
// Connect runs, matching spec.md §5's "opened at startup with bounded
// retry (configurable connect_delay, connect_retries)".
type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Database       string        `mapstructure:"database"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	ConnectDelay   time.Duration `mapstructure:"connect_delay"`
	ConnectRetries int           `mapstructure:"connect_retries"`
}

// ApplyDefaults fills in conventional retry parameters.
func (c *Config) ApplyDefaults() {
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.ConnectDelay <= 0 {
		c.ConnectDelay = time.Second
	}
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 5
	}
}

// Validate checks the fields Connect needs to build a DSN.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("pgtelemetry: host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("pgtelemetry: database is required")
	}
	return nil
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.User, c.Password, c.SSLMode,
	)
}

// Client pushes partition VM state changes into a "vm_state" table via a
// pgxpool connection pool.
type Client struct {
	cfg     Config
	pool    *pgxpool.Pool
	metrics metrics.VMSMetrics
}

// New builds a Client; call Connect before using it. m may be nil to
// disable metrics collection.
func New(cfg Config, m metrics.VMSMetrics) *Client {
	cfg.ApplyDefaults()
	return &Client{cfg: cfg, metrics: m}
}

var _ telemetry.Telemetry = (*Client)(nil)

// Connect opens the connection pool, retrying up to ConnectRetries times
// with ConnectDelay between attempts. A failure after exhausting
// retries is returned to the caller, who per spec.md §5 must not abort
// startup on it.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	poolConfig, err := pgxpool.ParseConfig(c.cfg.dsn())
	if err != nil {
		return fmt.Errorf("pgtelemetry: parse connection string: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("telemetry connection retry", "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ConnectDelay):
			}
		}

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = err
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			lastErr = err
			continue
		}

		c.pool = pool
		if c.metrics != nil {
			c.metrics.RecordConnectAttempt(true, time.Since(start))
			c.metrics.SetConnected(true)
		}
		logger.Info("telemetry connection established", "host", c.cfg.Host, "database", c.cfg.Database)
		return nil
	}

	if c.metrics != nil {
		c.metrics.RecordConnectAttempt(false, time.Since(start))
		c.metrics.SetConnected(false)
	}
	return fmt.Errorf("pgtelemetry: exhausted %d retries: %w", c.cfg.ConnectRetries, lastErr)
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

const upsertVMState = `
INSERT INTO vm_state (partition_name, state, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (partition_name) DO UPDATE
SET state = excluded.state, updated_at = excluded.updated_at
`

const insertStatus = `
INSERT INTO status_log (message, logged_at)
VALUES ($1, now())
`

// SetVMState reports a partition's new observed state. Errors are
// returned to the caller (the partition controller), which treats every
// telemetry failure as non-fatal per spec.md §4.7's reconciliation
// contract.
func (c *Client) SetVMState(ctx context.Context, name string, state telemetry.VMState) error {
	start := time.Now()
	if c.pool == nil {
		err := fmt.Errorf("pgtelemetry: not connected")
		if c.metrics != nil {
			c.metrics.RecordPush("vm_state", err, time.Since(start))
		}
		return err
	}
	_, err := c.pool.Exec(ctx, upsertVMState, name, state.String())
	if c.metrics != nil {
		c.metrics.RecordPush("vm_state", err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("pgtelemetry: set vm state for %q: %w", name, err)
	}
	return nil
}

// Status forwards a log message to the status_log table, matching
// mcp_log's redirect-to-vms_status_update behavior once VMS is
// connected. The caller treats a failure here as non-fatal to the log
// call that triggered it.
func (c *Client) Status(ctx context.Context, text string) error {
	start := time.Now()
	if c.pool == nil {
		err := fmt.Errorf("pgtelemetry: not connected")
		if c.metrics != nil {
			c.metrics.RecordPush("status", err, time.Since(start))
		}
		return err
	}
	_, err := c.pool.Exec(ctx, insertStatus, text)
	if c.metrics != nil {
		c.metrics.RecordPush("status", err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("pgtelemetry: status update: %w", err)
	}
	return nil
}
