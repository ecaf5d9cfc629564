// Package cmdutil holds flag state shared across mcpctl's subcommands.
package cmdutil

import (
	"fmt"

	"github.com/flightos/mcpd/internal/cli/output"
	"github.com/flightos/mcpd/internal/config"
	"github.com/flightos/mcpd/internal/mct"
)

// GlobalFlags holds the persistent flag values synced from the root
// command, read by subcommands instead of threading cobra flags through
// every call.
var GlobalFlags struct {
	ConfigPath string
	PIDFile    string
	Output     string
}

// OutputFormat parses the --output flag into an output.Format.
func OutputFormat() (output.Format, error) {
	return output.ParseFormat(GlobalFlags.Output)
}

// LoadConfig loads the same configuration file the target mcpd reads,
// so mcpctl inspects the exact mission control table and publication
// region mcpd is configured to use.
func LoadConfig() (*config.Config, error) {
	return config.Load(GlobalFlags.ConfigPath)
}

// OpenMCT opens a read path onto the same mission control table backing
// the daemon pointed at by the loaded configuration.
func OpenMCT(cfg *config.Config) (*mct.Snapshot, *mct.Queries, error) {
	mc := mct.Config{Type: mct.DatabaseType(cfg.MCT.Driver)}
	switch mc.Type {
	case mct.DatabaseTypeSQLite:
		mc.SQLite = mct.SQLiteConfig{Path: cfg.MCT.Path}
	case mct.DatabaseTypePostgres:
		pg, err := mct.ParsePostgresDSN(cfg.MCT.DSN)
		if err != nil {
			return nil, nil, err
		}
		mc.Postgres = pg
	}

	snapshot, err := mct.Open(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("open mission control table: %w", err)
	}
	queries, err := mct.Prepare(snapshot, nil)
	if err != nil {
		snapshot.Close()
		return nil, nil, fmt.Errorf("prepare queries: %w", err)
	}
	return snapshot, queries, nil
}
