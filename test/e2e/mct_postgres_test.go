//go:build e2e

package e2e

import (
	"testing"

	"github.com/flightos/mcpd/internal/mct"
	"github.com/stretchr/testify/require"
)

// TestMCT_PostgresBackendMigratesAndServesQueries verifies the mission
// control table behaves identically over a real PostgreSQL backend as
// it does over the sqlite path exercised by internal/mct's unit tests:
// schema auto-migration, rule/parameter/partition fixtures, and the
// prepared query surface the supervisor drives in production.
func TestMCT_PostgresBackendMigratesAndServesQueries(t *testing.T) {
	helper := NewPostgresHelper(t)

	pg, err := mct.ParsePostgresDSN(helper.DSN())
	require.NoError(t, err)

	snapshot, err := mct.Open(mct.Config{Type: mct.DatabaseTypePostgres, Postgres: pg})
	require.NoError(t, err)
	defer snapshot.Close()

	db := snapshot.DB()
	require.NoError(t, db.Create(&mct.Partition{ID: 1, Name: "avionics"}).Error)
	require.NoError(t, db.Create(&mct.Parameter{ID: 1, Name: "fuel", Type: "float"}).Error)
	require.NoError(t, db.Create(&mct.Rule{ID: 1, Name: "low-fuel", PeriodSeconds: 1.0, Equation: "P1 < 10", Action: 7, Option: "low fuel"}).Error)

	queries, err := mct.Prepare(snapshot, nil)
	require.NoError(t, err)
	defer queries.Close()

	partitions, err := queries.IteratePartitions()
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	require.Equal(t, "avionics", partitions[0].Name)

	rules, err := queries.IterateRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, "low-fuel", rules[0].Name)

	valid, err := queries.ParamValid(1)
	require.NoError(t, err)
	require.True(t, valid)
}
