package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := `SELECT id FROM webhooks WHERE tenant_id=? AND active=? LIMIT ?`

	assert.Equal(t, q, Rebind(DriverSQLite, q))
	assert.Equal(t,
		`SELECT id FROM webhooks WHERE tenant_id=$1 AND active=$2 LIMIT $3`,
		Rebind(DriverPostgres, q))
	assert.Equal(t, `SELECT 1`, Rebind(DriverPostgres, `SELECT 1`))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestRunMigrationsSQLite(t *testing.T) {
	database, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, RunMigrations(database, DriverSQLite, ":memory:"))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(database, DriverSQLite, ":memory:"))

	for _, table := range []string{"webhooks", "webhook_deliveries", "media_objects"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoErrorf(t, err, "table %s missing", table)
		assert.Equal(t, table, name)
	}

	// The handle must still be usable after migrating.
	require.NoError(t, database.Ping())
}

func TestRunMigrationsUnknownDriver(t *testing.T) {
	err := RunMigrations(nil, "mysql", "")
	assert.Error(t, err)
}
