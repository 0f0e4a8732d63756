package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableConfig() Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = "1" // nothing listens here
	cfg.User = "postgres"
	cfg.Database = "fpl_optimizer_test"
	return cfg
}

func TestOpen_FailsFastWhenPostgresIsUnreachable(t *testing.T) {
	_, err := Open(unreachableConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistence: ping database")
}

func TestOpen_FailsBeforeMigratorSetupWhenUnreachable(t *testing.T) {
	cfg := unreachableConfig()
	// Open fails on the unreachable database before NewMigrator (and its
	// migrations-directory check) could ever run; NewMigrator itself needs
	// a live connection and is not exercised here.
	_, err := Open(cfg)
	require.Error(t, err)
}

func TestOpen_ReturnsNilDBWhenUnreachable(t *testing.T) {
	db, err := Open(unreachableConfig())
	require.Error(t, err)
	require.Nil(t, db)
}

func TestDB_HealthPanicsWithoutSQLHandle(t *testing.T) {
	db := &DB{}
	require.Panics(t, func() {
		_ = db.Health(context.Background())
	}, "calling Health on a DB with no SQL handle should panic on the nil pointer, not hang")
}
