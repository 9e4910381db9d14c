package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	database, err := Open(context.Background(), Memory, WithoutMigrations())
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	// one connection, so the in-memory schema stays visible
	var n int
	require.NoError(t, database.Get(&n, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, database.Stats().MaxOpenConnections)
}

func TestOpen_FileCreatesParentAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "backoffice.db")

	database, err := Open(context.Background(), path, WithBusyTimeout(time.Second))
	require.NoError(t, err)
	defer database.Close()
	assert.DirExists(t, filepath.Dir(path))

	for _, table := range []string{"contracts", "signature_tokens"} {
		var name string
		err := database.Get(&name, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var busy int
	require.NoError(t, database.Get(&busy, "PRAGMA busy_timeout"))
	assert.Equal(t, 1000, busy)

	var fk int
	require.NoError(t, database.Get(&fk, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fk)
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backoffice.db")
	database, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Migrate(context.Background(), database))
	require.NoError(t, Check(context.Background(), database))
}

func TestCheck_Closed(t *testing.T) {
	database, err := Open(context.Background(), Memory)
	require.NoError(t, err)
	database.Close()

	assert.Error(t, Check(context.Background(), database))
}
