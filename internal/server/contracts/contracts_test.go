package contracts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestStore_CreateGet(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	c, err := store.Create(ctx, &NewContract{
		CustomerName:       " Maria Souza ",
		CustomerDocument:   "123.456.789-09",
		CustomerEmail:      "maria@example.com",
		VehicleDescription: "Fiat Uno 2012",
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.Equal(t, "Maria Souza", c.CustomerName)
	assert.Equal(t, "12345678909", c.CustomerDocument)
	assert.Equal(t, StatusPending, c.Status)
	assert.Nil(t, c.SignedAt)

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = store.Get(ctx, c.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreateRejects(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, &NewContract{CustomerName: "A", CustomerDocument: "123"})
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = store.Create(ctx, &NewContract{CustomerName: "", CustomerDocument: "12345678909"})
	assert.ErrorIs(t, err, ErrInvalidContract)

	_, err = store.Create(ctx, &NewContract{CustomerName: "A", CustomerDocument: "12345678909", CustomerEmail: "nope"})
	assert.ErrorIs(t, err, ErrInvalidContract)
}

func TestStore_MarkSigned(t *testing.T) {
	store := NewStore(newTestDB(t))
	ctx := context.Background()

	c, err := store.Create(ctx, &NewContract{CustomerName: "Loja X", CustomerDocument: "12.345.678/0001-95"})
	require.NoError(t, err)

	at := time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)
	require.NoError(t, store.MarkSigned(ctx, c.ID, at))

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSigned, got.Status)
	require.NotNil(t, got.SignedAt)
	assert.True(t, at.Equal(*got.SignedAt))

	assert.ErrorIs(t, store.MarkSigned(ctx, c.ID, at), ErrAlreadySigned)
	assert.ErrorIs(t, store.MarkSigned(ctx, 9999, at), ErrNotFound)
}

func TestStore_MarkSignedTxRollback(t *testing.T) {
	database := newTestDB(t)
	store := NewStore(database)
	ctx := context.Background()

	c, err := store.Create(ctx, &NewContract{CustomerName: "Maria Souza", CustomerDocument: "123.456.789-09"})
	require.NoError(t, err)

	tx, err := database.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.MarkSignedTx(ctx, tx, c.ID, time.Now()))
	assert.ErrorIs(t, store.MarkSignedTx(ctx, tx, c.ID, time.Now()), ErrAlreadySigned)
	assert.ErrorIs(t, store.MarkSignedTx(ctx, tx, 9999, time.Now()), ErrNotFound)
	require.NoError(t, tx.Rollback())

	got, err := store.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.SignedAt)
}

func TestNormalizeDocument(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12345678909", "12345678909", false},
		{"123.456.789-09", "12345678909", false},
		{"12.345.678/0001-95", "12345678000195", false},
		{"1234567890", "", true},
		{"123456789012", "", true},
		{"123a5678909", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeDocument(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidDocument, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
