package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"rentdapp/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)

	var n int
	require.NoError(t, db.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'action_log'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNewDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	logger := zerolog.Nop()
	ctx := context.Background()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.Append(ctx, store.Envelope{ID: uuid.New(), Seq: 1, Action: store.Logout{}, At: time.Now()}))
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()
	entries, err := db.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "closed.db"), &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()

	t.Run("Append", func(t *testing.T) {
		err := db.Append(ctx, store.Envelope{ID: uuid.New(), Seq: 1, Action: store.Logout{}, At: time.Now()})
		assert.Error(t, err)
	})

	t.Run("Recent", func(t *testing.T) {
		_, err := db.Recent(ctx, 10)
		assert.Error(t, err)
	})

	t.Run("CountByType", func(t *testing.T) {
		_, err := db.CountByType(ctx)
		assert.Error(t, err)
	})

	t.Run("Snapshot", func(t *testing.T) {
		_, err := db.Snapshot(ctx, t.TempDir(), time.Now())
		assert.Error(t, err)
	})
}
