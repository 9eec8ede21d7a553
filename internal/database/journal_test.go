package database

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"rentdapp/internal/models"
	"rentdapp/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "journal.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestJournal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	actions := []store.Action{
		store.LoadMyBookings{},
		store.LoadMyBookingsSuccess{Bookings: []models.Booking{{ID: 1}}},
		store.CancelBooking{ID: 1, Reason: "Payment cancelled by user"},
		store.LoadMyBookings{},
	}
	for i, a := range actions {
		require.NoError(t, db.Append(ctx, store.Envelope{ID: uuid.New(), Seq: uint64(i + 1), Action: a, At: at}))
	}

	t.Run("recent newest first", func(t *testing.T) {
		entries, err := db.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, uint64(4), entries[0].Seq)
		assert.Equal(t, "[Booking] Cancel Booking", entries[1].Type)

		var cancel store.CancelBooking
		require.NoError(t, json.Unmarshal(entries[1].Payload, &cancel))
		assert.Equal(t, "Payment cancelled by user", cancel.Reason)
		assert.True(t, at.Equal(entries[1].CreatedAt))
	})

	t.Run("count by type", func(t *testing.T) {
		counts, err := db.CountByType(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts["[Booking] Load My Bookings"])
		assert.Equal(t, 1, counts["[Booking] Cancel Booking"])
	})

	t.Run("duplicate envelope rejected", func(t *testing.T) {
		env := store.Envelope{ID: uuid.New(), Seq: 9, Action: store.Logout{}, At: at}
		require.NoError(t, db.Append(ctx, env))
		assert.Error(t, db.Append(ctx, env))
	})

	t.Run("login password never persisted", func(t *testing.T) {
		env := store.Envelope{ID: uuid.New(), Seq: 10, Action: store.Login{Request: models.LoginRequest{Email: "a@b.c", Password: "hunter22"}}, At: at}
		require.NoError(t, db.Append(ctx, env))
		entries, err := db.Recent(ctx, 1)
		require.NoError(t, err)
		assert.NotContains(t, string(entries[0].Payload), "hunter22")
	})
}

func TestStoreWithJournal(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := store.New(store.WithJournal(db), store.WithLogger(&logger))
	_, err := s.Dispatch(store.ClearFilters{})
	require.NoError(t, err)
	s.Close()

	entries, err := db.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "[Listings] Clear Filters", entries[0].Type)
}
