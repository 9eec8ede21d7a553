package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rentdapp/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func sampleBookings() []models.Booking {
	in := time.Date(2025, 6, 9, 14, 0, 0, 0, time.Local)
	out := time.Date(2025, 6, 12, 11, 0, 0, 0, time.Local)
	return []models.Booking{
		{
			ID: 1, PropertyID: 10, CheckInDate: models.LocalDateTime{Time: in}, CheckOutDate: models.LocalDateTime{Time: out},
			TotalNights: 3, NumGuests: 2, Status: models.StatusConfirmed,
			PriceBreakdown: &models.PriceBreakdown{TotalAmount: 352}, BlockchainTxHash: "0xabc",
		},
		{ID: 2, PropertyID: 11, NumGuests: 1, HasPets: true, Status: models.StatusPending},
	}
}

func TestWriteBookingsXLSX(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	path, err := WriteBookingsXLSX(dir, sampleBookings(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_bookings_2025-06-01_09-30-00.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet}, f.GetSheetList())
	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, bookingHeaders, rows[0])
	assert.Equal(t, []string{"1", "10", "09.06.2025", "12.06.2025", "3", "2", "no", "CONFIRMED", "352", "0xabc", "no"}, rows[1])
	assert.Equal(t, "", rows[2][2])
	assert.Equal(t, "yes", rows[2][6])
}

type fakeQueue struct {
	got []models.Booking
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, bookings []models.Booking) error {
	q.got = bookings
	return q.err
}

func TestExporter(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("empty", func(t *testing.T) {
		e := NewExporter(t.TempDir(), nil, &logger)
		_, err := e.Export(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNothingToExport)
	})

	t.Run("workbook and sheet refresh", func(t *testing.T) {
		q := &fakeQueue{}
		e := NewExporter(t.TempDir(), q, &logger)
		res, err := e.Export(context.Background(), sampleBookings())
		require.NoError(t, err)
		assert.FileExists(t, res.File)
		assert.Equal(t, 2, res.Rows)
		assert.True(t, res.SheetQueued)
		assert.Len(t, q.got, 2)
	})

	t.Run("queue failure keeps the workbook", func(t *testing.T) {
		e := NewExporter(t.TempDir(), &fakeQueue{err: errors.New("redis down")}, &logger)
		res, err := e.Export(context.Background(), sampleBookings())
		require.NoError(t, err)
		assert.FileExists(t, res.File)
		assert.False(t, res.SheetQueued)
	})
}

type sheetsCall struct {
	method string
	path   string
	body   sheets.ValueRange
}

func TestSheetsService(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var calls []sheetsCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := sheetsCall{method: r.Method, path: r.URL.Path}
		if r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&call.body)
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	s := newSheetsService(srv, "sheet_id", "")

	require.NoError(t, s.TestConnection(ctx))
	require.NoError(t, s.ReplaceBookingsSheet(ctx, sampleBookings()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 3)
	assert.Equal(t, "/v4/spreadsheets/sheet_id/values/Bookings!A1", calls[0].path)
	assert.Equal(t, http.MethodPost, calls[1].method)
	assert.Equal(t, "/v4/spreadsheets/sheet_id/values/Bookings:clear", calls[1].path)
	assert.Equal(t, http.MethodPut, calls[2].method)
	assert.Equal(t, "/v4/spreadsheets/sheet_id/values/Bookings!A1:K3", calls[2].path)
	require.Len(t, calls[2].body.Values, 3)
	assert.Equal(t, "ID", calls[2].body.Values[0][0])
}

func TestSheetsServiceError(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	err = newSheetsService(srv, "sheet_id", "Bookings").ReplaceBookingsSheet(ctx, sampleBookings())
	assert.ErrorContains(t, err, "clear Bookings")
}
