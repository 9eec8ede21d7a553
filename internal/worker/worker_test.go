package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"rentdapp/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	mu    sync.Mutex
	calls int
	rows  int
	errs  []error
}

func (f *fakeSheets) ReplaceBookingsSheet(_ context.Context, bookings []models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.rows = len(bookings)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func (f *fakeSheets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestProcessTaskSuccess(t *testing.T) {
	logger := zerolog.Nop()
	sheets := &fakeSheets{}
	w := NewSheetsWorker(sheets, nil, RetryPolicy{}, "", &logger)
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, []models.Booking{{ID: 1}, {ID: 2}}))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	assert.Equal(t, 1, sheets.count())
	assert.Equal(t, 2, sheets.rows)
	_, ok = w.tryLocalQueue()
	assert.False(t, ok)
}

func TestProcessTaskRetry(t *testing.T) {
	logger := zerolog.Nop()
	sheets := &fakeSheets{errs: []error{errors.New("quota exceeded")}}
	w := NewSheetsWorker(sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Minute}, "", &logger)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, []models.Booking{{ID: 1}}))
	task, _ := w.tryLocalQueue()
	w.processTask(ctx, &task)

	retry, ok := w.tryLocalQueue()
	require.True(t, ok)
	assert.Equal(t, 1, retry.Attempt)
	assert.Equal(t, "quota exceeded", retry.LastError)
	assert.Equal(t, now.Add(time.Minute), retry.NotBefore)
}

func TestProcessTaskDeadLetter(t *testing.T) {
	mr, client := newRedis(t)
	logger := zerolog.Nop()
	sheets := &fakeSheets{errs: []error{errors.New("forbidden")}}
	w := NewSheetsWorker(sheets, client, RetryPolicy{MaxRetries: 1}, "rentdapp:", &logger)
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, []models.Booking{{ID: 1}}))
	items, err := mr.List("rentdapp:sheets:queue")
	require.NoError(t, err)
	require.Len(t, items, 1)

	task, ok := w.tryRedis(ctx)
	require.True(t, ok)
	w.processTask(ctx, &task)

	dead, err := mr.List("rentdapp:sheets:deadletter")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	var got SheetTask
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &got))
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "forbidden", got.LastError)
}

func TestStartDrainsQueue(t *testing.T) {
	_, client := newRedis(t)
	logger := zerolog.Nop()
	sheets := &fakeSheets{}
	w := NewSheetsWorker(sheets, client, RetryPolicy{}, "", &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, w.Enqueue(context.Background(), []models.Booking{{ID: 1}}))
	require.Eventually(t, func() bool { return sheets.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(0))
}
