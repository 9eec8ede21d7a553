package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentdapp/internal/domain"
	"rentdapp/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SheetTask is one snapshot of the booking list to mirror into the sheet.
type SheetTask struct {
	ID        string           `json:"id"`
	Bookings  []models.Booking `json:"bookings"`
	Attempt   int              `json:"attempt"`
	NotBefore time.Time        `json:"not_before,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// SheetsWorker applies queued snapshots to Google Sheets with backoff.
// Tasks go through Redis when available, otherwise an in-memory queue.
type SheetsWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan SheetTask
	queueKey      string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
	now           func() time.Time
}

func NewSheetsWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, keyPrefix string, logger *zerolog.Logger) *SheetsWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	return &SheetsWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan SheetTask, 32),
		queueKey:      keyPrefix + "sheets:queue",
		deadLetterKey: keyPrefix + "sheets:deadletter",
		pollInterval:  2 * time.Second,
		logger:        logger,
		now:           time.Now,
	}
}

// Enqueue schedules a sheet refresh with the given bookings.
func (w *SheetsWorker) Enqueue(ctx context.Context, bookings []models.Booking) error {
	task := SheetTask{ID: uuid.NewString(), Bookings: bookings, CreatedAt: w.now()}
	return w.push(ctx, task)
}

func (w *SheetsWorker) push(ctx context.Context, task SheetTask) error {
	if w.redis != nil {
		err := w.pushRedis(ctx, w.queueKey, task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Str("task", task.ID).Msg("redis push failed, using memory queue")
	}
	select {
	case w.queue <- task:
		return nil
	default:
		return fmt.Errorf("sheets queue full, task %s dropped", task.ID)
	}
}

// Start processes tasks until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for ctx.Err() == nil {
		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}
		if w.redis == nil {
			select {
			case <-ctx.Done():
			case t := <-w.queue:
				w.processTask(ctx, &t)
			case <-time.After(w.pollInterval):
			}
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (SheetTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return SheetTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (SheetTask, bool) {
	if w.redis == nil {
		return SheetTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.queueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("redis BRPOP failed")
			w.sleep(ctx, w.pollInterval)
		}
		return SheetTask{}, false
	}
	if len(res) != 2 {
		return SheetTask{}, false
	}
	var task SheetTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode sheets task")
		return SheetTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *SheetTask) {
	if wait := task.NotBefore.Sub(w.now()); wait > 0 {
		if !w.sleep(ctx, wait) {
			w.requeue(task)
			return
		}
	}

	if err := w.sheets.ReplaceBookingsSheet(ctx, task.Bookings); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	w.logger.Info().Str("task", task.ID).Int("rows", len(task.Bookings)).Msg("bookings sheet updated")
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *SheetTask, cause error) {
	task.Attempt++
	task.LastError = cause.Error()
	if task.Attempt >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).Str("task", task.ID).Int("attempt", task.Attempt).Msg("sheets task failed")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	task.NotBefore = w.now().Add(delay)
	w.logger.Warn().Err(cause).Str("task", task.ID).Dur("retry_in", delay).Msg("sheets task retry scheduled")
	if ctx.Err() != nil {
		w.requeue(task)
		return
	}
	if err := w.push(ctx, *task); err != nil {
		w.logger.Error().Err(err).Str("task", task.ID).Msg("sheets retry not queued")
	}
}

// requeue keeps a task for the next start when the worker is stopping.
func (w *SheetsWorker) requeue(task *SheetTask) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.push(ctx, *task); err != nil {
		w.logger.Warn().Err(err).Str("task", task.ID).Msg("sheets task lost on shutdown")
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task SheetTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *SheetTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
		w.logger.Error().Err(err).Str("task", task.ID).Msg("deadletter push failed")
	}
}

func (w *SheetsWorker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
