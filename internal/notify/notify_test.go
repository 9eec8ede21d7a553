package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"rentdapp/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, level, text string) error {
	return m.Called(ctx, level, text).Error(0)
}

func TestFormat(t *testing.T) {
	checkIn := time.Date(2025, 6, 9, 14, 0, 0, 0, time.UTC)
	ev, err := events.NewJSONEvent(events.EventBookingConfirmed, events.BookingEventPayload{
		BookingID: 7, CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 2),
	})
	require.NoError(t, err)

	level, text, ok := Format(&ev)
	require.True(t, ok)
	assert.Equal(t, LevelSuccess, level)
	assert.Equal(t, "Booking #7 confirmed for 09/06/2025 → 11/06/2025", text)

	ev, err = events.NewJSONEvent(events.EventPaymentFailed, events.PaymentEventPayload{Step: "sign", Message: "Transaction rejected"})
	require.NoError(t, err)
	level, text, ok = Format(&ev)
	require.True(t, ok)
	assert.Equal(t, LevelError, level)
	assert.Equal(t, "Payment failed at sign: Transaction rejected", text)

	ev, err = events.NewJSONEvent(events.EventPaymentOrphaned, events.PaymentEventPayload{ReservationID: 42, TxHash: "0xabc"})
	require.NoError(t, err)
	level, text, ok = Format(&ev)
	require.True(t, ok)
	assert.Equal(t, LevelWarning, level)
	assert.Contains(t, text, "Booking #42")
	assert.Contains(t, text, "0xabc")

	_, _, ok = Format(&events.Event{Type: "unknown"})
	assert.False(t, ok)
}

func TestTelegramNotifier(t *testing.T) {
	sender := new(mockSender)
	logger := zerolog.Nop()
	n := NewTelegramNotifier(sender, 42, &logger)

	t.Run("sends to chat with icon", func(t *testing.T) {
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ChatID == 42 && msg.Text == "✅ done"
		})).Return(tgbotapi.Message{}, nil).Once()

		assert.NoError(t, n.Notify(context.Background(), LevelSuccess, "done"))
		sender.AssertExpectations(t)
	})

	t.Run("wraps send error", func(t *testing.T) {
		sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("forbidden")).Once()
		err := n.Notify(context.Background(), LevelError, "x")
		assert.ErrorContains(t, err, "telegram send: forbidden")
	})
}

func TestAttach(t *testing.T) {
	bus := events.NewEventBus()
	n := new(mockNotifier)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	Attach(bus, n, &logger)

	n.On("Notify", mock.Anything, LevelError, "Service unavailable").Return(errors.New("offline")).Once()
	require.NoError(t, bus.PublishJSON(events.EventErrorRaised, events.ErrorPayload{Action: "a", Message: "Service unavailable"}))
	n.AssertExpectations(t)
	assert.Contains(t, buf.String(), "notification not delivered")

	// Events without a rendering are ignored.
	require.NoError(t, bus.PublishJSON("other", nil))
	n.AssertNumberOfCalls(t, "Notify", 1)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	n := NewLogNotifier(&logger)
	require.NoError(t, n.Notify(context.Background(), LevelWarning, "Booking #1 cancelled"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "Booking #1 cancelled")
}
