package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"rentdapp/internal/domain"
	"rentdapp/internal/events"

	"github.com/rs/zerolog"
)

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Format renders an event as a user-facing notification.
func Format(ev *events.Event) (level, text string, ok bool) {
	switch ev.Type {
	case events.EventBookingCreated, events.EventBookingConfirmed, events.EventBookingCancelled,
		events.EventBookingCheckedIn, events.EventBookingCheckedOut:
		var p events.BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", "", false
		}
		return bookingMessage(ev.Type, p)
	case events.EventPaymentConfirmed:
		var p events.PaymentEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", "", false
		}
		return LevelSuccess, fmt.Sprintf("Payment confirmed (tx %s)", p.TxHash), true
	case events.EventPaymentFailed:
		var p events.PaymentEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", "", false
		}
		return LevelError, fmt.Sprintf("Payment failed at %s: %s", p.Step, p.Message), true
	case events.EventPaymentOrphaned:
		var p events.PaymentEventPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", "", false
		}
		return LevelWarning, fmt.Sprintf("Booking #%d was cancelled after payment was sent (tx %s), contact support for a refund", p.ReservationID, p.TxHash), true
	case events.EventErrorRaised:
		var p events.ErrorPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", "", false
		}
		return LevelError, p.Message, true
	}
	return "", "", false
}

func bookingMessage(eventType string, p events.BookingEventPayload) (string, string, bool) {
	dates := fmt.Sprintf("%s → %s", p.CheckIn.Format("02/01/2006"), p.CheckOut.Format("02/01/2006"))
	switch eventType {
	case events.EventBookingCreated:
		return LevelInfo, fmt.Sprintf("Booking #%d created for %s, awaiting payment", p.BookingID, dates), true
	case events.EventBookingConfirmed:
		return LevelSuccess, fmt.Sprintf("Booking #%d confirmed for %s", p.BookingID, dates), true
	case events.EventBookingCancelled:
		return LevelWarning, fmt.Sprintf("Booking #%d cancelled", p.BookingID), true
	case events.EventBookingCheckedIn:
		return LevelInfo, fmt.Sprintf("Checked in to booking #%d", p.BookingID), true
	default:
		return LevelInfo, fmt.Sprintf("Checked out of booking #%d", p.BookingID), true
	}
}

// Attach forwards every formatted bus event to n. Delivery errors are logged.
func Attach(bus *events.EventBus, n domain.Notifier, logger *zerolog.Logger) {
	bus.Subscribe(events.AllEvents, func(ev *events.Event) error {
		level, text, ok := Format(ev)
		if !ok {
			return nil
		}
		if err := n.Notify(context.Background(), level, text); err != nil {
			logger.Warn().Err(err).Str("event", ev.Type).Msg("notification not delivered")
		}
		return nil
	})
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, level, text string) error {
	ev := n.logger.Info()
	switch level {
	case LevelError:
		ev = n.logger.Error()
	case LevelWarning:
		ev = n.logger.Warn()
	}
	ev.Str("level_hint", level).Msg(text)
	return nil
}
