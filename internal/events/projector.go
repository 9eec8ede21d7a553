package events

import (
	"context"
	"errors"

	"rentdapp/internal/domain"
	"rentdapp/internal/models"
	"rentdapp/internal/store"

	"github.com/rs/zerolog"
)

// Project maps a dispatched action to a domain event. Most actions have none.
func Project(a store.Action) (string, any, bool) {
	switch a := a.(type) {
	case store.CreateBookingSuccess:
		return EventBookingCreated, bookingPayload(a.Booking), true
	case store.ConfirmBookingSuccess:
		return EventBookingConfirmed, bookingPayload(a.Booking), true
	case store.CancelBookingSuccess:
		return EventBookingCancelled, bookingPayload(a.Booking), true
	case store.CheckInSuccess:
		return EventBookingCheckedIn, bookingPayload(a.Booking), true
	case store.CheckOutSuccess:
		return EventBookingCheckedOut, bookingPayload(a.Booking), true
	case store.PollingConfirmed:
		return EventPaymentConfirmed, PaymentEventPayload{
			TxHash:  a.Status.TxHash,
			Step:    models.StepOnChainConfirm,
			Message: "Payment confirmed on-chain",
		}, true
	case store.VerifyBalanceFailure:
		return EventPaymentFailed, PaymentEventPayload{Step: models.StepBalanceCheck, Message: a.Error}, true
	case store.SignTransactionFailure:
		return EventPaymentFailed, PaymentEventPayload{Step: models.StepSign, Message: a.Error}, true
	case store.ConfirmPaymentFailure:
		return EventPaymentFailed, PaymentEventPayload{Step: models.StepConfirm, Message: a.Error}, true
	case store.PaymentOrphaned:
		return EventPaymentOrphaned, PaymentEventPayload{
			ReservationID: a.ReservationID,
			TxHash:        a.TxHash,
			AmountEth:     a.AmountEth,
			Step:          a.Step,
			Message:       "Payment sent for a cancelled reservation",
		}, true
	case store.Failed:
		return EventErrorRaised, ErrorPayload{Action: a.Type(), Message: a.FailureMessage()}, true
	}
	return "", nil, false
}

func bookingPayload(b models.Booking) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		Status:     string(b.Status),
		CheckIn:    b.CheckInDate.Time,
		CheckOut:   b.CheckOutDate.Time,
		Nights:     b.TotalNights,
		TxHash:     b.BlockchainTxHash,
	}
	if b.PriceBreakdown != nil {
		p.TotalAmount = b.PriceBreakdown.TotalAmount
	}
	return p
}

// Relay publishes projected events for every update on sub until the
// subscription is closed or ctx ends.
func Relay(ctx context.Context, sub *store.Subscription, pub domain.EventPublisher, logger *zerolog.Logger) {
	for {
		upd, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, store.ErrClosed) && !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("event relay stopped")
			}
			return
		}
		eventType, payload, ok := Project(upd.Envelope.Action)
		if !ok {
			continue
		}
		if err := pub.PublishJSON(eventType, payload); err != nil {
			logger.Warn().Err(err).Str("event", eventType).Msg("event handler failed")
		}
	}
}
