package effects

import (
	"context"

	"rentdapp/internal/domain"
	"rentdapp/internal/models"
	"rentdapp/internal/store"
)

const defaultCancelReason = "Cancelled by user"

// BookingEffects calls the booking service. Mutations are exhaust jobs,
// reads run concurrently and availability checks keep only the latest.
type BookingEffects struct {
	api domain.BookingAPI
}

func NewBookingEffects(api domain.BookingAPI) *BookingEffects {
	return &BookingEffects{api: api}
}

func (e *BookingEffects) Job(a store.Action) (Job, bool) {
	switch a := a.(type) {
	case store.CreateBooking:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			b, err := e.api.Create(ctx, a.Request)
			if err != nil {
				emit(store.CreateBookingFailure{Failure: failure(err, "Unable to create the booking")})
				return
			}
			emit(store.CreateBookingSuccess{Booking: *b})
		})
	case store.ConfirmBooking:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			b, err := e.api.Confirm(ctx, a.ID, a.TxHash)
			if err != nil {
				emit(store.ConfirmBookingFailure{Failure: failure(err, "Unable to confirm the booking")})
				return
			}
			emit(store.ConfirmBookingSuccess{Booking: *b})
		})
	case store.CheckIn:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			b, err := e.api.CheckIn(ctx, a.ID)
			if err != nil {
				emit(store.CheckInFailure{Failure: failure(err, "Check-in failed")})
				return
			}
			emit(store.CheckInSuccess{Booking: *b})
		})
	case store.CheckOut:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			b, err := e.api.CheckOut(ctx, a.ID)
			if err != nil {
				emit(store.CheckOutFailure{Failure: failure(err, "Check-out failed")})
				return
			}
			emit(store.CheckOutSuccess{Booking: *b})
		})
	case store.CancelBooking:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			reason := a.Reason
			if reason == "" {
				reason = defaultCancelReason
			}
			b, err := e.api.Cancel(ctx, a.ID, reason)
			if err != nil {
				emit(store.CancelBookingFailure{Failure: failure(err, "Unable to cancel the booking")})
				return
			}
			emit(store.CancelBookingSuccess{Booking: *b})
		})
	case store.ReleaseEscrow:
		return exhaust(func(ctx context.Context, emit func(store.Action)) {
			b, err := e.api.ReleaseEscrow(ctx, a.ID, a.TxHash)
			if err != nil {
				emit(store.ReleaseEscrowFailure{Failure: failure(err, "Unable to release the escrow")})
				return
			}
			emit(store.ReleaseEscrowSuccess{Booking: *b})
		})

	case store.LoadMyBookings:
		return concurrent(e.list(e.api.My, "Unable to load bookings",
			func(bs []models.Booking) store.Action { return store.LoadMyBookingsSuccess{Bookings: bs} },
			func(f store.Failure) store.Action { return store.LoadMyBookingsFailure{Failure: f} }))
	case store.LoadUpcomingBookings:
		return concurrent(e.list(e.api.Upcoming, "Unable to load upcoming bookings",
			func(bs []models.Booking) store.Action { return store.LoadUpcomingBookingsSuccess{Bookings: bs} },
			func(f store.Failure) store.Action { return store.LoadUpcomingBookingsFailure{Failure: f} }))
	case store.LoadPastBookings:
		return concurrent(e.list(e.api.Past, "Unable to load past bookings",
			func(bs []models.Booking) store.Action { return store.LoadPastBookingsSuccess{Bookings: bs} },
			func(f store.Failure) store.Action { return store.LoadPastBookingsFailure{Failure: f} }))
	case store.LoadPropertyBookings:
		forProperty := func(ctx context.Context) ([]models.Booking, error) { return e.api.ForProperty(ctx, a.PropertyID) }
		return concurrent(e.list(forProperty, "Unable to load the property bookings",
			func(bs []models.Booking) store.Action { return store.LoadPropertyBookingsSuccess{Bookings: bs} },
			func(f store.Failure) store.Action { return store.LoadPropertyBookingsFailure{Failure: f} }))
	case store.LoadBookingByID:
		return concurrent(func(ctx context.Context, emit func(store.Action)) {
			b, err := e.api.Get(ctx, a.ID)
			if err != nil {
				emit(store.LoadBookingByIDFailure{Failure: failure(err, "Unable to load the booking")})
				return
			}
			emit(store.LoadBookingByIDSuccess{Booking: *b})
		})
	case store.LoadBlockedDates:
		return concurrent(func(ctx context.Context, emit func(store.Action)) {
			dates, err := e.api.BlockedDates(ctx, a.PropertyID)
			if err != nil {
				emit(store.LoadBlockedDatesFailure{Failure: failure(err, "Unable to load blocked dates")})
				return
			}
			emit(store.LoadBlockedDatesSuccess{BlockedDates: dates})
		})
	case store.CheckAvailability:
		return latest("booking-availability", func(ctx context.Context, emit func(store.Action)) {
			ok, err := e.api.CheckAvailability(ctx, a.PropertyID, a.CheckIn, a.CheckOut)
			if err != nil {
				emit(store.CheckAvailabilityFailure{Failure: failure(err, "Unable to check availability")})
				return
			}
			emit(store.CheckAvailabilitySuccess{Available: ok})
		})
	}
	return Job{}, false
}

func (e *BookingEffects) list(
	fetch func(ctx context.Context) ([]models.Booking, error),
	fallback string,
	success func([]models.Booking) store.Action,
	fail func(store.Failure) store.Action,
) func(ctx context.Context, emit func(store.Action)) {
	return func(ctx context.Context, emit func(store.Action)) {
		bookings, err := fetch(ctx)
		if err != nil {
			emit(fail(failure(err, fallback)))
			return
		}
		emit(success(bookings))
	}
}
