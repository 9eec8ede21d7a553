package store

import (
	"time"

	"rentdapp/internal/models"
)

type BookingState struct {
	MyBookings       []models.Booking `json:"myBookings"`
	UpcomingBookings []models.Booking `json:"upcomingBookings"`
	PastBookings     []models.Booking `json:"pastBookings"`
	PropertyBookings []models.Booking `json:"propertyBookings"`
	SelectedBooking  *models.Booking  `json:"selectedBooking,omitempty"`
	CurrentBooking   *models.Booking  `json:"currentBooking,omitempty"`
	// IsAvailable is nil until an availability check completes.
	IsAvailable  *bool    `json:"isAvailable,omitempty"`
	BlockedDates []string `json:"blockedDates"`
	Loading      bool     `json:"loading"`
	Error        string   `json:"error,omitempty"`
}

func initialBookingState() BookingState {
	return BookingState{
		MyBookings:       []models.Booking{},
		UpcomingBookings: []models.Booking{},
		PastBookings:     []models.Booking{},
		PropertyBookings: []models.Booking{},
		BlockedDates:     []string{},
	}
}

type CreateBooking struct {
	Request models.CreateBooking `json:"request"`
}

type CreateBookingSuccess struct {
	Booking models.Booking `json:"booking"`
}

type CreateBookingFailure struct{ Failure }

type LoadMyBookings struct{}

type LoadMyBookingsSuccess struct {
	Bookings []models.Booking `json:"bookings"`
}

type LoadMyBookingsFailure struct{ Failure }

type LoadUpcomingBookings struct{}

type LoadUpcomingBookingsSuccess struct {
	Bookings []models.Booking `json:"bookings"`
}

type LoadUpcomingBookingsFailure struct{ Failure }

type LoadPastBookings struct{}

type LoadPastBookingsSuccess struct {
	Bookings []models.Booking `json:"bookings"`
}

type LoadPastBookingsFailure struct{ Failure }

type LoadBookingByID struct {
	ID int64 `json:"id"`
}

type LoadBookingByIDSuccess struct {
	Booking models.Booking `json:"booking"`
}

type LoadBookingByIDFailure struct{ Failure }

type LoadPropertyBookings struct {
	PropertyID int64 `json:"propertyId"`
}

type LoadPropertyBookingsSuccess struct {
	Bookings []models.Booking `json:"bookings"`
}

type LoadPropertyBookingsFailure struct{ Failure }

type ConfirmBooking struct {
	ID     int64  `json:"id"`
	TxHash string `json:"txHash"`
}

type ConfirmBookingSuccess struct {
	Booking models.Booking `json:"booking"`
}

type ConfirmBookingFailure struct{ Failure }

type CheckIn struct {
	ID int64 `json:"id"`
}

type CheckInSuccess struct {
	Booking models.Booking `json:"booking"`
}

type CheckInFailure struct{ Failure }

type CheckOut struct {
	ID int64 `json:"id"`
}

type CheckOutSuccess struct {
	Booking models.Booking `json:"booking"`
}

type CheckOutFailure struct{ Failure }

type CancelBooking struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason,omitempty"`
}

type CancelBookingSuccess struct {
	Booking models.Booking `json:"booking"`
}

type CancelBookingFailure struct{ Failure }

type ReleaseEscrow struct {
	ID     int64  `json:"id"`
	TxHash string `json:"txHash"`
}

type ReleaseEscrowSuccess struct {
	Booking models.Booking `json:"booking"`
}

type ReleaseEscrowFailure struct{ Failure }

type CheckAvailability struct {
	PropertyID int64     `json:"propertyId"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
}

type CheckAvailabilitySuccess struct {
	Available bool `json:"available"`
}

type CheckAvailabilityFailure struct{ Failure }

type LoadBlockedDates struct {
	PropertyID int64 `json:"propertyId"`
}

type LoadBlockedDatesSuccess struct {
	BlockedDates []string `json:"blockedDates"`
}

type LoadBlockedDatesFailure struct{ Failure }

type SelectBooking struct {
	Booking models.Booking `json:"booking"`
}

type ClearSelectedBooking struct{}

type ResetBookingState struct{}

type ClearBookingError struct{}

func (CreateBooking) Type() string               { return "[Booking] Create Booking" }
func (CreateBookingSuccess) Type() string        { return "[Booking] Create Booking Success" }
func (CreateBookingFailure) Type() string        { return "[Booking] Create Booking Failure" }
func (LoadMyBookings) Type() string              { return "[Booking] Load My Bookings" }
func (LoadMyBookingsSuccess) Type() string       { return "[Booking] Load My Bookings Success" }
func (LoadMyBookingsFailure) Type() string       { return "[Booking] Load My Bookings Failure" }
func (LoadUpcomingBookings) Type() string        { return "[Booking] Load Upcoming Bookings" }
func (LoadUpcomingBookingsSuccess) Type() string { return "[Booking] Load Upcoming Bookings Success" }
func (LoadUpcomingBookingsFailure) Type() string { return "[Booking] Load Upcoming Bookings Failure" }
func (LoadPastBookings) Type() string            { return "[Booking] Load Past Bookings" }
func (LoadPastBookingsSuccess) Type() string     { return "[Booking] Load Past Bookings Success" }
func (LoadPastBookingsFailure) Type() string     { return "[Booking] Load Past Bookings Failure" }
func (LoadBookingByID) Type() string             { return "[Booking] Load Booking By Id" }
func (LoadBookingByIDSuccess) Type() string      { return "[Booking] Load Booking By Id Success" }
func (LoadBookingByIDFailure) Type() string      { return "[Booking] Load Booking By Id Failure" }
func (LoadPropertyBookings) Type() string        { return "[Booking] Load Property Bookings" }
func (LoadPropertyBookingsSuccess) Type() string { return "[Booking] Load Property Bookings Success" }
func (LoadPropertyBookingsFailure) Type() string { return "[Booking] Load Property Bookings Failure" }
func (ConfirmBooking) Type() string              { return "[Booking] Confirm Booking" }
func (ConfirmBookingSuccess) Type() string       { return "[Booking] Confirm Booking Success" }
func (ConfirmBookingFailure) Type() string       { return "[Booking] Confirm Booking Failure" }
func (CheckIn) Type() string                     { return "[Booking] Check In" }
func (CheckInSuccess) Type() string              { return "[Booking] Check In Success" }
func (CheckInFailure) Type() string              { return "[Booking] Check In Failure" }
func (CheckOut) Type() string                    { return "[Booking] Check Out" }
func (CheckOutSuccess) Type() string             { return "[Booking] Check Out Success" }
func (CheckOutFailure) Type() string             { return "[Booking] Check Out Failure" }
func (CancelBooking) Type() string               { return "[Booking] Cancel Booking" }
func (CancelBookingSuccess) Type() string        { return "[Booking] Cancel Booking Success" }
func (CancelBookingFailure) Type() string        { return "[Booking] Cancel Booking Failure" }
func (ReleaseEscrow) Type() string               { return "[Booking] Release Escrow" }
func (ReleaseEscrowSuccess) Type() string        { return "[Booking] Release Escrow Success" }
func (ReleaseEscrowFailure) Type() string        { return "[Booking] Release Escrow Failure" }
func (CheckAvailability) Type() string           { return "[Booking] Check Availability" }
func (CheckAvailabilitySuccess) Type() string    { return "[Booking] Check Availability Success" }
func (CheckAvailabilityFailure) Type() string    { return "[Booking] Check Availability Failure" }
func (LoadBlockedDates) Type() string            { return "[Booking] Load Blocked Dates" }
func (LoadBlockedDatesSuccess) Type() string     { return "[Booking] Load Blocked Dates Success" }
func (LoadBlockedDatesFailure) Type() string     { return "[Booking] Load Blocked Dates Failure" }
func (SelectBooking) Type() string               { return "[Booking] Select Booking" }
func (ClearSelectedBooking) Type() string        { return "[Booking] Clear Selected Booking" }
func (ResetBookingState) Type() string           { return "[Booking] Reset State" }
func (ClearBookingError) Type() string           { return "[Booking] Clear Error" }

func reduceBooking(s BookingState, a Action) BookingState {
	switch a := a.(type) {
	case CreateBooking, LoadMyBookings, LoadUpcomingBookings, LoadPastBookings,
		LoadBookingByID, LoadPropertyBookings, ConfirmBooking, CheckIn, CheckOut,
		CancelBooking, ReleaseEscrow, LoadBlockedDates:
		s.Loading = true
		s.Error = ""
	case CheckAvailability:
		s.Loading = true
		s.Error = ""
		s.IsAvailable = nil

	case CreateBookingSuccess:
		b := a.Booking
		s.CurrentBooking = &b
		s.MyBookings = prependBooking(s.MyBookings, b)
		s.Loading = false
	case LoadMyBookingsSuccess:
		s.MyBookings = nonNil(a.Bookings)
		s.Loading = false
	case LoadUpcomingBookingsSuccess:
		s.UpcomingBookings = nonNil(a.Bookings)
		s.Loading = false
	case LoadPastBookingsSuccess:
		s.PastBookings = nonNil(a.Bookings)
		s.Loading = false
	case LoadBookingByIDSuccess:
		b := a.Booking
		s.SelectedBooking = &b
		s.Loading = false
	case LoadPropertyBookingsSuccess:
		s.PropertyBookings = nonNil(a.Bookings)
		s.Loading = false
	case ConfirmBookingSuccess:
		b := a.Booking
		s.CurrentBooking = &b
		s.SelectedBooking = &b
		s.MyBookings = replaceBooking(s.MyBookings, b)
		s.Loading = false
	case CheckInSuccess:
		b := a.Booking
		s.SelectedBooking = &b
		s.MyBookings = replaceBooking(s.MyBookings, b)
		s.UpcomingBookings = replaceBooking(s.UpcomingBookings, b)
		s.Loading = false
	case CheckOutSuccess:
		s = bookingUpdated(s, a.Booking)
	case ReleaseEscrowSuccess:
		s = bookingUpdated(s, a.Booking)
	case CancelBookingSuccess:
		b := a.Booking
		s.SelectedBooking = &b
		s.MyBookings = replaceBooking(s.MyBookings, b)
		s.UpcomingBookings = removeBooking(s.UpcomingBookings, b.ID)
		s.Loading = false
	case CheckAvailabilitySuccess:
		available := a.Available
		s.IsAvailable = &available
		s.Loading = false
	case LoadBlockedDatesSuccess:
		s.BlockedDates = nonNil(a.BlockedDates)
		s.Loading = false

	case CreateBookingFailure, LoadMyBookingsFailure, LoadUpcomingBookingsFailure,
		LoadPastBookingsFailure, LoadBookingByIDFailure, LoadPropertyBookingsFailure,
		ConfirmBookingFailure, CheckInFailure, CheckOutFailure, CancelBookingFailure,
		ReleaseEscrowFailure, CheckAvailabilityFailure, LoadBlockedDatesFailure:
		s.Loading = false
		s.Error = a.(Failed).FailureMessage()

	case SelectBooking:
		b := a.Booking
		s.SelectedBooking = &b
	case ClearSelectedBooking:
		s.SelectedBooking = nil
	case ResetBookingState, Logout:
		return initialBookingState()
	case ClearBookingError:
		s.Error = ""
	}
	return s
}

func bookingUpdated(s BookingState, b models.Booking) BookingState {
	s.SelectedBooking = &b
	s.MyBookings = replaceBooking(s.MyBookings, b)
	s.Loading = false
	return s
}

func prependBooking(list []models.Booking, b models.Booking) []models.Booking {
	out := make([]models.Booking, 0, len(list)+1)
	out = append(out, b)
	return append(out, list...)
}

func replaceBooking(list []models.Booking, b models.Booking) []models.Booking {
	out := make([]models.Booking, len(list))
	for i, cur := range list {
		if cur.ID == b.ID {
			out[i] = b
			continue
		}
		out[i] = cur
	}
	return out
}

func removeBooking(list []models.Booking, id int64) []models.Booking {
	out := make([]models.Booking, 0, len(list))
	for _, cur := range list {
		if cur.ID != id {
			out = append(out, cur)
		}
	}
	return out
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
