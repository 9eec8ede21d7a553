package store

import (
	"sort"

	"rentdapp/internal/models"
)

func SelectMyBookings(s State) []models.Booking { return s.Booking.MyBookings }

func SelectBookingsByStatus(status models.ReservationStatus) func(State) []models.Booking {
	return func(s State) []models.Booking {
		var out []models.Booking
		for _, b := range s.Booking.MyBookings {
			if b.Status == status {
				out = append(out, b)
			}
		}
		return out
	}
}

// SelectCancellableBookings lists bookings that have not reached a terminal
// or cancelled state.
func SelectCancellableBookings(s State) []models.Booking {
	var out []models.Booking
	for _, b := range s.Booking.MyBookings {
		switch b.Status {
		case models.StatusCompleted, models.StatusCancelled, models.StatusRefunded:
			continue
		}
		out = append(out, b)
	}
	return out
}

// SelectNextBooking is the upcoming booking with the earliest check-in.
func SelectNextBooking(s State) *models.Booking {
	if len(s.Booking.UpcomingBookings) == 0 {
		return nil
	}
	sorted := append([]models.Booking(nil), s.Booking.UpcomingBookings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CheckInDate.Before(sorted[j].CheckInDate.Time)
	})
	return &sorted[0]
}

func SelectBookingByID(id int64) func(State) *models.Booking {
	return func(s State) *models.Booking {
		for i := range s.Booking.MyBookings {
			if s.Booking.MyBookings[i].ID == id {
				b := s.Booking.MyBookings[i]
				return &b
			}
		}
		return nil
	}
}

func SelectHasBookedProperty(propertyID int64) func(State) bool {
	return func(s State) bool {
		for _, b := range s.Booking.MyBookings {
			if b.PropertyID == propertyID {
				return true
			}
		}
		return false
	}
}

type BookingStats struct {
	Total         int     `json:"total"`
	Pending       int     `json:"pending"`
	Confirmed     int     `json:"confirmed"`
	Active        int     `json:"active"`
	Completed     int     `json:"completed"`
	Cancelled     int     `json:"cancelled"`
	TotalSpent    float64 `json:"totalSpent"`
	TotalNights   int     `json:"totalNights"`
	AverageNights float64 `json:"averageNights"`
}

// SelectBookingStats summarizes MyBookings. Spending counts confirmed,
// checked-in and completed stays.
func SelectBookingStats(s State) BookingStats {
	var st BookingStats
	for _, b := range s.Booking.MyBookings {
		st.Total++
		st.TotalNights += b.TotalNights
		switch b.Status {
		case models.StatusPending:
			st.Pending++
		case models.StatusConfirmed:
			st.Confirmed++
			st.TotalSpent += bookingTotal(b)
		case models.StatusCheckedIn:
			st.Active++
			st.TotalSpent += bookingTotal(b)
		case models.StatusCompleted:
			st.Completed++
			st.TotalSpent += bookingTotal(b)
		case models.StatusCancelled:
			st.Cancelled++
		}
	}
	if st.Total > 0 {
		st.AverageNights = float64(st.TotalNights) / float64(st.Total)
	}
	return st
}

func bookingTotal(b models.Booking) float64 {
	if b.PriceBreakdown == nil {
		return 0
	}
	return b.PriceBreakdown.TotalAmount
}

// SelectBlockedDateSet indexes the booking calendar's blocked days.
func SelectBlockedDateSet(s State) map[string]struct{} {
	set := make(map[string]struct{}, len(s.Booking.BlockedDates))
	for _, d := range s.Booking.BlockedDates {
		set[d] = struct{}{}
	}
	return set
}
