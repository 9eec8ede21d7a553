package models

// ReservationStatus is the backend lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCheckedIn ReservationStatus = "CHECKED_IN"
	StatusCompleted ReservationStatus = "COMPLETED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusRefunded  ReservationStatus = "REFUNDED"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusRefunded},
	StatusCheckedIn: {StatusCompleted},
	StatusCancelled: {StatusRefunded},
}

// CanTransition reports whether the backend lifecycle allows from -> to.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

const (
	// DateLayout is the day-granularity key used for blocked dates and query params.
	DateLayout = "2006-01-02"

	// LocalDateTimeLayout is the zone-less date-time format the booking service expects.
	LocalDateTimeLayout = "2006-01-02T15:04:05"

	// CheckInHour and CheckOutHour are the default times sent with a new booking.
	CheckInHour  = 14
	CheckOutHour = 11

	// ServiceFeeRate is the platform surcharge on base+cleaning+pet.
	ServiceFeeRate = 0.10

	// MaxGuests mirrors the booking service validation bound.
	MaxGuests = 50

	// DefaultPageSize is the catalog page size used by the listings view.
	DefaultPageSize = 50

	// DefaultEthPriceEUR is the fixed demo conversion rate (1 ETH = 2000 EUR).
	DefaultEthPriceEUR = 2000.0

	// TransferGas is the gas limit of a plain value transfer.
	TransferGas = 21000
)
