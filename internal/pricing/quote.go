package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"rentdapp/internal/models"
)

// ErrInvalidRange is returned when check-out is not after check-in.
var ErrInvalidRange = errors.New("check-out must be after check-in")

// Rates are the property prices a quote is computed from.
type Rates struct {
	PricePerNight float64
	CleaningFee   float64
	PetFee        float64
}

// RatesFor extracts the quoting rates of p.
func RatesFor(p *models.Property) Rates {
	if p == nil {
		return Rates{}
	}
	return Rates{PricePerNight: p.PricePerNight, CleaningFee: p.CleaningFee, PetFee: p.PetFee}
}

// Quote is the price breakdown of a stay. Valid is false for an empty range.
type Quote struct {
	Nights      int     `json:"nights"`
	BaseAmount  float64 `json:"baseAmount"`
	CleaningFee float64 `json:"cleaningFee"`
	PetFee      float64 `json:"petFee"`
	ServiceFee  float64 `json:"serviceFee"`
	TotalAmount float64 `json:"totalAmount"`
	Valid       bool    `json:"valid"`
}

// Nights is the stay length rounded up to whole days.
func Nights(checkIn, checkOut time.Time) int {
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

// NewQuote prices a stay. A missing bound or a non-positive night count
// yields the zero quote.
func NewQuote(r Rates, checkIn, checkOut time.Time, hasPets bool) Quote {
	if checkIn.IsZero() || checkOut.IsZero() {
		return Quote{}
	}
	nights := Nights(checkIn, checkOut)
	if nights <= 0 {
		return Quote{}
	}

	q := Quote{
		Nights:      nights,
		BaseAmount:  r.PricePerNight * float64(nights),
		CleaningFee: r.CleaningFee,
		Valid:       true,
	}
	if hasPets && r.PetFee > 0 {
		q.PetFee = r.PetFee
	}
	subtotal := q.BaseAmount + q.CleaningFee + q.PetFee
	q.ServiceFee = subtotal * models.ServiceFeeRate
	q.TotalAmount = subtotal + q.ServiceFee
	return q
}

// QuoteStrict is NewQuote that reports an empty range as ErrInvalidRange.
func QuoteStrict(r Rates, checkIn, checkOut time.Time, hasPets bool) (Quote, error) {
	q := NewQuote(r, checkIn, checkOut, hasPets)
	if !q.Valid {
		return q, fmt.Errorf("quote %s..%s: %w", models.DateKey(checkIn), models.DateKey(checkOut), ErrInvalidRange)
	}
	return q, nil
}

// Breakdown converts the quote to the booking service representation.
func (q Quote) Breakdown(pricePerNight float64) models.PriceBreakdown {
	return models.PriceBreakdown{
		LockedPricePerNight:   pricePerNight,
		BaseAmount:            q.BaseAmount,
		CleaningFee:           q.CleaningFee,
		PetFee:                q.PetFee,
		ServiceFee:            q.ServiceFee,
		TotalAmount:           q.TotalAmount,
		PlatformFeePercentage: models.ServiceFeeRate * 100,
	}
}

// ToLocalDateTime is the check-in wire value of day (14:00, no zone).
func ToLocalDateTime(day time.Time) models.LocalDateTime {
	return models.NewLocalDateTime(day, models.CheckInHour)
}

// ToLocalDateTimeCheckOut is the check-out wire value of day (11:00, no zone).
func ToLocalDateTimeCheckOut(day time.Time) models.LocalDateTime {
	return models.NewLocalDateTime(day, models.CheckOutHour)
}

// BookingRequest assembles the create-booking body for a valid range.
func BookingRequest(propertyID int64, checkIn, checkOut time.Time, guests int, hasPets bool, notes string) (models.CreateBooking, error) {
	if checkIn.IsZero() || checkOut.IsZero() || Nights(checkIn, checkOut) <= 0 {
		return models.CreateBooking{}, ErrInvalidRange
	}
	return models.CreateBooking{
		PropertyID:      propertyID,
		CheckInDate:     ToLocalDateTime(checkIn),
		CheckOutDate:    ToLocalDateTimeCheckOut(checkOut),
		NumGuests:       guests,
		HasPets:         hasPets,
		SpecialRequests: notes,
	}, nil
}
