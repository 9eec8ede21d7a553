package models

// PriceBreakdown is the price snapshot locked by the booking service.
type PriceBreakdown struct {
	LockedPricePerNight   float64 `json:"lockedPricePerNight"`
	BaseAmount            float64 `json:"baseAmount"`
	DiscountAmount        float64 `json:"discountAmount"`
	CleaningFee           float64 `json:"cleaningFee"`
	PetFee                float64 `json:"petFee"`
	ServiceFee            float64 `json:"serviceFee"`
	TotalAmount           float64 `json:"totalAmount"`
	PlatformFeePercentage float64 `json:"platformFeePercentage"`
}

// Booking mirrors the reservation returned by the booking service.
type Booking struct {
	ID                  int64             `json:"id"`
	PropertyID          int64             `json:"propertyId"`
	VersionID           int64             `json:"versionId,omitempty"`
	UserID              int64             `json:"userId"`
	CheckInDate         LocalDateTime     `json:"checkInDate"`
	CheckOutDate        LocalDateTime     `json:"checkOutDate"`
	TotalNights         int               `json:"totalNights"`
	NumGuests           int               `json:"numGuests"`
	HasPets             bool              `json:"hasPets"`
	Status              ReservationStatus `json:"status"`
	PriceBreakdown      *PriceBreakdown   `json:"priceBreakdown,omitempty"`
	BlockchainTxHash    string            `json:"blockchainTxHash,omitempty"`
	EscrowReleased      bool              `json:"escrowReleased"`
	EscrowReleaseTxHash string            `json:"escrowReleaseTxHash,omitempty"`
	CancelledAt         *LocalDateTime    `json:"cancelledAt,omitempty"`
	CreatedAt           *LocalDateTime    `json:"createdAt,omitempty"`
}

// IsPending reports whether the reservation still awaits payment.
func (b *Booking) IsPending() bool {
	return b != nil && b.Status == StatusPending
}

// CreateBooking is the body of POST /bookings/new.
type CreateBooking struct {
	PropertyID      int64         `json:"propertyId" validate:"required,gt=0"`
	VersionID       int64         `json:"versionId,omitempty"`
	CheckInDate     LocalDateTime `json:"checkInDate"`
	CheckOutDate    LocalDateTime `json:"checkOutDate"`
	NumGuests       int           `json:"numGuests" validate:"required,min=1,max=50"`
	HasPets         bool          `json:"hasPets"`
	SpecialRequests string        `json:"specialRequests,omitempty" validate:"max=1000"`
}

// CancelRequest is the body of PATCH /bookings/{id}/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// TxHashRequest is the body of confirm and release-escrow calls.
type TxHashRequest struct {
	BlockchainTxHash string `json:"blockchainTxHash"`
}

// AvailabilityResponse is returned by the check-availability endpoint.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}
