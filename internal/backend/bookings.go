package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"rentdapp/internal/models"
)

const serviceBookings = "bookings"

var errMissingDates = fmt.Errorf("%w: checkIn and checkOut are required", ErrInvalidRequest)

// BookingService wraps the /bookings endpoints.
type BookingService struct {
	c *Client
}

func NewBookingService(c *Client) *BookingService {
	return &BookingService{c: c}
}

// Create validates and submits a new reservation, which starts PENDING.
func (s *BookingService) Create(ctx context.Context, req models.CreateBooking) (*models.Booking, error) {
	if req.CheckInDate.IsZero() || req.CheckOutDate.IsZero() {
		return nil, errMissingDates
	}
	if !req.CheckOutDate.After(req.CheckInDate.Time) {
		return nil, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidRequest)
	}
	var out models.Booking
	if err := s.c.send(ctx, serviceBookings, http.MethodPost, "/bookings/new", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BookingService) My(ctx context.Context) ([]models.Booking, error) {
	return s.list(ctx, "/bookings/my-bookings")
}

func (s *BookingService) Upcoming(ctx context.Context) ([]models.Booking, error) {
	return s.list(ctx, "/bookings/upcoming")
}

func (s *BookingService) Past(ctx context.Context) ([]models.Booking, error) {
	return s.list(ctx, "/bookings/past")
}

func (s *BookingService) ForProperty(ctx context.Context, propertyID int64) ([]models.Booking, error) {
	return s.list(ctx, idPath("/bookings/property/%s/bookings", propertyID))
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	var out models.Booking
	if err := s.c.get(ctx, serviceBookings, idPath("/bookings/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm marks a paid reservation CONFIRMED with its transaction hash.
func (s *BookingService) Confirm(ctx context.Context, id int64, txHash string) (*models.Booking, error) {
	if txHash == "" {
		return nil, fmt.Errorf("%w: blockchainTxHash is required", ErrInvalidRequest)
	}
	return s.patch(ctx, idPath("/bookings/%s/confirm", id), models.TxHashRequest{BlockchainTxHash: txHash})
}

func (s *BookingService) CheckIn(ctx context.Context, id int64) (*models.Booking, error) {
	return s.patch(ctx, idPath("/bookings/%s/check-in", id), struct{}{})
}

func (s *BookingService) CheckOut(ctx context.Context, id int64) (*models.Booking, error) {
	return s.patch(ctx, idPath("/bookings/%s/check-out", id), struct{}{})
}

func (s *BookingService) Cancel(ctx context.Context, id int64, reason string) (*models.Booking, error) {
	return s.patch(ctx, idPath("/bookings/%s/cancel", id), models.CancelRequest{Reason: reason})
}

func (s *BookingService) ReleaseEscrow(ctx context.Context, id int64, txHash string) (*models.Booking, error) {
	return s.patch(ctx, idPath("/bookings/%s/release-escrow", id), models.TxHashRequest{BlockchainTxHash: txHash})
}

// CheckAvailability asks whether [checkIn, checkOut) is free.
func (s *BookingService) CheckAvailability(ctx context.Context, propertyID int64, checkIn, checkOut time.Time) (bool, error) {
	q := url.Values{}
	q.Set("checkIn", models.DateKey(checkIn))
	q.Set("checkOut", models.DateKey(checkOut))
	var out models.AvailabilityResponse
	if err := s.c.get(ctx, serviceBookings, idPath("/bookings/property/%s/check-availability", propertyID), q, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// BlockedDates lists the days already reserved for a property.
func (s *BookingService) BlockedDates(ctx context.Context, propertyID int64) ([]string, error) {
	var out []string
	err := s.c.get(ctx, serviceBookings, idPath("/bookings/property/%s", propertyID), nil, &out)
	if err != nil && !IsStatus(err, http.StatusNotFound) {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) list(ctx context.Context, path string) ([]models.Booking, error) {
	var out []models.Booking
	if err := s.c.get(ctx, serviceBookings, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) patch(ctx context.Context, path string, body any) (*models.Booking, error) {
	var out models.Booking
	if err := s.c.send(ctx, serviceBookings, http.MethodPatch, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
