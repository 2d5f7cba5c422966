package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cdo-tour-client/internal/client"
	"cdo-tour-client/internal/models"

	"github.com/rs/zerolog/log"
)

// BookingService handles booking CRUD against the remote API. Ownership is
// enforced server-side; this service only forwards authenticated requests.
type BookingService struct {
	client *client.Client
}

// NewBookingService creates a new booking service
func NewBookingService(c *client.Client) *BookingService {
	return &BookingService{client: c}
}

// List returns the authenticated user's bookings
func (s *BookingService) List(ctx context.Context) ([]models.Booking, error) {
	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodGet,
		Path:   "/bookings/",
	})
	if err != nil {
		return nil, err
	}
	var bookings []models.Booking
	if err := client.DecodeJSON(resp, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// Create books the given destination. Guests below 1 are floored to 1
// before transmission.
func (s *BookingService) Create(ctx context.Context, destination, date string, guests int) (models.Booking, error) {
	payload, err := bookingPayload(destination, date, guests)
	if err != nil {
		return models.Booking{}, err
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   "/bookings/",
		Body:   payload,
	})
	if err != nil {
		return models.Booking{}, err
	}
	var booking models.Booking
	if err := client.DecodeJSON(resp, &booking); err != nil {
		return models.Booking{}, err
	}

	log.Info().
		Int64("booking_id", booking.ID).
		Str("destination", booking.Destination).
		Int("guests", payload.Guests).
		Msg("Booking created")
	return booking, nil
}

// Update edits an existing booking. The same guest floor applies.
func (s *BookingService) Update(ctx context.Context, id int64, destination, date string, guests int) (models.Booking, error) {
	payload, err := bookingPayload(destination, date, guests)
	if err != nil {
		return models.Booking{}, err
	}

	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/bookings/%d/", id),
		Body:   payload,
	})
	if err != nil {
		return models.Booking{}, err
	}
	var booking models.Booking
	if err := client.DecodeJSON(resp, &booking); err != nil {
		return models.Booking{}, err
	}

	log.Info().Int64("booking_id", id).Msg("Booking updated")
	return booking, nil
}

// Delete cancels a booking
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	resp, err := s.client.Do(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/bookings/%d/", id),
	})
	if err != nil {
		return err
	}
	if err := client.DecodeJSON(resp, nil); err != nil {
		return err
	}

	log.Info().Int64("booking_id", id).Msg("Booking deleted")
	return nil
}

// bookingPayload validates the date and applies the guest floor
func bookingPayload(destination, date string, guests int) (models.BookingRequest, error) {
	if destination == "" {
		return models.BookingRequest{}, fmt.Errorf("destination is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return models.BookingRequest{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return models.BookingRequest{
		Destination: destination,
		Date:        date,
		Guests:      clampGuests(guests),
	}, nil
}

// clampGuests floors the ticket count at 1. A deliberate floor, not an error.
func clampGuests(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
