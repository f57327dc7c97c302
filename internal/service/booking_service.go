package service

import (
	"context"
	"fmt"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/models"
	"chairbook/internal/policy"

	"github.com/rs/zerolog"
)

type BookingService struct {
	source domain.SnapshotSource
	logger *zerolog.Logger
}

var _ domain.BookingService = (*BookingService)(nil)

func NewBookingService(source domain.SnapshotSource, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{source: source, logger: logger}
}

// Eligibility evaluates what role may do with the booking at now.
// Unrecognized roles are evaluated as given and get no permissions.
func (s *BookingService) Eligibility(ctx context.Context, bookingID int64, role string, now time.Time) (*models.Booking, policy.Eligibility, error) {
	b, err := s.source.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, policy.Eligibility{}, fmt.Errorf("get booking %d: %w", bookingID, err)
	}
	if parsed, ok := policy.ParseRole(role); ok {
		role = parsed
	}
	return b, policy.Evaluate(b, now, role), nil
}

// Upcoming returns scheduled sessions starting in [from, to).
func (s *BookingService) Upcoming(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	bookings, err := s.source.ListBookings(ctx, domain.BookingFilter{
		Status: models.StatusScheduled,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("list upcoming bookings: %w", err)
	}
	s.logger.Debug().Int("count", len(bookings)).Time("from", from).Time("to", to).Msg("Upcoming bookings loaded")
	return bookings, nil
}
