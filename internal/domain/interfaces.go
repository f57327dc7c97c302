package domain

import (
	"context"
	"time"

	"chairbook/internal/models"
	"chairbook/internal/policy"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingFilter narrows booking listings. Zero fields are not applied.
// From is inclusive, To is exclusive.
type BookingFilter struct {
	ChairID int64
	UserID  int64
	Status  string
	From    time.Time
	To      time.Time
}

// SnapshotSource is a read-only view of backend records.
type SnapshotSource interface {
	ListChairs(ctx context.Context) ([]models.Chair, error)
	GetChair(ctx context.Context, id int64) (*models.Chair, error)
	ListAvailabilities(ctx context.Context, chairID int64) ([]models.Availability, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

// SnapshotStore persists the last good snapshot for offline reads.
type SnapshotStore interface {
	SnapshotSource
	SaveChairs(ctx context.Context, chairs []models.Chair) error
	SaveChair(ctx context.Context, chair models.Chair) error
	SaveAvailabilities(ctx context.Context, chairID int64, availabilities []models.Availability) error
	SaveBookings(ctx context.Context, bookings []models.Booking) error
}

type ScheduleService interface {
	Location() *time.Location
	Templates() []models.SlotTemplate
	Chair(ctx context.Context, id int64) (*models.Chair, error)
	DaySlots(ctx context.Context, chairID int64, date time.Time) ([]models.ResolvedSlot, error)
	Calendar(ctx context.Context, chairID int64, from time.Time, days int) ([]models.DayResolution, error)
	CheckSlot(ctx context.Context, chairID int64, date time.Time, clock string) (bool, error)
	Overview(ctx context.Context, date time.Time, now time.Time) ([]models.ChairDay, error)
}

type BookingService interface {
	Eligibility(ctx context.Context, bookingID int64, role string, now time.Time) (*models.Booking, policy.Eligibility, error)
	Upcoming(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	PublishDayBoard(ctx context.Context, date time.Time, days []models.ChairDay) error
}

// Matches reports whether b passes the filter.
func (f BookingFilter) Matches(b *models.Booking) bool {
	if f.ChairID != 0 && b.ChairID != f.ChairID {
		return false
	}
	if f.UserID != 0 && b.UserID != f.UserID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && b.StartTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !b.StartTime.Before(f.To) {
		return false
	}
	return true
}
