package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chairbook/internal/availability"
	"chairbook/internal/domain"
	"chairbook/internal/metrics"
	"chairbook/internal/models"
	"chairbook/internal/slots"

	"github.com/rs/zerolog"
)

var ErrInvalidDays = errors.New("days out of range")

// ScheduleService resolves per-slot availability from backend snapshots.
type ScheduleService struct {
	source    domain.SnapshotSource
	resolver  *availability.Resolver
	generator slots.Generator
	loc       *time.Location
	logger    *zerolog.Logger
}

var _ domain.ScheduleService = (*ScheduleService)(nil)

func NewScheduleService(source domain.SnapshotSource, generator slots.Generator, loc *time.Location, logger *zerolog.Logger) *ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &ScheduleService{
		source:    source,
		generator: generator,
		loc:       loc,
		logger:    logger,
	}
	s.resolver = availability.New(s.onSkip)
	return s
}

func (s *ScheduleService) onSkip(kind string, id int64, err error) {
	metrics.IncSkippedRecord(kind)
	s.logger.Warn().Err(err).Str("kind", kind).Int64("id", id).Msg("Skipping malformed record")
}

func (s *ScheduleService) Templates() []models.SlotTemplate {
	return s.generator.Templates()
}

// Location is the timezone dates are interpreted in.
func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

func (s *ScheduleService) Chair(ctx context.Context, id int64) (*models.Chair, error) {
	ch, err := s.source.GetChair(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get chair %d: %w", id, err)
	}
	return ch, nil
}

// day keeps the calendar date of t and moves it to midnight in the schedule timezone.
func (s *ScheduleService) day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *ScheduleService) DaySlots(ctx context.Context, chairID int64, date time.Time) ([]models.ResolvedSlot, error) {
	day := s.day(date)
	avail, bookings, err := s.load(ctx, chairID, day, 1)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveDay(chairID, day, avail, bookings, s.generator.Templates()), nil
}

func (s *ScheduleService) Calendar(ctx context.Context, chairID int64, from time.Time, days int) ([]models.DayResolution, error) {
	if days < 1 || days > models.MaxCalendarDays {
		return nil, fmt.Errorf("%w: %d (1-%d)", ErrInvalidDays, days, models.MaxCalendarDays)
	}
	day := s.day(from)
	avail, bookings, err := s.load(ctx, chairID, day, days)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveRange(chairID, day, days, avail, bookings, s.generator.Templates()), nil
}

func (s *ScheduleService) CheckSlot(ctx context.Context, chairID int64, date time.Time, clock string) (bool, error) {
	if _, err := slots.ParseClock(clock); err != nil {
		return false, err
	}
	day := s.day(date)
	avail, bookings, err := s.load(ctx, chairID, day, 1)
	if err != nil {
		return false, err
	}
	return s.resolver.IsSlotAvailable(chairID, day, clock, avail, bookings, s.generator.Templates()), nil
}

// Overview resolves every active chair for date and keeps the slots still bookable at now.
func (s *ScheduleService) Overview(ctx context.Context, date, now time.Time) ([]models.ChairDay, error) {
	day := s.day(date)

	chairs, err := s.source.ListChairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chairs: %w", err)
	}
	avail, err := s.source.ListAvailabilities(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	bookings, err := s.source.ListBookings(ctx, domain.BookingFilter{From: day, To: day.AddDate(0, 0, 1)})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	templates := s.generator.Templates()
	res := make([]models.ChairDay, 0, len(chairs))
	for _, ch := range chairs {
		if !ch.IsActive() {
			continue
		}
		resolved := s.resolver.ResolveDay(ch.ID, day, avail, bookings, templates)
		res = append(res, models.ChairDay{
			Chair:    ch,
			Summary:  availability.Summarize(ch.ID, day, resolved),
			Bookable: availability.Bookable(resolved, now),
		})
	}
	return res, nil
}

func (s *ScheduleService) load(ctx context.Context, chairID int64, from time.Time, days int) ([]models.Availability, []models.Booking, error) {
	if _, err := s.source.GetChair(ctx, chairID); err != nil {
		return nil, nil, fmt.Errorf("get chair %d: %w", chairID, err)
	}
	avail, err := s.source.ListAvailabilities(ctx, chairID)
	if err != nil {
		return nil, nil, fmt.Errorf("list availabilities: %w", err)
	}
	bookings, err := s.source.ListBookings(ctx, domain.BookingFilter{
		ChairID: chairID,
		From:    from,
		To:      from.AddDate(0, 0, days),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list bookings: %w", err)
	}
	return avail, bookings, nil
}
