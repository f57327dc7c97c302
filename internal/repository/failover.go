package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/metrics"
	"chairbook/internal/models"

	"github.com/rs/zerolog"
)

const defaultRetryAfter = time.Minute

// FailoverSource reads from the backend and mirrors every successful read into
// the snapshot store. While the backend is down, reads are served from the store
// and the backend is retried once per retry interval.
type FailoverSource struct {
	primary    domain.SnapshotSource
	fallback   domain.SnapshotStore
	logger     *zerolog.Logger
	retryAfter time.Duration
	isDown     atomic.Bool
	lastCheck  atomic.Int64
}

var _ domain.SnapshotSource = (*FailoverSource)(nil)

func NewFailoverSource(primary domain.SnapshotSource, fallback domain.SnapshotStore, logger *zerolog.Logger) *FailoverSource {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverSource{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		retryAfter: defaultRetryAfter,
	}
}

// Down reports whether reads are currently served from the snapshot store.
func (r *FailoverSource) Down() bool {
	return r.isDown.Load()
}

func (r *FailoverSource) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > r.retryAfter
}

func (r *FailoverSource) markDown(op string, err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Str("op", op).Msg("Backend failed, serving snapshot")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSource) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Backend recovered")
	}
}

func readThrough[T any](
	ctx context.Context,
	r *FailoverSource,
	op string,
	primary func(context.Context) (T, error),
	save func(context.Context, T) error,
	fallback func(context.Context) (T, error),
) (T, error) {
	if r.usePrimary() {
		v, err := primary(ctx)
		if err == nil {
			r.markUp()
			if save != nil {
				if serr := save(ctx, v); serr != nil {
					r.logger.Warn().Err(serr).Str("op", op).Msg("Snapshot write failed")
				}
			}
			return v, nil
		}
		// a backend miss is authoritative
		if errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			return v, err
		}
		r.markDown(op, err)
	}

	metrics.IncSnapshotFallback()
	return fallback(ctx)
}

func (r *FailoverSource) ListChairs(ctx context.Context) ([]models.Chair, error) {
	return readThrough(ctx, r, "list_chairs",
		r.primary.ListChairs,
		r.fallback.SaveChairs,
		r.fallback.ListChairs,
	)
}

func (r *FailoverSource) GetChair(ctx context.Context, id int64) (*models.Chair, error) {
	return readThrough(ctx, r, "get_chair",
		func(ctx context.Context) (*models.Chair, error) { return r.primary.GetChair(ctx, id) },
		func(ctx context.Context, c *models.Chair) error { return r.fallback.SaveChair(ctx, *c) },
		func(ctx context.Context) (*models.Chair, error) { return r.fallback.GetChair(ctx, id) },
	)
}

func (r *FailoverSource) ListAvailabilities(ctx context.Context, chairID int64) ([]models.Availability, error) {
	return readThrough(ctx, r, "list_availabilities",
		func(ctx context.Context) ([]models.Availability, error) { return r.primary.ListAvailabilities(ctx, chairID) },
		func(ctx context.Context, v []models.Availability) error {
			return r.fallback.SaveAvailabilities(ctx, chairID, v)
		},
		func(ctx context.Context) ([]models.Availability, error) { return r.fallback.ListAvailabilities(ctx, chairID) },
	)
}

func (r *FailoverSource) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]models.Booking, error) {
	return readThrough(ctx, r, "list_bookings",
		func(ctx context.Context) ([]models.Booking, error) { return r.primary.ListBookings(ctx, filter) },
		r.fallback.SaveBookings,
		func(ctx context.Context) ([]models.Booking, error) { return r.fallback.ListBookings(ctx, filter) },
	)
}

func (r *FailoverSource) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return readThrough(ctx, r, "get_booking",
		func(ctx context.Context) (*models.Booking, error) { return r.primary.GetBooking(ctx, id) },
		func(ctx context.Context, b *models.Booking) error {
			return r.fallback.SaveBookings(ctx, []models.Booking{*b})
		},
		func(ctx context.Context) (*models.Booking, error) { return r.fallback.GetBooking(ctx, id) },
	)
}
