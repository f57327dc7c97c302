package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListChairs(ctx context.Context) ([]models.Chair, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chair), args.Error(1)
}

func (m *mockSource) GetChair(ctx context.Context, id int64) (*models.Chair, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chair), args.Error(1)
}

func (m *mockSource) ListAvailabilities(ctx context.Context, chairID int64) ([]models.Availability, error) {
	args := m.Called(ctx, chairID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Availability), args.Error(1)
}

func (m *mockSource) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]models.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockSource) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func TestFailoverSource(t *testing.T) {
	primary := new(mockSource)
	store := NewMemoryStore()
	logger := zerolog.New(io.Discard)
	src := NewFailoverSource(primary, store, &logger)
	ctx := context.Background()

	chairs := []models.Chair{{ID: 1, Name: "A", Status: models.ChairActive}}

	t.Run("PrimarySuccessWritesThrough", func(t *testing.T) {
		primary.On("ListChairs", ctx).Return(chairs, nil).Once()

		got, err := src.ListChairs(ctx)
		require.NoError(t, err)
		assert.Equal(t, chairs, got)
		assert.False(t, src.Down())

		stored, err := store.ListChairs(ctx)
		require.NoError(t, err)
		assert.Equal(t, chairs, stored)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailServesSnapshot", func(t *testing.T) {
		primary.On("ListChairs", ctx).Return(nil, domain.ErrUnavailable).Once()

		got, err := src.ListChairs(ctx)
		require.NoError(t, err)
		assert.Equal(t, chairs, got)
		assert.True(t, src.Down())
		primary.AssertExpectations(t)
	})

	t.Run("WhileDownPrimaryIsSkipped", func(t *testing.T) {
		got, err := src.ListChairs(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		primary.AssertNumberOfCalls(t, "ListChairs", 2)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		src.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		updated := []models.Chair{{ID: 2, Name: "B", Status: models.ChairActive}}
		primary.On("ListChairs", ctx).Return(updated, nil).Once()

		got, err := src.ListChairs(ctx)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.False(t, src.Down())
		primary.AssertExpectations(t)
	})

	t.Run("NotFoundIsAuthoritative", func(t *testing.T) {
		primary.On("GetBooking", ctx, int64(7)).Return(nil, domain.ErrNotFound).Once()
		require.NoError(t, store.SaveBookings(ctx, []models.Booking{{ID: 7, ChairID: 1}}))

		_, err := src.GetBooking(ctx, 7)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, src.Down())
	})

	t.Run("GetBookingWritesThrough", func(t *testing.T) {
		b := &models.Booking{ID: 8, ChairID: 1, StartTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
		primary.On("GetBooking", ctx, int64(8)).Return(b, nil).Once()

		_, err := src.GetBooking(ctx, 8)
		require.NoError(t, err)
		stored, err := store.GetBooking(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.ChairID)
	})

	t.Run("GetChairWritesThrough", func(t *testing.T) {
		chair := &models.Chair{ID: 42, Name: "Door", Status: models.ChairActive}
		primary.On("GetChair", ctx, int64(42)).Return(chair, nil).Once()

		_, err := src.GetChair(ctx, 42)
		require.NoError(t, err)

		// the upsert keeps chairs saved by earlier list reads
		all, err := store.ListChairs(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("GetChairServedFromSnapshot", func(t *testing.T) {
		primary.On("GetChair", ctx, int64(42)).Return(nil, errors.New("boom")).Once()

		got, err := src.GetChair(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "Door", got.Name)
		assert.True(t, src.Down())
	})

	t.Run("BothFail", func(t *testing.T) {
		src.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("GetChair", ctx, int64(43)).Return(nil, errors.New("boom")).Once()

		_, err := src.GetChair(ctx, 43)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.True(t, src.Down())
	})
}

func TestFailoverSource_AvailabilitiesAndBookings(t *testing.T) {
	primary := new(mockSource)
	store := NewMemoryStore()
	src := NewFailoverSource(primary, store, nil)
	ctx := context.Background()

	avail := []models.Availability{{ID: 1, ChairID: 3, DayOfWeek: 1, StartTime: "08:00", EndTime: "12:00", IsActive: true}}
	filter := domain.BookingFilter{ChairID: 3}
	bookings := []models.Booking{{ID: 5, ChairID: 3, Status: models.StatusScheduled}}

	primary.On("ListAvailabilities", ctx, int64(3)).Return(avail, nil).Once()
	primary.On("ListBookings", ctx, filter).Return(bookings, nil).Once()

	_, err := src.ListAvailabilities(ctx, 3)
	require.NoError(t, err)
	_, err = src.ListBookings(ctx, filter)
	require.NoError(t, err)

	primary.On("ListAvailabilities", ctx, int64(3)).Return(nil, domain.ErrUnavailable).Once()
	gotAvail, err := src.ListAvailabilities(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, avail, gotAvail)

	gotBookings, err := src.ListBookings(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, bookings, gotBookings)
	primary.AssertExpectations(t)
}
