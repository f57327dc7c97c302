package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chairbook/internal/domain"
	"chairbook/internal/models"
	"chairbook/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	require.NoError(t, s.SaveChairs(ctx, []models.Chair{
		{ID: 1, Name: "Window", Status: models.ChairActive},
		{ID: 2, Name: "Corner", Status: models.ChairActive},
		{ID: 3, Name: "Broken", Status: models.ChairInactive},
	}))
	require.NoError(t, s.SaveAvailabilities(ctx, 0, []models.Availability{
		{ID: 1, ChairID: 1, DayOfWeek: 1, StartTime: "08:00", EndTime: "12:00", IsActive: true},
		{ID: 2, ChairID: 2, DayOfWeek: 1, StartTime: "14:00", EndTime: "15:00", IsActive: true},
		{ID: 3, ChairID: 3, DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", IsActive: true},
		{ID: 4, ChairID: 1, DayOfWeek: 1, StartTime: "bogus", EndTime: "12:00", IsActive: true},
	}))
	require.NoError(t, s.SaveBookings(ctx, []models.Booking{
		{ID: 10, ChairID: 1, UserID: 5, StartTime: monday.Add(9 * time.Hour), Status: models.StatusScheduled},
		{ID: 11, ChairID: 1, UserID: 6, StartTime: monday.Add(10 * time.Hour), Status: models.StatusCancelled},
		{ID: 12, ChairID: 1, UserID: 5, StartTime: monday.AddDate(0, 0, 7).Add(9 * time.Hour), Status: models.StatusScheduled},
	}))
	return s
}

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

var errBackend = errors.New("backend down")
