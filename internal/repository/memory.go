package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"chairbook/internal/domain"
	"chairbook/internal/models"
)

// MemoryStore is an in-process SnapshotStore, used when no snapshot database is configured.
type MemoryStore struct {
	mu             sync.RWMutex
	chairs         map[int64]models.Chair
	availabilities map[int64]models.Availability
	bookings       map[int64]models.Booking
}

var _ domain.SnapshotStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chairs:         make(map[int64]models.Chair),
		availabilities: make(map[int64]models.Availability),
		bookings:       make(map[int64]models.Booking),
	}
}

func (s *MemoryStore) SaveChairs(ctx context.Context, chairs []models.Chair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chairs = make(map[int64]models.Chair, len(chairs))
	for _, c := range chairs {
		s.chairs[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) SaveChair(ctx context.Context, chair models.Chair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chairs[chair.ID] = chair
	return nil
}

func (s *MemoryStore) SaveAvailabilities(ctx context.Context, chairID int64, availabilities []models.Availability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.availabilities {
		if chairID == 0 || a.ChairID == chairID {
			delete(s.availabilities, id)
		}
	}
	for _, a := range availabilities {
		s.availabilities[a.ID] = a
	}
	return nil
}

func (s *MemoryStore) SaveBookings(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return nil
}

func (s *MemoryStore) ListChairs(ctx context.Context) ([]models.Chair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]models.Chair, 0, len(s.chairs))
	for _, c := range s.chairs {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) GetChair(ctx context.Context, id int64) (*models.Chair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chairs[id]
	if !ok {
		return nil, fmt.Errorf("chair %d: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (s *MemoryStore) ListAvailabilities(ctx context.Context, chairID int64) ([]models.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []models.Availability
	for _, a := range s.availabilities {
		if chairID == 0 || a.ChairID == chairID {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []models.Booking
	for _, b := range s.bookings {
		if filter.Matches(&b) {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].StartTime.Equal(res[j].StartTime) {
			return res[i].StartTime.Before(res[j].StartTime)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	return &b, nil
}
