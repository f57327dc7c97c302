package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ChairID   int64     `json:"chair_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"` // scheduled, presence_confirmed, completed, cancelled, no_show
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the booking still occupies its slot.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// SessionEnd returns EndTime, or StartTime plus the session length when EndTime is unset.
func (b *Booking) SessionEnd() time.Time {
	if b.EndTime.IsZero() {
		return b.StartTime.Add(SessionDuration)
	}
	return b.EndTime
}
