package models

import "time"

type Chair struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Status      string    `json:"status"` // active, inactive
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Chair) IsActive() bool {
	return c.Status == ChairActive
}

// Availability is a recurring weekly window during which a chair may be booked.
// StartTime/EndTime are time-of-day strings; ValidFrom/ValidTo are optional dates.
type Availability struct {
	ID        int64     `json:"id"`
	ChairID   int64     `json:"chair_id"`
	DayOfWeek int       `json:"day_of_week"` // 0-6 (Sunday-Saturday)
	StartTime string    `json:"start_time"`  // "08:00"
	EndTime   string    `json:"end_time"`    // "12:00"
	IsActive  bool      `json:"is_active"`
	ValidFrom *string   `json:"valid_from,omitempty"`
	ValidTo   *string   `json:"valid_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SlotTemplate is one row of the business day, independent of any date.
type SlotTemplate struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeSlot is a concrete slot on a date.
type TimeSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
	BookingID *int64    `json:"booking_id,omitempty"`
}

// ResolvedSlot is a TimeSlot with its derived status.
type ResolvedSlot struct {
	Slot    TimeSlot `json:"slot"`
	Status  string   `json:"status"` // available, booked, unavailable
	Booking *Booking `json:"booking,omitempty"`
}

// DaySummary counts slot statuses for one chair and date.
type DaySummary struct {
	ChairID     int64  `json:"chair_id"`
	Date        string `json:"date"`
	Total       int    `json:"total"`
	Available   int    `json:"available"`
	Booked      int    `json:"booked"`
	Unavailable int    `json:"unavailable"`
}

// DayResolution is one column of the calendar grid.
type DayResolution struct {
	Date  string         `json:"date"`
	Slots []ResolvedSlot `json:"slots"`
}

// ChairDay is one row of the overview: a chair, its counts and the slots still bookable.
type ChairDay struct {
	Chair    Chair          `json:"chair"`
	Summary  DaySummary     `json:"summary"`
	Bookable []ResolvedSlot `json:"bookable"`
}
