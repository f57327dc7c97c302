package availability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chairbook/internal/models"
	"chairbook/internal/slots"
)

var errMissingStart = errors.New("missing start time")

// Record kinds reported to SkipFunc.
const (
	KindAvailability = "availability"
	KindBooking      = "booking"
	KindTemplate     = "template"
)

// SkipFunc is told about every malformed record the resolver ignores.
type SkipFunc func(kind string, id int64, err error)

// Resolver merges weekly availability windows and bookings into per-slot statuses.
// The zero value is ready to use.
type Resolver struct {
	OnSkip SkipFunc
}

func New(onSkip SkipFunc) *Resolver {
	return &Resolver{OnSkip: onSkip}
}

type window struct {
	start, end int
}

// ResolveDay computes the status of every template slot of chairID on date.
// A booked slot is always reported as booked, even without a covering window.
func (r *Resolver) ResolveDay(
	chairID int64,
	date time.Time,
	availabilities []models.Availability,
	bookings []models.Booking,
	templates []models.SlotTemplate,
) []models.ResolvedSlot {
	windows := r.windowsFor(chairID, date, availabilities)
	booked := r.bookingsByStart(chairID, bookings)

	res := make([]models.ResolvedSlot, 0, len(templates))
	for _, tpl := range templates {
		startMin, err := slots.ParseClock(tpl.Start)
		if err != nil {
			r.skip(KindTemplate, 0, err)
			continue
		}
		endMin, err := slots.ParseClock(tpl.End)
		if err != nil {
			r.skip(KindTemplate, 0, err)
			continue
		}

		slot := models.ResolvedSlot{
			Slot: models.TimeSlot{
				Start: slots.At(date, startMin),
				End:   slots.At(date, endMin),
			},
			Status: models.SlotUnavailable,
		}
		if covered(windows, startMin, endMin) {
			slot.Status = models.SlotAvailable
		}
		if b, ok := booked[slot.Slot.Start.UnixNano()]; ok {
			slot.Status = models.SlotBooked
			slot.Booking = b
			id := b.ID
			slot.Slot.BookingID = &id
		}
		slot.Slot.Available = slot.Status == models.SlotAvailable
		res = append(res, slot)
	}
	return res
}

// IsSlotAvailable reports whether the slot starting at timeOfDay ("HH:MM") is available.
// Unknown or unparsable times are not available.
func (r *Resolver) IsSlotAvailable(
	chairID int64,
	date time.Time,
	timeOfDay string,
	availabilities []models.Availability,
	bookings []models.Booking,
	templates []models.SlotTemplate,
) bool {
	minute, err := slots.ParseClock(timeOfDay)
	if err != nil {
		return false
	}
	want := slots.At(date, minute)
	for _, s := range r.ResolveDay(chairID, date, availabilities, bookings, templates) {
		if s.Slot.Start.Equal(want) {
			return s.Status == models.SlotAvailable
		}
	}
	return false
}

// ResolveRange resolves days consecutive dates starting at from.
func (r *Resolver) ResolveRange(
	chairID int64,
	from time.Time,
	days int,
	availabilities []models.Availability,
	bookings []models.Booking,
	templates []models.SlotTemplate,
) []models.DayResolution {
	if days <= 0 {
		return nil
	}
	res := make([]models.DayResolution, 0, days)
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		res = append(res, models.DayResolution{
			Date:  day.Format(models.DateLayout),
			Slots: r.ResolveDay(chairID, day, availabilities, bookings, templates),
		})
	}
	return res
}

func (r *Resolver) windowsFor(chairID int64, date time.Time, availabilities []models.Availability) []window {
	dow := int(date.Weekday())
	day := dayKey(date)

	var res []window
	for _, a := range availabilities {
		if a.ChairID != chairID || a.DayOfWeek != dow || !a.IsActive {
			continue
		}
		start, err := slots.ParseClock(a.StartTime)
		if err != nil {
			r.skip(KindAvailability, a.ID, err)
			continue
		}
		end, err := slots.ParseClock(a.EndTime)
		if err != nil {
			r.skip(KindAvailability, a.ID, err)
			continue
		}
		if start >= end {
			r.skip(KindAvailability, a.ID, fmt.Errorf("window %s-%s is empty", a.StartTime, a.EndTime))
			continue
		}

		inRange, err := validOn(a, day)
		if err != nil {
			r.skip(KindAvailability, a.ID, err)
			continue
		}
		if !inRange {
			continue
		}
		res = append(res, window{start: start, end: end})
	}
	return res
}

func (r *Resolver) bookingsByStart(chairID int64, bookings []models.Booking) map[int64]*models.Booking {
	res := make(map[int64]*models.Booking)
	for i := range bookings {
		b := bookings[i]
		if b.ChairID != chairID || !b.IsActive() {
			continue
		}
		if b.StartTime.IsZero() {
			r.skip(KindBooking, b.ID, errMissingStart)
			continue
		}
		key := b.StartTime.UnixNano()
		if _, exists := res[key]; exists {
			continue
		}
		res[key] = &b
	}
	return res
}

func (r *Resolver) skip(kind string, id int64, err error) {
	if r != nil && r.OnSkip != nil {
		r.OnSkip(kind, id, err)
	}
}

// covered is a union test: overlapping windows are not an error.
func covered(windows []window, start, end int) bool {
	for _, w := range windows {
		if w.start <= start && end <= w.end {
			return true
		}
	}
	return false
}

func validOn(a models.Availability, day int) (bool, error) {
	if a.ValidFrom != nil && strings.TrimSpace(*a.ValidFrom) != "" {
		from, err := parseDate(*a.ValidFrom)
		if err != nil {
			return false, fmt.Errorf("valid_from: %w", err)
		}
		if day < dayKey(from) {
			return false, nil
		}
	}
	if a.ValidTo != nil && strings.TrimSpace(*a.ValidTo) != "" {
		to, err := parseDate(*a.ValidTo)
		if err != nil {
			return false, fmt.Errorf("valid_to: %w", err)
		}
		if day > dayKey(to) {
			return false, nil
		}
	}
	return true, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// dayKey orders calendar dates as YYYYMMDD integers.
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
