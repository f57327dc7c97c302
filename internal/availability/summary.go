package availability

import (
	"time"

	"chairbook/internal/models"
)

var defaultResolver = &Resolver{}

// ResolveDay resolves with a resolver that drops malformed records silently.
func ResolveDay(
	chairID int64,
	date time.Time,
	availabilities []models.Availability,
	bookings []models.Booking,
	templates []models.SlotTemplate,
) []models.ResolvedSlot {
	return defaultResolver.ResolveDay(chairID, date, availabilities, bookings, templates)
}

func IsSlotAvailable(
	chairID int64,
	date time.Time,
	timeOfDay string,
	availabilities []models.Availability,
	bookings []models.Booking,
	templates []models.SlotTemplate,
) bool {
	return defaultResolver.IsSlotAvailable(chairID, date, timeOfDay, availabilities, bookings, templates)
}

// Summarize counts statuses for the dashboard.
func Summarize(chairID int64, date time.Time, resolved []models.ResolvedSlot) models.DaySummary {
	sum := models.DaySummary{
		ChairID: chairID,
		Date:    date.Format(models.DateLayout),
		Total:   len(resolved),
	}
	for _, s := range resolved {
		switch s.Status {
		case models.SlotAvailable:
			sum.Available++
		case models.SlotBooked:
			sum.Booked++
		default:
			sum.Unavailable++
		}
	}
	return sum
}

// Bookable keeps the available slots that start after now, as offered by the booking wizard.
func Bookable(resolved []models.ResolvedSlot, now time.Time) []models.ResolvedSlot {
	res := make([]models.ResolvedSlot, 0, len(resolved))
	for _, s := range resolved {
		if s.Status == models.SlotAvailable && s.Slot.Start.After(now) {
			res = append(res, s)
		}
	}
	return res
}
