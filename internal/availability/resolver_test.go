package availability

import (
	"testing"
	"time"

	"chairbook/internal/models"
	"chairbook/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func templates(t *testing.T) []models.SlotTemplate {
	t.Helper()
	res, err := slots.Generate("08:00", "18:00", 30)
	require.NoError(t, err)
	return res
}

func morning(chairID int64) models.Availability {
	return models.Availability{
		ID: 1, ChairID: chairID, DayOfWeek: int(time.Monday),
		StartTime: "09:00", EndTime: "12:00", IsActive: true,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func statusAt(t *testing.T, res []models.ResolvedSlot, clock string) models.ResolvedSlot {
	t.Helper()
	for _, s := range res {
		if s.Slot.Start.Format("15:04") == clock {
			return s
		}
	}
	t.Fatalf("slot %s not found", clock)
	return models.ResolvedSlot{}
}

func TestResolveDay_WindowContainment(t *testing.T) {
	res := ResolveDay(1, monday, []models.Availability{morning(1)}, nil, templates(t))
	require.Len(t, res, 20)

	assert.Equal(t, models.SlotUnavailable, statusAt(t, res, "08:30").Status)
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "09:00").Status)
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "11:30").Status, "11:30-12:00 fits [09:00,12:00)")
	assert.Equal(t, models.SlotUnavailable, statusAt(t, res, "12:00").Status)

	sum := Summarize(1, monday, res)
	assert.Equal(t, 6, sum.Available)
	assert.Equal(t, 14, sum.Unavailable)
	assert.Equal(t, 0, sum.Booked)
	assert.Equal(t, "2025-06-02", sum.Date)
}

func TestResolveDay_PartialOverlapIsUnavailable(t *testing.T) {
	a := morning(1)
	a.StartTime = "09:15"
	res := ResolveDay(1, monday, []models.Availability{a}, nil, templates(t))
	assert.Equal(t, models.SlotUnavailable, statusAt(t, res, "09:00").Status)
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "09:30").Status)
}

func TestResolveDay_Filters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *models.Availability)
	}{
		{"other chair", func(a *models.Availability) { a.ChairID = 2 }},
		{"other weekday", func(a *models.Availability) { a.DayOfWeek = int(time.Tuesday) }},
		{"inactive", func(a *models.Availability) { a.IsActive = false }},
		{"not yet valid", func(a *models.Availability) { a.ValidFrom = strPtr("2025-06-03") }},
		{"expired", func(a *models.Availability) { a.ValidTo = strPtr("2025-06-01") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := morning(1)
			tt.mutate(&a)
			res := ResolveDay(1, monday, []models.Availability{a}, nil, templates(t))
			assert.Equal(t, 0, Summarize(1, monday, res).Available)
		})
	}
}

func TestResolveDay_ValidityBoundsInclusive(t *testing.T) {
	a := morning(1)
	a.ValidFrom = strPtr("2025-06-02")
	a.ValidTo = strPtr("2025-06-02T00:00:00Z")
	res := ResolveDay(1, monday, []models.Availability{a}, nil, templates(t))
	assert.Equal(t, 6, Summarize(1, monday, res).Available)

	empty := morning(1)
	empty.ValidFrom = strPtr("")
	res = ResolveDay(1, monday, []models.Availability{empty}, nil, templates(t))
	assert.Equal(t, 6, Summarize(1, monday, res).Available, "empty validity means unbounded")
}

func TestResolveDay_BookingOverridesAvailability(t *testing.T) {
	b := models.Booking{ID: 42, ChairID: 1, StartTime: at(10, 0), Status: models.StatusScheduled}
	res := ResolveDay(1, monday, []models.Availability{morning(1)}, []models.Booking{b}, templates(t))

	slot := statusAt(t, res, "10:00")
	assert.Equal(t, models.SlotBooked, slot.Status)
	require.NotNil(t, slot.Booking)
	assert.Equal(t, int64(42), slot.Booking.ID)
	require.NotNil(t, slot.Slot.BookingID)
	assert.Equal(t, int64(42), *slot.Slot.BookingID)
	assert.False(t, slot.Slot.Available)
}

func TestResolveDay_BookingWithoutAvailability(t *testing.T) {
	b := models.Booking{ID: 9, ChairID: 1, StartTime: at(10, 0), Status: models.StatusScheduled}
	res := ResolveDay(1, monday, nil, []models.Booking{b}, templates(t))

	assert.Equal(t, models.SlotBooked, statusAt(t, res, "10:00").Status)
	assert.Equal(t, models.SlotUnavailable, statusAt(t, res, "10:30").Status)
}

func TestResolveDay_IgnoredBookings(t *testing.T) {
	bookings := []models.Booking{
		{ID: 1, ChairID: 1, StartTime: at(9, 0), Status: models.StatusCancelled},
		{ID: 2, ChairID: 2, StartTime: at(9, 30), Status: models.StatusScheduled},
		{ID: 3, ChairID: 1, StartTime: at(10, 15), Status: models.StatusScheduled},
	}
	res := ResolveDay(1, monday, []models.Availability{morning(1)}, bookings, templates(t))
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "09:00").Status, "cancelled booking frees the slot")
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "09:30").Status, "other chair")
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "10:00").Status, "start time must match exactly")
}

func TestResolveDay_NonCancelledStatusesOccupy(t *testing.T) {
	for _, status := range []string{models.StatusPresenceConfirmed, models.StatusCompleted, models.StatusNoShow} {
		b := models.Booking{ID: 5, ChairID: 1, StartTime: at(9, 0), Status: status}
		res := ResolveDay(1, monday, []models.Availability{morning(1)}, []models.Booking{b}, templates(t))
		assert.Equal(t, models.SlotBooked, statusAt(t, res, "09:00").Status, status)
	}
}

func TestResolveDay_MatchesAcrossTimezones(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, loc)
	b := models.Booking{ID: 1, ChairID: 1, StartTime: time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC), Status: models.StatusScheduled}
	res := ResolveDay(1, date, []models.Availability{morning(1)}, []models.Booking{b}, templates(t))
	assert.Equal(t, models.SlotBooked, statusAt(t, res, "10:00").Status)
}

func TestResolveDay_OverlappingWindowsUnion(t *testing.T) {
	a := morning(1)
	b := morning(1)
	b.ID = 2
	b.StartTime = "11:00"
	b.EndTime = "13:00"
	res := ResolveDay(1, monday, []models.Availability{a, b, a}, nil, templates(t))
	assert.Equal(t, 8, Summarize(1, monday, res).Available)
}

func TestResolveDay_MalformedRecordsSkipped(t *testing.T) {
	var skipped []string
	r := New(func(kind string, id int64, err error) {
		assert.Error(t, err)
		skipped = append(skipped, kind)
	})

	badClock := morning(1)
	badClock.ID = 2
	badClock.StartTime = "nine"
	badDate := morning(1)
	badDate.ID = 3
	badDate.ValidTo = strPtr("next week")
	emptyWindow := morning(1)
	emptyWindow.ID = 4
	emptyWindow.EndTime = "09:00"

	bookings := []models.Booking{
		{ID: 10, ChairID: 1, Status: models.StatusScheduled},
		{ID: 11, ChairID: 1, StartTime: at(9, 30), Status: models.StatusScheduled},
	}
	tpls := append(templates(t), models.SlotTemplate{Start: "bad", End: "18:30"})

	res := r.ResolveDay(1, monday, []models.Availability{badClock, morning(1), badDate, emptyWindow}, bookings, tpls)
	require.Len(t, res, 20)
	assert.Equal(t, models.SlotAvailable, statusAt(t, res, "09:00").Status)
	assert.Equal(t, models.SlotBooked, statusAt(t, res, "09:30").Status)
	assert.ElementsMatch(t, []string{KindAvailability, KindAvailability, KindAvailability, KindBooking, KindTemplate}, skipped)
}

func TestResolveDay_Idempotent(t *testing.T) {
	avail := []models.Availability{morning(1)}
	bookings := []models.Booking{{ID: 1, ChairID: 1, StartTime: at(10, 0), Status: models.StatusScheduled}}
	tpls := templates(t)

	first := ResolveDay(1, monday, avail, bookings, tpls)
	second := ResolveDay(1, monday, avail, bookings, tpls)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), bookings[0].ID, "inputs are not mutated")
}

func TestIsSlotAvailable(t *testing.T) {
	avail := []models.Availability{morning(1)}
	bookings := []models.Booking{{ID: 1, ChairID: 1, StartTime: at(10, 0), Status: models.StatusScheduled}}
	tpls := templates(t)

	assert.True(t, IsSlotAvailable(1, monday, "09:30", avail, bookings, tpls))
	assert.False(t, IsSlotAvailable(1, monday, "10:00", avail, bookings, tpls), "booked")
	assert.False(t, IsSlotAvailable(1, monday, "14:00", avail, bookings, tpls), "outside window")
	assert.False(t, IsSlotAvailable(1, monday, "09:15", avail, bookings, tpls), "not a slot start")
	assert.False(t, IsSlotAvailable(1, monday, "oops", avail, bookings, tpls))
}

func TestResolveRange(t *testing.T) {
	r := &Resolver{}
	avail := []models.Availability{morning(1)}
	bookings := []models.Booking{{ID: 1, ChairID: 1, StartTime: time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC), Status: models.StatusScheduled}}

	days := r.ResolveRange(1, monday, 8, avail, bookings, templates(t))
	require.Len(t, days, 8)
	assert.Equal(t, "2025-06-02", days[0].Date)
	assert.Equal(t, "2025-06-09", days[7].Date)
	assert.Equal(t, 6, Summarize(1, monday, days[0].Slots).Available)
	assert.Equal(t, 0, Summarize(1, monday, days[1].Slots).Available, "tuesday has no window")
	assert.Equal(t, 1, Summarize(1, monday, days[7].Slots).Booked)

	assert.Nil(t, r.ResolveRange(1, monday, 0, avail, bookings, templates(t)))
}

func TestBookable(t *testing.T) {
	bookings := []models.Booking{{ID: 1, ChairID: 1, StartTime: at(10, 0), Status: models.StatusScheduled}}
	res := ResolveDay(1, monday, []models.Availability{morning(1)}, bookings, templates(t))

	open := Bookable(res, at(9, 30))
	require.Len(t, open, 3)
	assert.Equal(t, "10:30", open[0].Slot.Start.Format("15:04"))
}
