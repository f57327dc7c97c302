package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"chairbook/internal/availability"
	"chairbook/internal/models"
	"chairbook/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func calendar(t *testing.T) []models.DayResolution {
	t.Helper()
	tpl, err := slots.Generate("08:00", "10:00", 30)
	require.NoError(t, err)

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	avail := []models.Availability{{ID: 1, ChairID: 1, DayOfWeek: 1, StartTime: "08:00", EndTime: "09:00", IsActive: true}}
	bookings := []models.Booking{{ID: 7, ChairID: 1, StartTime: monday.Add(8*time.Hour + 30*time.Minute), Status: models.StatusScheduled}}
	return availability.New(nil).ResolveRange(1, monday, 2, avail, bookings, tpl)
}

func TestCalendarWorkbook(t *testing.T) {
	e := New(t.TempDir(), nil)

	data, err := e.CalendarWorkbook(models.Chair{ID: 1, Name: "Window"}, calendar(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Window: 2026-03-02 - 2026-03-03", title)

	header, _ := f.GetCellValue(sheetName, "B2")
	assert.Equal(t, "Mon 02.03", header)

	rows := map[string]string{"A3": "08:00", "A6": "09:30", "B3": "free", "B4": "booked #7", "B5": "-", "C3": "-"}
	for cell, want := range rows {
		got, err := f.GetCellValue(sheetName, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
}

func TestSaveCalendar(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	e := New(dir, nil)

	path, err := e.SaveCalendar(models.Chair{ID: 1}, calendar(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chair_1_2026-03-02_to_2026-03-03.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	title, _ := f.GetCellValue(sheetName, "A1")
	assert.Equal(t, "Chair 1: 2026-03-02 - 2026-03-03", title)

	_, err = e.SaveCalendar(models.Chair{ID: 1}, nil)
	assert.Error(t, err)
}

func TestCellLabel(t *testing.T) {
	id := int64(3)
	assert.Equal(t, "free", CellLabel(models.ResolvedSlot{Status: models.SlotAvailable}))
	assert.Equal(t, "booked #3", CellLabel(models.ResolvedSlot{Status: models.SlotBooked, Slot: models.TimeSlot{BookingID: &id}}))
	assert.Equal(t, "booked", CellLabel(models.ResolvedSlot{Status: models.SlotBooked}))
	assert.Equal(t, "-", CellLabel(models.ResolvedSlot{Status: models.SlotUnavailable}))
}
