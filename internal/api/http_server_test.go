package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chairbook/internal/config"
	"chairbook/internal/export"
	"chairbook/internal/models"
	"chairbook/internal/repository"
	"chairbook/internal/service"
	"chairbook/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := repository.NewMemoryStore()
	require.NoError(t, s.SaveChairs(ctx, []models.Chair{
		{ID: 1, Name: "Window", Status: models.ChairActive},
		{ID: 2, Name: "Closed", Status: models.ChairInactive},
	}))
	require.NoError(t, s.SaveAvailabilities(ctx, 0, []models.Availability{
		{ID: 1, ChairID: 1, DayOfWeek: 1, StartTime: "08:00", EndTime: "10:00", IsActive: true},
	}))
	require.NoError(t, s.SaveBookings(ctx, []models.Booking{
		{ID: 10, ChairID: 1, UserID: 3, StartTime: monday.Add(9 * time.Hour), Status: models.StatusScheduled},
	}))
	return s
}

func newTestServer(t *testing.T, cfg config.APIConfig) *HTTPServer {
	t.Helper()
	store := newTestStore(t)
	logger := zerolog.New(io.Discard)
	schedule := service.NewScheduleService(store, slots.Default(), time.UTC, &logger)
	bookings := service.NewBookingService(store, &logger)
	srv := NewHTTPServer(cfg, schedule, bookings, export.New(t.TempDir(), &logger), &logger)
	srv.now = func() time.Time { return monday.Add(8*time.Hour + 10*time.Minute) }
	return srv
}

func doGet(t *testing.T, h http.Handler, url string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out), rr.Body.String())
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()
	rr := doGet(t, h, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	rr = doGet(t, h, "/healthz", map[string]string{requestIDHeader: "req-1"})
	assert.Equal(t, "req-1", rr.Header().Get(requestIDHeader))
}

func TestSlotsEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	tests := []struct {
		name      string
		url       string
		wantCode  int
		wantCount int
	}{
		{name: "configured day", url: "/api/v1/slots", wantCode: http.StatusOK, wantCount: 20},
		{name: "custom range", url: "/api/v1/slots?start=09:00&end=10:00&step=15", wantCode: http.StatusOK, wantCount: 4},
		{name: "partial tail dropped", url: "/api/v1/slots?start=08:00&end=09:10&step=30", wantCode: http.StatusOK, wantCount: 2},
		{name: "inverted range", url: "/api/v1/slots?start=18:00&end=08:00", wantCode: http.StatusBadRequest},
		{name: "bad clock", url: "/api/v1/slots?start=8am", wantCode: http.StatusBadRequest},
		{name: "bad step", url: "/api/v1/slots?step=-5", wantCode: http.StatusBadRequest},
		{name: "non-numeric step", url: "/api/v1/slots?step=abc", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doGet(t, h, tt.url, nil)
			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			if tt.wantCode != http.StatusOK {
				var body map[string]string
				decode(t, rr, &body)
				assert.NotEmpty(t, body["error"])
				return
			}
			var body struct {
				Slots []models.SlotTemplate `json:"slots"`
			}
			decode(t, rr, &body)
			assert.Len(t, body.Slots, tt.wantCount)
		})
	}
}

func TestDaySlotsEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	rr := doGet(t, h, "/api/v1/chairs/1/slots?date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		ChairID int64                 `json:"chair_id"`
		Date    string                `json:"date"`
		Slots   []models.ResolvedSlot `json:"slots"`
		Summary models.DaySummary     `json:"summary"`
	}
	decode(t, rr, &body)
	assert.Equal(t, int64(1), body.ChairID)
	assert.Equal(t, "2026-03-02", body.Date)
	assert.Len(t, body.Slots, 20)
	assert.Equal(t, 3, body.Summary.Available)
	assert.Equal(t, 1, body.Summary.Booked)
	assert.Equal(t, 16, body.Summary.Unavailable)

	// date defaults to today
	rr = doGet(t, h, "/api/v1/chairs/1/slots", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &body)
	assert.Equal(t, "2026-03-02", body.Date)

	assert.Equal(t, http.StatusNotFound, doGet(t, h, "/api/v1/chairs/9/slots?date=2026-03-02", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/chairs/x/slots", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/chairs/1/slots?date=02.03.2026", nil).Code)
}

func TestCheckSlotEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	tests := []struct {
		clock string
		want  bool
	}{
		{"08:30", true},
		{"09:00", false},
		{"11:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			rr := doGet(t, h, "/api/v1/chairs/1/slots/check?date=2026-03-02&time="+tt.clock, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			var body struct {
				Available bool `json:"available"`
			}
			decode(t, rr, &body)
			assert.Equal(t, tt.want, body.Available)
		})
	}

	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/chairs/1/slots/check?date=2026-03-02", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/chairs/1/slots/check?time=99:00", nil).Code)
}

func TestCalendarEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	rr := doGet(t, h, "/api/v1/chairs/1/calendar?from=2026-03-02&days=3", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Days []models.DayResolution `json:"days"`
	}
	decode(t, rr, &body)
	require.Len(t, body.Days, 3)
	assert.Equal(t, "2026-03-04", body.Days[2].Date)

	rr = doGet(t, h, "/api/v1/chairs/1/calendar?from=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &body)
	assert.Len(t, body.Days, models.DefaultCalendarDays)

	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/chairs/1/calendar?days=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/chairs/1/calendar?days=32", nil).Code)
}

func TestCalendarExportEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	rr := doGet(t, h, "/api/v1/chairs/1/calendar.xlsx?from=2026-03-02&days=2", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "chair_1_20260302.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	title, err := f.GetCellValue("Calendar", "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "Window")

	assert.Equal(t, http.StatusNotFound, doGet(t, h, "/api/v1/chairs/5/calendar.xlsx", nil).Code)
}

func TestOverviewEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	rr := doGet(t, h, "/api/v1/overview?date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Chairs []models.ChairDay `json:"chairs"`
	}
	decode(t, rr, &body)
	require.Len(t, body.Chairs, 1)
	assert.Equal(t, "Window", body.Chairs[0].Chair.Name)
	// now is 08:10, so 08:00 is gone: 08:30 and 09:30 remain
	assert.Len(t, body.Chairs[0].Bookable, 2)
}

func TestEligibilityEndpoint(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()

	type response struct {
		Booking     models.Booking `json:"booking"`
		Eligibility struct {
			CanCancel     bool   `json:"can_cancel"`
			CanReschedule bool   `json:"can_reschedule"`
			CanConfirm    bool   `json:"can_confirm_presence"`
			CanMarkNoShow bool   `json:"can_mark_no_show"`
			Remaining     string `json:"remaining"`
		} `json:"eligibility"`
	}

	t.Run("user inside lead time", func(t *testing.T) {
		rr := doGet(t, h, "/api/v1/bookings/10/eligibility?role=user", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var body response
		decode(t, rr, &body)
		assert.Equal(t, int64(10), body.Booking.ID)
		assert.False(t, body.Eligibility.CanCancel)
		assert.Equal(t, "50 minutes", body.Eligibility.Remaining)
	})

	t.Run("attendant with explicit now", func(t *testing.T) {
		rr := doGet(t, h, "/api/v1/bookings/10/eligibility?role=attendant&now=2026-03-02T09:10:00Z", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var body response
		decode(t, rr, &body)
		assert.False(t, body.Eligibility.CanCancel)
		assert.True(t, body.Eligibility.CanConfirm)
		assert.True(t, body.Eligibility.CanMarkNoShow)
		assert.Equal(t, "already passed", body.Eligibility.Remaining)
	})

	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/bookings/10/eligibility", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, h, "/api/v1/bookings/10/eligibility?role=owner", nil).Code)
	for _, now := range []string{"yesterday", "2026-03-02", "2026-03-02T09:10:00", "2026-03-02%2009:10:00Z"} {
		rr := doGet(t, h, "/api/v1/bookings/10/eligibility?role=user&now="+now, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, now)
		assert.Contains(t, rr.Body.String(), "RFC3339", now)
	}
	assert.Equal(t, http.StatusNotFound, doGet(t, h, "/api/v1/bookings/11/eligibility?role=user", nil).Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	h := newTestServer(t, config.APIConfig{}).Handler()
	assert.Equal(t, http.StatusNotFound, doGet(t, h, "/api/v2/slots", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slots", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, config.APIConfig{CORS: config.APICORSConfig{AllowedOrigins: []string{"https://app.example.test"}}}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/slots", nil)
	req.Header.Set("Origin", "https://app.example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.test", rr.Header().Get("Access-Control-Allow-Origin"))
}
