package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chairbook/internal/availability"
	"chairbook/internal/domain"
	"chairbook/internal/models"
	"chairbook/internal/policy"
	"chairbook/internal/service"
	"chairbook/internal/slots"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	q := slotsQuery{
		Start: strings.TrimSpace(r.URL.Query().Get("start")),
		End:   strings.TrimSpace(r.URL.Query().Get("end")),
	}
	step, err := queryInt(r, "step", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Step = step
	if err := validateQuery(&q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if q.Start == "" && q.End == "" && q.Step == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"slots": s.schedule.Templates()})
		return
	}

	if q.Start == "" {
		q.Start = models.DefaultDayStart
	}
	if q.End == "" {
		q.End = models.DefaultDayEnd
	}
	if q.Step == 0 {
		q.Step = models.DefaultStepMinutes
	}
	tpl, err := slots.Generate(q.Start, q.End, q.Step)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": tpl})
}

func (s *HTTPServer) handleDaySlots(w http.ResponseWriter, r *http.Request) {
	chairID, ok := s.chairID(w, r)
	if !ok {
		return
	}
	q := dayQuery{Date: strings.TrimSpace(r.URL.Query().Get("date"))}
	if err := validateQuery(&q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := s.parseDay(q.Date)

	resolved, err := s.schedule.DaySlots(r.Context(), chairID, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chair_id": chairID,
		"date":     date.Format(models.DateLayout),
		"slots":    resolved,
		"summary":  availability.Summarize(chairID, date, resolved),
	})
}

func (s *HTTPServer) handleCheckSlot(w http.ResponseWriter, r *http.Request) {
	chairID, ok := s.chairID(w, r)
	if !ok {
		return
	}
	q := checkQuery{
		Date: strings.TrimSpace(r.URL.Query().Get("date")),
		Time: strings.TrimSpace(r.URL.Query().Get("time")),
	}
	if err := validateQuery(&q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := s.parseDay(q.Date)

	available, err := s.schedule.CheckSlot(r.Context(), chairID, date, q.Time)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chair_id":  chairID,
		"date":      date.Format(models.DateLayout),
		"time":      q.Time,
		"available": available,
	})
}

func (s *HTTPServer) calendarRequest(w http.ResponseWriter, r *http.Request) (int64, time.Time, int, bool) {
	chairID, ok := s.chairID(w, r)
	if !ok {
		return 0, time.Time{}, 0, false
	}
	days, err := queryInt(r, "days", models.DefaultCalendarDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, time.Time{}, 0, false
	}
	q := calendarQuery{From: strings.TrimSpace(r.URL.Query().Get("from")), Days: days}
	if err := validateQuery(&q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, time.Time{}, 0, false
	}
	return chairID, s.parseDay(q.From), q.Days, true
}

func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	chairID, from, days, ok := s.calendarRequest(w, r)
	if !ok {
		return
	}
	res, err := s.schedule.Calendar(r.Context(), chairID, from, days)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chair_id": chairID,
		"from":     from.Format(models.DateLayout),
		"days":     res,
	})
}

func (s *HTTPServer) handleCalendarExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	chairID, from, days, ok := s.calendarRequest(w, r)
	if !ok {
		return
	}
	chair, err := s.schedule.Chair(r.Context(), chairID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	res, err := s.schedule.Calendar(r.Context(), chairID, from, days)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	data, err := s.exporter.CalendarWorkbook(*chair, res)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	filename := fmt.Sprintf("chair_%d_%s.xlsx", chairID, from.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := dayQuery{Date: strings.TrimSpace(r.URL.Query().Get("date"))}
	if err := validateQuery(&q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := s.parseDay(q.Date)

	res, err := s.schedule.Overview(r.Context(), date, s.now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":   date.Format(models.DateLayout),
		"chairs": res,
	})
}

// handleEligibility evaluates the booking for the requested role. Only staff API
// keys may ask for a role other than their own.
func (s *HTTPServer) handleEligibility(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || bookingID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	q := eligibilityQuery{
		Role: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role"))),
		Now:  strings.TrimSpace(r.URL.Query().Get("now")),
	}
	if err := validateQuery(&q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// non-staff API keys are evaluated under their own role
	role := q.Role
	if client, ok := clientFromContext(r.Context()); ok && (role == "" || !policy.IsStaff(client.Role)) {
		role = client.Role
	}
	if role == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return
	}

	now := s.now()
	if q.Now != "" {
		now, err = time.Parse(time.RFC3339, q.Now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "now must be an RFC3339 timestamp")
			return
		}
	}

	b, el, err := s.bookings.Eligibility(r.Context(), bookingID, role, now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"booking":     b,
		"eligibility": el,
	})
}

func (s *HTTPServer) chairID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid chair id")
		return 0, false
	}
	return id, true
}

// parseDay reads an already validated YYYY-MM-DD date; empty means today.
func (s *HTTPServer) parseDay(raw string) time.Time {
	loc := s.schedule.Location()
	if raw == "" {
		y, m, d := s.now().In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	t, _ := time.ParseInLocation(models.DateLayout, raw, loc)
	return t
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "backend unavailable")
	case errors.Is(err, slots.ErrInvalidClock),
		errors.Is(err, slots.ErrInvalidStep),
		errors.Is(err, slots.ErrInvalidRange),
		errors.Is(err, service.ErrInvalidDays):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
