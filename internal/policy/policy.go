package policy

import (
	"fmt"
	"strings"
	"time"

	"chairbook/internal/models"
)

// AlreadyPassed is returned by FormatRemaining once the session has started.
const AlreadyPassed = "already passed"

// ParseRole normalizes a role string. Unknown roles yield "" and ok=false.
func ParseRole(raw string) (string, bool) {
	switch role := strings.ToLower(strings.TrimSpace(raw)); role {
	case models.RoleUser, models.RoleAttendant, models.RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// IsStaff reports whether role may act on bookings it does not own.
func IsStaff(role string) bool {
	return role == models.RoleAttendant || role == models.RoleAdmin
}

// attendanceLocked reports statuses after which the booking can no longer be cancelled.
func attendanceLocked(status string) bool {
	switch status {
	case models.StatusPresenceConfirmed, models.StatusCompleted, models.StatusNoShow:
		return true
	default:
		return false
	}
}

// CanCancel reports whether role may cancel b at now.
// Staff may cancel any scheduled future session; the owner only until
// CancellationLeadTime before the start.
func CanCancel(b *models.Booking, now time.Time, role string) bool {
	if b == nil || attendanceLocked(b.Status) {
		return false
	}
	if b.StartTime.Before(now) {
		return false
	}
	if b.Status != models.StatusScheduled {
		return false
	}

	switch role {
	case models.RoleAttendant, models.RoleAdmin:
		return true
	case models.RoleUser:
		return now.Before(CancelDeadline(b))
	default:
		return false
	}
}

// CanReschedule is staff-only and limited to scheduled sessions that have not started.
func CanReschedule(b *models.Booking, now time.Time, role string) bool {
	if b == nil || !IsStaff(role) {
		return false
	}
	if attendanceLocked(b.Status) || b.Status == models.StatusCancelled {
		return false
	}
	if b.StartTime.Before(now) {
		return false
	}
	return b.Status == models.StatusScheduled
}

func CanConfirmPresence(b *models.Booking, role string) bool {
	return b != nil && IsStaff(role) && b.Status == models.StatusScheduled
}

// CanMarkNoShow is only possible once the session time has elapsed.
func CanMarkNoShow(b *models.Booking, now time.Time, role string) bool {
	return b != nil && IsStaff(role) && b.Status == models.StatusScheduled && b.StartTime.Before(now)
}

// CancelDeadline is the last instant (exclusive) at which the owner may cancel.
func CancelDeadline(b *models.Booking) time.Time {
	return b.StartTime.Add(-models.CancellationLeadTime)
}

// FormatRemaining renders the time until start, truncating to whole minutes, hours or days.
func FormatRemaining(start, now time.Time) string {
	if !start.After(now) {
		return AlreadyPassed
	}

	diffMinutes := int64(start.Sub(now) / time.Minute)
	switch {
	case diffMinutes < 60:
		return fmt.Sprintf("%d minutes", diffMinutes)
	case diffMinutes < 24*60:
		return fmt.Sprintf("%d hours", diffMinutes/60)
	default:
		return fmt.Sprintf("%d days", diffMinutes/60/24)
	}
}

// Eligibility is the full set of actions a role may take on a booking at a given instant.
type Eligibility struct {
	BookingID      int64     `json:"booking_id"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	CanCancel      bool      `json:"can_cancel"`
	CanReschedule  bool      `json:"can_reschedule"`
	CanConfirm     bool      `json:"can_confirm_presence"`
	CanMarkNoShow  bool      `json:"can_mark_no_show"`
	Remaining      string    `json:"remaining"`
	CancelDeadline time.Time `json:"cancel_deadline"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

func Evaluate(b *models.Booking, now time.Time, role string) Eligibility {
	if b == nil {
		return Eligibility{Role: role, Remaining: AlreadyPassed, EvaluatedAt: now}
	}
	return Eligibility{
		BookingID:      b.ID,
		Role:           role,
		Status:         b.Status,
		CanCancel:      CanCancel(b, now, role),
		CanReschedule:  CanReschedule(b, now, role),
		CanConfirm:     CanConfirmPresence(b, role),
		CanMarkNoShow:  CanMarkNoShow(b, now, role),
		Remaining:      FormatRemaining(b.StartTime, now),
		CancelDeadline: CancelDeadline(b),
		EvaluatedAt:    now,
	}
}
