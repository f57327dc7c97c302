package models

import "time"

const (
	StatusScheduled         = "scheduled"
	StatusPresenceConfirmed = "presence_confirmed"
	StatusCompleted         = "completed"
	StatusCancelled         = "cancelled"
	StatusNoShow            = "no_show"
)

const (
	RoleUser      = "user"
	RoleAttendant = "attendant"
	RoleAdmin     = "admin"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

const (
	ChairActive   = "active"
	ChairInactive = "inactive"
)

const (
	SlotAvailable   = "available"
	SlotBooked      = "booked"
	SlotUnavailable = "unavailable"
)

const (
	// SessionDuration is the fixed length of one booking.
	SessionDuration = 30 * time.Minute

	// CancellationLeadTime is how long before the session a user may still cancel it.
	CancellationLeadTime = 3 * time.Hour

	// DefaultDayStart and DefaultDayEnd bound the business day.
	DefaultDayStart = "08:00"
	DefaultDayEnd   = "18:00"

	// DefaultStepMinutes is the slot granularity.
	DefaultStepMinutes = 30

	// DefaultCalendarDays is the calendar grid width when none is requested.
	DefaultCalendarDays = 7

	// MaxCalendarDays caps range queries.
	MaxCalendarDays = 31

	// DefaultCacheTTL is the backend response cache lifetime.
	DefaultCacheTTL = 60 // seconds

	// DefaultPageSize is the page size used when walking paginated backend lists.
	DefaultPageSize = 100

	// ReminderHour is the hour the notifier runs its daily pass.
	ReminderHour = 7
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"
