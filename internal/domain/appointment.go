package domain

import (
	"fmt"
	"time"

	"github.com/queueease/booking-service/pkg/types"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// IsValid reports whether s is a known status
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo implements pending -> confirmed -> completed and
// pending|confirmed -> cancelled
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCompleted || next == StatusCancelled
	}
	return false
}

// SourcesFor lists the statuses from which next can be reached
func SourcesFor(next AppointmentStatus) []AppointmentStatus {
	sources := make([]AppointmentStatus, 0, 2)
	for _, s := range []AppointmentStatus{StatusPending, StatusConfirmed} {
		if s.CanTransitionTo(next) {
			sources = append(sources, s)
		}
	}
	return sources
}

// Appointment is a reservation of one slot by one user. Appointments are
// never deleted, only moved through statuses.
type Appointment struct {
	ID            string
	UserID        string
	InstitutionID string
	ServiceID     string
	Date          time.Time
	StartTime     types.TimeString
	EndTime       types.TimeString
	Status        AppointmentStatus
	QueueNumber   string
	QueueSeq      int

	// Denormalized data for history
	ServiceName     string
	InstitutionName string
	ContactName     *string
	ContactPhone    *string
	Notes           *string

	CancellationReason *string
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	ServiceMinutes     *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true unless the appointment was cancelled; active
// appointments hold their slot
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// Overlaps reports whether the appointment's [StartTime, EndTime) interval
// intersects [start, end). A record without an end time collides only on
// its exact start.
func (a *Appointment) Overlaps(start, end types.TimeString) bool {
	if a.EndTime == "" {
		return a.StartTime == start
	}
	return a.StartTime.IsBefore(end) && start.IsBefore(a.EndTime)
}

// CanBeCancelled returns true if the appointment can be cancelled
func (a *Appointment) CanBeCancelled() bool {
	return a.Status.CanTransitionTo(StatusCancelled)
}

// CanBeCompleted returns true if the appointment can be marked as served
func (a *Appointment) CanBeCompleted() bool {
	return a.Status.CanTransitionTo(StatusCompleted)
}

// CanBeConfirmed returns true for pending appointments
func (a *Appointment) CanBeConfirmed() bool {
	return a.Status.CanTransitionTo(StatusConfirmed)
}

// IsUpcoming reports whether the appointment is dated today or later and
// still open. Date wins over status: a confirmed appointment from yesterday
// is past.
func (a *Appointment) IsUpcoming(today time.Time) bool {
	if DateOnly(a.Date).Before(DateOnly(today)) {
		return false
	}
	return a.Status != StatusCancelled && a.Status != StatusCompleted
}

// TimeSlot returns the embedded slot snapshot
func (a *Appointment) TimeSlot() TimeSlot {
	return TimeSlot{
		ID:        SlotID(a.Date, a.StartTime, a.ServiceID),
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Available: false,
		ServiceID: a.ServiceID,
	}
}

// PartitionAppointments splits appointments into upcoming and past
func PartitionAppointments(appointments []*Appointment, today time.Time) (upcoming, past []*Appointment) {
	upcoming = make([]*Appointment, 0)
	past = make([]*Appointment, 0)
	for _, a := range appointments {
		if a.IsUpcoming(today) {
			upcoming = append(upcoming, a)
		} else {
			past = append(past, a)
		}
	}
	return upcoming, past
}

// FormatQueueNumber builds the human-facing token, e.g. H007
func FormatQueueNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s%03d", prefix, seq)
}

// AppointmentsFilter фильтр для выборки записей
type AppointmentsFilter struct {
	InstitutionID   *string
	ServiceID       *string
	StartDate       *time.Time
	EndDate         *time.Time
	Status          *AppointmentStatus
	IncludeInactive bool // включать отменённые
}

// IsSingleDay reports whether the filter targets exactly one date
func (f AppointmentsFilter) IsSingleDay() bool {
	return f.StartDate != nil && f.EndDate != nil && DateOnly(*f.StartDate).Equal(DateOnly(*f.EndDate))
}

// DateOnly returns the calendar date of t as UTC midnight, so dates read from
// DATE columns compare correctly with local wall-clock instants
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants share a calendar date
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
