package events

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// Type routing key события
type Type string

const (
	AppointmentCreated   Type = "appointment.created"
	AppointmentCancelled Type = "appointment.cancelled"
	AppointmentCompleted Type = "appointment.completed"
	AppointmentConfirmed Type = "appointment.confirmed"
)

// AppointmentEvent тело сообщения о смене состояния записи
type AppointmentEvent struct {
	Type               Type      `json:"type"`
	AppointmentID      string    `json:"appointmentId"`
	UserID             string    `json:"userId"`
	InstitutionID      string    `json:"institutionId"`
	ServiceID          string    `json:"serviceId"`
	Date               string    `json:"date"`
	StartTime          string    `json:"startTime"`
	EndTime            string    `json:"endTime"`
	Status             string    `json:"status"`
	QueueNumber        string    `json:"queueNumber"`
	CancellationReason *string   `json:"cancellationReason,omitempty"`
	ServiceMinutes     *int      `json:"serviceMinutes,omitempty"`
	OccurredAt         time.Time `json:"occurredAt"`
}

// NewAppointmentEvent снимок записи для события
func NewAppointmentEvent(t Type, a *domain.Appointment, at time.Time) AppointmentEvent {
	return AppointmentEvent{
		Type:               t,
		AppointmentID:      a.ID,
		UserID:             a.UserID,
		InstitutionID:      a.InstitutionID,
		ServiceID:          a.ServiceID,
		Date:               a.Date.Format(domain.DateFormat),
		StartTime:          a.StartTime.String(),
		EndTime:            a.EndTime.String(),
		Status:             string(a.Status),
		QueueNumber:        a.QueueNumber,
		CancellationReason: a.CancellationReason,
		ServiceMinutes:     a.ServiceMinutes,
		OccurredAt:         at,
	}
}
