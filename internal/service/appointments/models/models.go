package models

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// Request модели

// CancelRequest запрос на отмену записи
type CancelRequest struct {
	UserID string
	Reason *string
}

// CompleteRequest запрос на завершение обслуживания
type CompleteRequest struct {
	UserID         string
	ServiceMinutes *int // nil = вычислить по предыдущему завершению
}

// ListForUserRequest запрос истории записей
type ListForUserRequest struct {
	ActorID string // кто запрашивает
	UserID  string // чьи записи
}

// StatsRequest запрос статистики учреждения
type StatsRequest struct {
	UserID        string
	InstitutionID string
	From          *time.Time // nil = сегодня - 6 дней
	To            *time.Time // nil = сегодня
}

// Response модели

// TimeSlotResponse снимок слота записи
type TimeSlotResponse struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	ServiceID string `json:"serviceId"`
}

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	InstitutionID   string           `json:"institutionId"`
	ServiceID       string           `json:"serviceId"`
	Date            string           `json:"date"` // "2025-10-15"
	TimeSlot        TimeSlotResponse `json:"timeSlot"`
	Status          string           `json:"status"`
	QueueNumber     string           `json:"queueNumber"`
	ServiceName     string           `json:"serviceName"`
	InstitutionName string           `json:"institutionName"`
	Notes           *string          `json:"notes,omitempty"`

	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	ServiceMinutes     *int       `json:"serviceMinutes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppointmentListResponse история записей, разделённая на предстоящие и прошедшие
type AppointmentListResponse struct {
	Upcoming []AppointmentResponse `json:"upcoming"`
	Past     []AppointmentResponse `json:"past"`
}

// DailyBookingsResponse число записей за день
type DailyBookingsResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StatsResponse статистика учреждения за период
type StatsResponse struct {
	InstitutionID string                  `json:"institutionId"`
	From          string                  `json:"from"`
	To            string                  `json:"to"`
	TotalBookings int                     `json:"totalBookings"`
	ActiveTokens  int                     `json:"activeTokens"`
	Cancelled     int                     `json:"cancelled"`
	Completed     int                     `json:"completed"`
	DailyBookings []DailyBookingsResponse `json:"dailyBookings"`
}

// Методы конвертации

// FromDomainAppointment конвертирует domain модель в DTO
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}

	slot := a.TimeSlot()

	return &AppointmentResponse{
		ID:            a.ID,
		UserID:        a.UserID,
		InstitutionID: a.InstitutionID,
		ServiceID:     a.ServiceID,
		Date:          a.Date.Format(domain.DateFormat),
		TimeSlot: TimeSlotResponse{
			ID:        slot.ID,
			StartTime: slot.StartTime.String(),
			EndTime:   slot.EndTime.String(),
			Available: slot.Available,
			ServiceID: slot.ServiceID,
		},
		Status:             string(a.Status),
		QueueNumber:        a.QueueNumber,
		ServiceName:        a.ServiceName,
		InstitutionName:    a.InstitutionName,
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CancelledAt:        a.CancelledAt,
		CompletedAt:        a.CompletedAt,
		ServiceMinutes:     a.ServiceMinutes,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

// FromDomainAppointmentList конвертирует список записей
func FromDomainAppointmentList(appointments []*domain.Appointment) []AppointmentResponse {
	result := make([]AppointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		result = append(result, *FromDomainAppointment(a))
	}
	return result
}

// FromDomainStats конвертирует статистику
func FromDomainStats(s *domain.InstitutionStats) *StatsResponse {
	daily := make([]DailyBookingsResponse, 0, len(s.Daily))
	for _, d := range s.Daily {
		daily = append(daily, DailyBookingsResponse{
			Date:  d.Date.Format(domain.DateFormat),
			Count: d.Count,
		})
	}

	return &StatsResponse{
		InstitutionID: s.InstitutionID,
		From:          s.From.Format(domain.DateFormat),
		To:            s.To.Format(domain.DateFormat),
		TotalBookings: s.TotalBookings,
		ActiveTokens:  s.ActiveTokens,
		Cancelled:     s.Cancelled,
		Completed:     s.Completed,
		DailyBookings: daily,
	}
}
