package create_appointment

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
	createAppointment "github.com/queueease/booking-service/internal/usecase/create_appointment"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	UserID        string  `json:"userId"`
	InstitutionID string  `json:"institutionId"`
	ServiceID     string  `json:"serviceId"`
	Date          string  `json:"date"`       // "2025-05-02"
	TimeSlotID    string  `json:"timeSlotId"` // "2025-05-02-10:00-101"
	Notes         *string `json:"notes,omitempty"`
}

// TimeSlotResponse снимок забронированного слота
type TimeSlotResponse struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	ServiceID string `json:"serviceId"`
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	InstitutionID   string           `json:"institutionId"`
	ServiceID       string           `json:"serviceId"`
	Date            string           `json:"date"`
	TimeSlot        TimeSlotResponse `json:"timeSlot"`
	Status          string           `json:"status"`
	QueueNumber     string           `json:"queueNumber"`
	ServiceName     string           `json:"serviceName"`
	InstitutionName string           `json:"institutionName"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateAppointmentRequest) ToUseCaseRequest() (*createAppointment.Request, error) {
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, err
	}

	return &createAppointment.Request{
		UserID:        r.UserID,
		InstitutionID: r.InstitutionID,
		ServiceID:     r.ServiceID,
		Date:          date,
		TimeSlotID:    r.TimeSlotID,
		Notes:         r.Notes,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createAppointment.Response) *AppointmentResponse {
	return &AppointmentResponse{
		ID:            resp.ID,
		UserID:        resp.UserID,
		InstitutionID: resp.InstitutionID,
		ServiceID:     resp.ServiceID,
		Date:          resp.Date.Format(domain.DateFormat),
		TimeSlot: TimeSlotResponse{
			ID:        resp.TimeSlotID,
			StartTime: resp.StartTime.String(),
			EndTime:   resp.EndTime.String(),
			Available: false,
			ServiceID: resp.ServiceID,
		},
		Status:          resp.Status,
		QueueNumber:     resp.QueueNumber,
		ServiceName:     resp.ServiceName,
		InstitutionName: resp.InstitutionName,
		Notes:           resp.Notes,
		CreatedAt:       resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       resp.UpdatedAt.Format(time.RFC3339),
	}
}
