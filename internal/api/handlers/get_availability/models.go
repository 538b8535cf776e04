package get_availability

import (
	"github.com/queueease/booking-service/internal/domain"
	getAvailability "github.com/queueease/booking-service/internal/usecase/get_availability"
)

// TimeSlotResponse HTTP модель слота
type TimeSlotResponse struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	ServiceID string `json:"serviceId"`
}

// AvailabilityResponse HTTP response model
type AvailabilityResponse struct {
	Date          string             `json:"date"`
	ServiceID     string             `json:"serviceId"`
	InstitutionID string             `json:"institutionId"`
	Slots         []TimeSlotResponse `json:"slots"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailability.Response) *AvailabilityResponse {
	slots := make([]TimeSlotResponse, 0, len(resp.Slots))
	for _, s := range resp.Slots {
		slots = append(slots, TimeSlotResponse{
			ID:        s.ID,
			StartTime: s.StartTime.String(),
			EndTime:   s.EndTime.String(),
			Available: s.Available,
			ServiceID: s.ServiceID,
		})
	}

	return &AvailabilityResponse{
		Date:          resp.Date.Format(domain.DateFormat),
		ServiceID:     resp.ServiceID,
		InstitutionID: resp.InstitutionID,
		Slots:         slots,
	}
}
