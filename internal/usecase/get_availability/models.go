package get_availability

import (
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// Request модель запроса слотов
type Request struct {
	ServiceID string    // ID услуги
	Date      time.Time // Дата (без времени)
}

// Response модель ответа со слотами дня
type Response struct {
	Date          time.Time
	ServiceID     string
	InstitutionID string
	Slots         []domain.TimeSlot
}
