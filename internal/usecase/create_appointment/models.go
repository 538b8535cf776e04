package create_appointment

import (
	"time"

	"github.com/queueease/booking-service/pkg/types"
)

// Request модель запроса на создание записи
type Request struct {
	UserID        string    // ID пользователя
	InstitutionID string    // ID учреждения
	ServiceID     string    // ID услуги
	Date          time.Time // Дата записи (без времени)
	TimeSlotID    string    // ID слота из сетки доступности
	Notes         *string   // Дополнительные заметки (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID            string
	UserID        string
	InstitutionID string
	ServiceID     string
	Date          time.Time
	TimeSlotID    string
	StartTime     types.TimeString
	EndTime       types.TimeString
	Status        string
	QueueNumber   string

	// Денормализованные данные
	ServiceName     string
	InstitutionName string
	ContactName     *string
	ContactPhone    *string
	Notes           *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
