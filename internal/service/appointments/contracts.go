package appointments

import (
	"context"
	"time"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/internal/integrations/events"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.Appointment, error)
	Cancel(ctx context.Context, id string, reason *string, at time.Time) (*domain.Appointment, error)
	Complete(ctx context.Context, id string, serviceMinutes *int, at time.Time) (*domain.Appointment, error)
	Confirm(ctx context.Context, id string) (*domain.Appointment, error)
	LastCompletedAt(ctx context.Context, serviceID string, date time.Time) (*time.Time, error)
	CountByDay(ctx context.Context, institutionID string, from, to time.Time) ([]domain.DailyBookings, error)
	CountByStatus(ctx context.Context, institutionID string, from, to time.Time) (map[domain.AppointmentStatus]int, error)
}

// CatalogRepository интерфейс справочника учреждений
type CatalogRepository interface {
	GetInstitution(ctx context.Context, id string) (*domain.Institution, error)
}

// EventPublisher интерфейс публикации событий записей
type EventPublisher interface {
	Publish(ctx context.Context, event events.AppointmentEvent) error
}

// Metrics интерфейс счётчиков операций
type Metrics interface {
	ObserveAppointment(operation, outcome string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
