package get_availability

import (
	"context"
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetWithFilter(ctx context.Context, filter domain.AppointmentsFilter) ([]*domain.Appointment, error)
}

// CatalogRepository интерфейс справочника учреждений
type CatalogRepository interface {
	GetService(ctx context.Context, id string) (*domain.Service, error)
}

// ScheduleResolver возвращает эффективную конфигурацию расписания
type ScheduleResolver interface {
	Resolve(ctx context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error)
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
