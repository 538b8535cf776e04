package create_appointment

import (
	"context"
	"time"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/internal/integrations/events"
	"github.com/queueease/booking-service/internal/integrations/userservice"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error)
	GetWithFilter(ctx context.Context, filter domain.AppointmentsFilter) ([]*domain.Appointment, error)
	NextQueueSeq(ctx context.Context, serviceID string, date time.Time) (int, error)
}

// CatalogRepository интерфейс справочника учреждений
type CatalogRepository interface {
	GetInstitution(ctx context.Context, id string) (*domain.Institution, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
}

// ScheduleResolver возвращает эффективную конфигурацию расписания
type ScheduleResolver interface {
	Resolve(ctx context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error)
}

// UserServiceClient интерфейс клиента для работы с UserService
type UserServiceClient interface {
	GetUserWithGracefulDegradation(ctx context.Context, userID string) (*userservice.User, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
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
