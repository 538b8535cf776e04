package schedule

import (
	"context"

	"github.com/queueease/booking-service/internal/domain"
)

// ScheduleRepository интерфейс репозитория конфигураций расписания
type ScheduleRepository interface {
	GetConfigWithHierarchy(ctx context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error)
	GetAllByInstitution(ctx context.Context, institutionID string) ([]*domain.ScheduleConfig, error)
	Upsert(ctx context.Context, cfg *domain.ScheduleConfig) (*domain.ScheduleConfig, error)
}

// QueueSignalRepository интерфейс репозитория сигналов очереди
type QueueSignalRepository interface {
	Get(ctx context.Context, serviceID string) (*domain.QueueSignal, error)
	Upsert(ctx context.Context, signal *domain.QueueSignal) (*domain.QueueSignal, error)
}

// CatalogRepository интерфейс справочника учреждений
type CatalogRepository interface {
	GetInstitution(ctx context.Context, id string) (*domain.Institution, error)
	GetService(ctx context.Context, id string) (*domain.Service, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
