package estimate_queue

import (
	"context"
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetWithFilter(ctx context.Context, filter domain.AppointmentsFilter) ([]*domain.Appointment, error)
	RecentServiceMinutes(ctx context.Context, serviceID string, limit int) ([]int, error)
}

// CatalogRepository интерфейс справочника учреждений
type CatalogRepository interface {
	GetService(ctx context.Context, id string) (*domain.Service, error)
	ListServiceIDs(ctx context.Context) ([]string, error)
}

// SignalRepository интерфейс сигналов персонала по очередям
type SignalRepository interface {
	Get(ctx context.Context, serviceID string) (*domain.QueueSignal, error)
}

// SnapshotStore хранилище последних рассчитанных состояний очередей
type SnapshotStore interface {
	Get(ctx context.Context, serviceID string) (*domain.QueueStatus, error)
	Save(ctx context.Context, status *domain.QueueStatus) error
}

// Metrics интерфейс метрик очереди
type Metrics interface {
	SetPeopleWaiting(serviceID string, waiting int)
	ObserveQueueRefresh(outcome string)
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
