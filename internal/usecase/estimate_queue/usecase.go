package estimate_queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/internal/infra/cache"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	signalRepo "github.com/queueease/booking-service/internal/infra/storage/queuesignal"
)

// UseCase use case оценки состояния очереди услуги
type UseCase struct {
	appointmentRepo AppointmentRepository
	catalogRepo     CatalogRepository
	signalRepo      SignalRepository
	snapshots       SnapshotStore
	metrics         Metrics
	options         Options
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	catalogRepo CatalogRepository,
	signalRepo SignalRepository,
	snapshots SnapshotStore,
	metrics Metrics,
	options Options,
	logger Logger,
) *UseCase {
	if options.HistorySize <= 0 {
		options.HistorySize = domain.DefaultHistorySize
	}
	if options.DelayThresholdPercent <= 0 {
		options.DelayThresholdPercent = domain.DefaultDelayThresholdPercent
	}

	return &UseCase{
		appointmentRepo: appointmentRepo,
		catalogRepo:     catalogRepo,
		signalRepo:      signalRepo,
		snapshots:       snapshots,
		metrics:         metrics,
		options:         options,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute возвращает состояние очереди: свежий снимок или пересчёт
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.ServiceID) == "" {
		return nil, fmt.Errorf("%w: service is required", ErrInvalidInput)
	}

	// 1. Отдаём снимок, если он моложе интервала обновления
	now := uc.timeProvider.Now()
	snapshot, err := uc.snapshots.Get(ctx, req.ServiceID)
	if err == nil && snapshot.IsFresh(now, uc.options.SnapshotTTL) && domain.SameDay(snapshot.LastUpdated, now) {
		return toResponse(snapshot), nil
	}
	if err != nil && !errors.Is(err, cache.ErrSnapshotNotFound) {
		uc.logger.Warn("EstimateQueue: snapshot store error for service=%s: %v", req.ServiceID, err)
	}

	// 2. Пересчитываем состояние
	status, err := uc.Refresh(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}

	return toResponse(status), nil
}

// Refresh пересчитывает состояние очереди услуги и сохраняет снимок
func (uc *UseCase) Refresh(ctx context.Context, serviceID string) (*domain.QueueStatus, error) {
	now := uc.timeProvider.Now()
	today := domain.DateOnly(now)

	// 1. Получаем услугу
	service, err := uc.catalogRepo.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("EstimateQueue: service id=%s not found", serviceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("EstimateQueue: failed to get service id=%s: %v", serviceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	// 2. Получаем сегодняшние записи услуги
	appointments, err := uc.appointmentRepo.GetWithFilter(ctx, domain.AppointmentsFilter{
		ServiceID:       &service.ID,
		StartDate:       &today,
		EndDate:         &today,
		IncludeInactive: false,
	})
	if err != nil {
		uc.logger.Error("EstimateQueue: failed to get appointments for service=%s: %v", serviceID, err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 3. Получаем историю длительностей обслуживания
	history, err := uc.appointmentRepo.RecentServiceMinutes(ctx, service.ID, uc.options.HistorySize)
	if err != nil {
		uc.logger.Error("EstimateQueue: failed to get service history for service=%s: %v", serviceID, err)
		return nil, fmt.Errorf("%w: failed to get service history: %v", ErrInternal, err)
	}

	// 4. Получаем сигнал персонала (если есть)
	signal, err := uc.signalRepo.Get(ctx, service.ID)
	if err != nil {
		if !errors.Is(err, signalRepo.ErrSignalNotFound) {
			uc.logger.Warn("EstimateQueue: failed to get signal for service=%s, estimating without it: %v", serviceID, err)
		}
		signal = nil
	}

	// 5. Рассчитываем и сохраняем снимок
	status := Estimate(service, appointments, history, signal, uc.options.DelayThresholdPercent, now)

	if err := uc.snapshots.Save(ctx, status); err != nil {
		uc.logger.Warn("EstimateQueue: failed to save snapshot for service=%s: %v", serviceID, err)
	}
	uc.metrics.SetPeopleWaiting(service.ID, status.PeopleWaiting)

	uc.logger.Info("EstimateQueue: service=%s current=%s waiting=%d avg=%d status=%s",
		service.ID, status.CurrentToken, status.PeopleWaiting, status.AverageServiceTime, status.Status)

	return status, nil
}

// RefreshAll пересчитывает очереди всех услуг. Ошибка по одной услуге не
// останавливает обход; возвращается число неудачных пересчётов
func (uc *UseCase) RefreshAll(ctx context.Context) (int, error) {
	serviceIDs, err := uc.catalogRepo.ListServiceIDs(ctx)
	if err != nil {
		uc.logger.Error("RefreshAll: failed to list services: %v", err)
		return 0, fmt.Errorf("%w: failed to list services: %v", ErrInternal, err)
	}

	failed := 0
	for _, id := range serviceIDs {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}
		if _, err := uc.Refresh(ctx, id); err != nil {
			failed++
		}
	}

	return failed, nil
}
