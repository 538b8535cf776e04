package get_availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/queueease/booking-service/internal/domain"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
)

// UseCase use case для получения слотов услуги на дату
type UseCase struct {
	appointmentRepo AppointmentRepository
	catalogRepo     CatalogRepository
	schedule        ScheduleResolver
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	catalogRepo CatalogRepository,
	schedule ScheduleResolver,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		catalogRepo:     catalogRepo,
		schedule:        schedule,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case получения слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailability: service=%s, date=%s", req.ServiceID, req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailability: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()
	date := domain.DateOnly(req.Date)

	// 3. Получаем услугу
	service, err := uc.catalogRepo.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailability: service id=%s not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailability: failed to get service id=%s: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	// 4. Получаем конфигурацию расписания с учетом иерархии
	config, err := uc.schedule.Resolve(ctx, service.InstitutionID, &service.ID)
	if err != nil {
		uc.logger.Error("GetAvailability: failed to resolve schedule: %v", err)
		return nil, fmt.Errorf("%w: failed to resolve schedule: %v", ErrInternal, err)
	}

	if config.IsDefault() {
		uc.logger.Info("GetAvailability: using default schedule for institution=%s, service=%s",
			service.InstitutionID, service.ID)
	} else {
		uc.logger.Info("GetAvailability: using schedule id=%d", config.ID)
	}

	// 5. Валидация даты с учетом конфигурации
	if err := validateDate(date, now, config.AdvanceBookingDays); err != nil {
		uc.logger.Warn("GetAvailability: date validation failed: %v", err)
		return nil, err
	}

	// 6. Получаем активные записи услуги на эту дату
	filter := domain.AppointmentsFilter{
		ServiceID:       &service.ID,
		StartDate:       &date,
		EndDate:         &date,
		IncludeInactive: false,
	}

	booked, err := uc.appointmentRepo.GetWithFilter(ctx, filter)
	if err != nil {
		uc.logger.Error("GetAvailability: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 7. Генерируем слоты и вычисляем доступность
	slots, err := GenerateSlots(date, service, config, booked, now)
	if err != nil {
		uc.logger.Error("GetAvailability: failed to generate slots: %v", err)
		return nil, fmt.Errorf("%w: failed to generate slots: %v", ErrInternal, err)
	}

	uc.logger.Info("GetAvailability: generated %d slots (%d booked) for service=%s, date=%s",
		len(slots), len(booked), service.ID, date.Format(domain.DateFormat))

	return &Response{
		Date:          date,
		ServiceID:     service.ID,
		InstitutionID: service.InstitutionID,
		Slots:         slots,
	}, nil
}
