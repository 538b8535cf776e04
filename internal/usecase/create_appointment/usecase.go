package create_appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/queueease/booking-service/internal/domain"
	appointmentRepo "github.com/queueease/booking-service/internal/infra/storage/appointment"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	"github.com/queueease/booking-service/internal/integrations/events"
	"github.com/queueease/booking-service/internal/integrations/userservice"
)

const metricOperation = "create"

// UseCase use case для создания записи на приём
type UseCase struct {
	appointmentRepo AppointmentRepository
	catalogRepo     CatalogRepository
	schedule        ScheduleResolver
	userClient      UserServiceClient
	txManager       TransactionManager
	publisher       EventPublisher
	metrics         Metrics
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	catalogRepo CatalogRepository,
	schedule ScheduleResolver,
	userClient UserServiceClient,
	txManager TransactionManager,
	publisher EventPublisher,
	metrics Metrics,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		catalogRepo:     catalogRepo,
		schedule:        schedule,
		userClient:      userClient,
		txManager:       txManager,
		publisher:       publisher,
		metrics:         metrics,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case создания записи.
// Проверка слота и вставка выполняются в сериализуемой транзакции
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateAppointment: user=%s, institution=%s, service=%s, date=%s, slot=%s",
		req.UserID, req.InstitutionID, req.ServiceID, req.Date.Format(domain.DateFormat), req.TimeSlotID)

	resp, err := uc.execute(ctx, req)
	uc.metrics.ObserveAppointment(metricOperation, outcome(err))
	return resp, err
}

func (uc *UseCase) execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}

	date := domain.DateOnly(req.Date)

	// 2. Разбираем ID слота
	slot, err := parseSlot(req)
	if err != nil {
		uc.logger.Warn("CreateAppointment: slot validation failed: %v", err)
		return nil, err
	}

	// 3. Получаем текущее время
	now := uc.timeProvider.Now()

	// 4. Получаем учреждение
	institution, err := uc.catalogRepo.GetInstitution(ctx, req.InstitutionID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrInstitutionNotFound) {
			uc.logger.Warn("CreateAppointment: institution id=%s not found", req.InstitutionID)
			return nil, ErrInstitutionNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get institution id=%s: %v", req.InstitutionID, err)
		return nil, fmt.Errorf("%w: failed to get institution: %v", ErrInternal, err)
	}

	// 5. Проверяем, что услуга принадлежит учреждению
	service, err := uc.getService(ctx, institution, req.ServiceID)
	if err != nil {
		return nil, err
	}

	// 6. Получаем конфигурацию расписания с учетом иерархии
	config, err := uc.schedule.Resolve(ctx, institution.ID, &service.ID)
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to resolve schedule: %v", err)
		return nil, fmt.Errorf("%w: failed to resolve schedule: %v", ErrInternal, err)
	}

	// 7. Валидация даты с учетом конфигурации
	if err := validateDate(date, now, config.AdvanceBookingDays); err != nil {
		uc.logger.Warn("CreateAppointment: date validation failed: %v", err)
		return nil, err
	}

	// 8. Проверяем, что слот лежит на сетке и ещё не начался
	endTime, err := resolveSlotEnd(slot.StartTime, config, service)
	if err != nil {
		uc.logger.Warn("CreateAppointment: slot validation failed: %v", err)
		return nil, err
	}

	if err := validateNotStarted(date, slot.StartTime, now); err != nil {
		uc.logger.Warn("CreateAppointment: %v", err)
		return nil, err
	}

	// 9. Получаем контактные данные пользователя (с graceful degradation)
	var contactName, contactPhone *string
	user, err := uc.userClient.GetUserWithGracefulDegradation(ctx, req.UserID)
	switch {
	case err == nil:
		contactName, contactPhone = nonEmpty(user.Name), nonEmpty(user.Phone)
	case errors.Is(err, userservice.ErrUserNotFound):
		uc.logger.Warn("CreateAppointment: user id=%s not found", req.UserID)
		return nil, ErrUserNotFound
	default:
		uc.logger.Warn("CreateAppointment: booking without contact data for user=%s: %v", req.UserID, err)
	}

	var result *domain.Appointment

	// 10. Выполняем операции с БД в одной транзакции (READ COMMITTED).
	// Строка счётчика талонов блокируется первой и упорядочивает бронирования услуги на дату,
	// поэтому последующее чтение видит все ранее закоммиченные записи
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		// 10.1. Выдаём номер талона и блокируем счётчик услуги на дату
		seq, err := uc.appointmentRepo.NextQueueSeq(txCtx, service.ID, date)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to get queue number: %v", err)
			return fmt.Errorf("%w: failed to get queue number: %w", ErrInternal, err)
		}

		// 10.2. Получаем активные записи услуги на дату
		filter := domain.AppointmentsFilter{
			ServiceID:       &service.ID,
			StartDate:       &date,
			EndDate:         &date,
			IncludeInactive: false,
		}

		booked, err := uc.appointmentRepo.GetWithFilter(txCtx, filter)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to get appointments: %v", err)
			return fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
		}

		// 10.3. Проверяем, что слот свободен (откат вернёт номер талона)
		if isSlotTaken(slot.StartTime, endTime, booked) {
			uc.logger.Warn("CreateAppointment: slot %s is already taken", req.TimeSlotID)
			return ErrSlotUnavailable
		}

		// 10.4. Создаем запись с денормализацией данных
		appointment := &domain.Appointment{
			ID:            uuid.NewString(),
			UserID:        req.UserID,
			InstitutionID: institution.ID,
			ServiceID:     service.ID,
			Date:          date,
			StartTime:     slot.StartTime,
			EndTime:       endTime,
			Status:        domain.StatusConfirmed,
			QueueNumber:   domain.FormatQueueNumber(institution.QueuePrefixFor(service), seq),
			QueueSeq:      seq,
			// Денормализация данных справочника
			ServiceName:     service.Name,
			InstitutionName: institution.Name,
			// Денормализация контактных данных
			ContactName:  contactName,
			ContactPhone: contactPhone,
			Notes:        req.Notes,
		}

		// 10.5. Сохраняем запись
		created, err := uc.appointmentRepo.Create(txCtx, appointment)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrSlotNotAvailable) {
				uc.logger.Warn("CreateAppointment: slot %s taken concurrently", req.TimeSlotID)
				return ErrSlotUnavailable
			}
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) || errors.Is(err, ErrInternal) {
			return nil, err
		}
		uc.logger.Error("CreateAppointment: transaction failed: %v", err)
		return nil, fmt.Errorf("%w: transaction failed: %v", ErrInternal, err)
	}

	uc.logger.Info("CreateAppointment: successfully created appointment id=%s, queueNumber=%s",
		result.ID, result.QueueNumber)

	// 11. Публикуем событие после коммита
	if err := uc.publisher.Publish(ctx, events.NewAppointmentEvent(events.AppointmentCreated, result, now)); err != nil {
		uc.logger.Warn("CreateAppointment: failed to publish event for appointment id=%s: %v", result.ID, err)
	}

	return toResponse(result), nil
}

// getService получает услугу и проверяет её принадлежность учреждению
func (uc *UseCase) getService(ctx context.Context, institution *domain.Institution, serviceID string) (*domain.Service, error) {
	if service := institution.FindService(serviceID); service != nil {
		return service, nil
	}

	// Услуги нет в учреждении: различаем неизвестную услугу и услугу другого учреждения
	service, err := uc.catalogRepo.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("CreateAppointment: service id=%s not found", serviceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get service id=%s: %v", serviceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	uc.logger.Warn("CreateAppointment: service id=%s belongs to institution=%s, not %s",
		serviceID, service.InstitutionID, institution.ID)
	return nil, ErrInvalidService
}

func toResponse(a *domain.Appointment) *Response {
	return &Response{
		ID:              a.ID,
		UserID:          a.UserID,
		InstitutionID:   a.InstitutionID,
		ServiceID:       a.ServiceID,
		Date:            a.Date,
		TimeSlotID:      domain.SlotID(a.Date, a.StartTime, a.ServiceID),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          string(a.Status),
		QueueNumber:     a.QueueNumber,
		ServiceName:     a.ServiceName,
		InstitutionName: a.InstitutionName,
		ContactName:     a.ContactName,
		ContactPhone:    a.ContactPhone,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// outcome метка результата для счётчика бронирований
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrInternal):
		return "error"
	default:
		return "rejected"
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
