package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/queueease/booking-service/internal/domain"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	scheduleRepo "github.com/queueease/booking-service/internal/infra/storage/schedule"
	"github.com/queueease/booking-service/internal/service/schedule/models"
	"github.com/queueease/booking-service/pkg/types"
)

// Defaults окно приёма, если у учреждения нет своей конфигурации
type Defaults struct {
	OpenTime            types.TimeString
	CloseTime           types.TimeString
	SlotDurationMinutes int
	AdvanceBookingDays  int
}

// DomainDefaults значения по умолчанию без файла конфигурации
func DomainDefaults() Defaults {
	return Defaults{
		OpenTime:            domain.DefaultOpenTime,
		CloseTime:           domain.DefaultCloseTime,
		SlotDurationMinutes: domain.DefaultSlotDurationMinutes,
		AdvanceBookingDays:  domain.DefaultAdvanceBookingDays,
	}
}

// Service сервис конфигурации расписания и сигналов очереди
type Service struct {
	scheduleRepo ScheduleRepository
	signalRepo   QueueSignalRepository
	catalogRepo  CatalogRepository
	defaults     Defaults
	logger       Logger
}

// NewService создает новый экземпляр сервиса расписания
func NewService(
	scheduleRepo ScheduleRepository,
	signalRepo QueueSignalRepository,
	catalogRepo CatalogRepository,
	defaults Defaults,
	logger Logger,
) *Service {
	return &Service{
		scheduleRepo: scheduleRepo,
		signalRepo:   signalRepo,
		catalogRepo:  catalogRepo,
		defaults:     defaults,
		logger:       logger,
	}
}

// Resolve возвращает эффективную конфигурацию для услуги учреждения.
// Приоритет: service > institution > default
func (s *Service) Resolve(ctx context.Context, institutionID string, serviceID *string) (*domain.ScheduleConfig, error) {
	cfg, err := s.scheduleRepo.GetConfigWithHierarchy(ctx, institutionID, serviceID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, scheduleRepo.ErrConfigNotFound) {
		s.logger.Error("Resolve: repository error for institution=%s, service=%v: %v", institutionID, serviceID, err)
		return nil, fmt.Errorf("%w: Resolve - repository error: %v", ErrInternal, err)
	}

	return &domain.ScheduleConfig{
		InstitutionID:       institutionID,
		ServiceID:           serviceID,
		OpenTime:            s.defaults.OpenTime,
		CloseTime:           s.defaults.CloseTime,
		SlotDurationMinutes: s.defaults.SlotDurationMinutes,
		AdvanceBookingDays:  s.defaults.AdvanceBookingDays,
	}, nil
}

// Get возвращает эффективную конфигурацию. Доступно только сотрудникам учреждения
func (s *Service) Get(ctx context.Context, req *models.GetScheduleRequest) (*models.ScheduleResponse, error) {
	s.logger.Info("Get: fetching schedule for institution=%s, service=%v by user=%s",
		req.InstitutionID, req.ServiceID, req.UserID)

	// 1. Проверяем учреждение и права доступа
	institution, err := s.getManagedInstitution(ctx, req.InstitutionID, req.UserID)
	if err != nil {
		return nil, err
	}

	// 2. Если указана услуга, проверяем её принадлежность учреждению
	if req.ServiceID != nil && !institution.Owns(*req.ServiceID) {
		s.logger.Warn("Get: service id=%s not found in institution=%s", *req.ServiceID, req.InstitutionID)
		return nil, ErrServiceNotFound
	}

	// 3. Разрешаем конфигурацию по иерархии
	cfg, err := s.Resolve(ctx, req.InstitutionID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Get: resolved schedule for institution=%s (level: %s)", req.InstitutionID, models.ConfigLevel(cfg))
	return models.FromDomainConfig(cfg), nil
}

// Upsert создает или заменяет конфигурацию. Доступно только сотрудникам учреждения
func (s *Service) Upsert(ctx context.Context, req *models.UpsertScheduleRequest) (*models.ScheduleResponse, error) {
	s.logger.Info("Upsert: saving schedule for institution=%s, service=%v by user=%s",
		req.InstitutionID, req.ServiceID, req.UserID)

	// 1. Валидируем входные данные
	cfg, err := s.validateSchedule(req)
	if err != nil {
		s.logger.Warn("Upsert: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем учреждение и права доступа
	institution, err := s.getManagedInstitution(ctx, req.InstitutionID, req.UserID)
	if err != nil {
		return nil, err
	}

	// 3. Если указана услуга, проверяем её принадлежность учреждению
	if req.ServiceID != nil && !institution.Owns(*req.ServiceID) {
		s.logger.Warn("Upsert: service id=%s not found in institution=%s", *req.ServiceID, req.InstitutionID)
		return nil, ErrServiceNotFound
	}

	// 4. Сохраняем конфигурацию
	saved, err := s.scheduleRepo.Upsert(ctx, cfg)
	if err != nil {
		s.logger.Error("Upsert: repository error: %v", err)
		return nil, fmt.Errorf("%w: Upsert - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Upsert: successfully saved schedule id=%d", saved.ID)
	return models.FromDomainConfig(saved), nil
}

// UpdateSignal сохраняет причину задержки и порог для очереди услуги.
// Доступно только сотрудникам учреждения, которому принадлежит услуга
func (s *Service) UpdateSignal(ctx context.Context, req *models.UpdateSignalRequest) (*models.SignalResponse, error) {
	s.logger.Info("UpdateSignal: service=%s by user=%s", req.ServiceID, req.UserID)

	// 1. Валидируем входные данные
	if req.Reason != nil && len(*req.Reason) > domain.MaxQueueReasonLength {
		return nil, fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidInput, domain.MaxQueueReasonLength)
	}
	if req.DelayThresholdMinutes != nil && (*req.DelayThresholdMinutes <= 0 || *req.DelayThresholdMinutes > domain.MaxServiceMinutes) {
		return nil, fmt.Errorf("%w: delayThresholdMinutes must be between 1 and %d", ErrInvalidInput, domain.MaxServiceMinutes)
	}

	// 2. Получаем услугу и проверяем права доступа
	service, err := s.catalogRepo.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			s.logger.Warn("UpdateSignal: service id=%s not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		s.logger.Error("UpdateSignal: failed to get service id=%s: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	if _, err := s.getManagedInstitution(ctx, service.InstitutionID, req.UserID); err != nil {
		return nil, err
	}

	// 3. Сохраняем сигнал
	signal, err := s.signalRepo.Upsert(ctx, &domain.QueueSignal{
		ServiceID:             req.ServiceID,
		Reason:                req.Reason,
		DelayThresholdMinutes: req.DelayThresholdMinutes,
		UpdatedBy:             req.UserID,
	})
	if err != nil {
		s.logger.Error("UpdateSignal: repository error for service=%s: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: UpdateSignal - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UpdateSignal: successfully saved signal for service=%s", req.ServiceID)
	return models.FromDomainSignal(signal), nil
}

// Вспомогательные методы

// getManagedInstitution получает учреждение и проверяет, что пользователь его сотрудник
func (s *Service) getManagedInstitution(ctx context.Context, institutionID, userID string) (*domain.Institution, error) {
	institution, err := s.catalogRepo.GetInstitution(ctx, institutionID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrInstitutionNotFound) {
			s.logger.Warn("institution id=%s not found", institutionID)
			return nil, ErrInstitutionNotFound
		}
		s.logger.Error("failed to get institution id=%s: %v", institutionID, err)
		return nil, fmt.Errorf("%w: failed to get institution: %v", ErrInternal, err)
	}

	if !institution.IsManager(userID) {
		s.logger.Warn("user=%s is not a manager of institution=%s", userID, institutionID)
		return nil, ErrAccessDenied
	}

	return institution, nil
}

// validateSchedule валидирует параметры и собирает domain модель
func (s *Service) validateSchedule(req *models.UpsertScheduleRequest) (*domain.ScheduleConfig, error) {
	openTime, err := types.NewTimeStringFromString(req.OpenTime)
	if err != nil {
		return nil, fmt.Errorf("%w: openTime must be HH:MM", ErrInvalidInput)
	}

	closeTime, err := types.NewTimeStringFromString(req.CloseTime)
	if err != nil {
		return nil, fmt.Errorf("%w: closeTime must be HH:MM", ErrInvalidInput)
	}

	if !openTime.IsBefore(closeTime) {
		return nil, fmt.Errorf("%w: openTime must be before closeTime", ErrInvalidInput)
	}

	if !req.SizeFromService || req.SlotDurationMinutes != 0 {
		if req.SlotDurationMinutes < domain.MinSlotDurationMinutes || req.SlotDurationMinutes > domain.MaxSlotDurationMinutes {
			return nil, fmt.Errorf("%w: slotDurationMinutes must be between %d and %d",
				ErrInvalidInput, domain.MinSlotDurationMinutes, domain.MaxSlotDurationMinutes)
		}
	}

	if req.AdvanceBookingDays < 0 || req.AdvanceBookingDays > domain.MaxAdvanceBookingDays {
		return nil, fmt.Errorf("%w: advanceBookingDays must be between 0 and %d", ErrInvalidInput, domain.MaxAdvanceBookingDays)
	}

	slotDuration := req.SlotDurationMinutes
	if slotDuration == 0 {
		slotDuration = s.defaults.SlotDurationMinutes
	}

	return &domain.ScheduleConfig{
		InstitutionID:       req.InstitutionID,
		ServiceID:           req.ServiceID,
		OpenTime:            openTime,
		CloseTime:           closeTime,
		SlotDurationMinutes: slotDuration,
		SizeFromService:     req.SizeFromService,
		AdvanceBookingDays:  req.AdvanceBookingDays,
	}, nil
}
