package appointments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/queueease/booking-service/internal/domain"
	appointmentRepo "github.com/queueease/booking-service/internal/infra/storage/appointment"
	catalogRepo "github.com/queueease/booking-service/internal/infra/storage/catalog"
	"github.com/queueease/booking-service/internal/integrations/events"
	"github.com/queueease/booking-service/internal/service/appointments/models"
)

const defaultStatsDays = 7

// Service сервис для работы с записями: просмотр, отмена, подтверждение, завершение
type Service struct {
	appointmentRepo AppointmentRepository
	catalogRepo     CatalogRepository
	publisher       EventPublisher
	metrics         Metrics
	timeProvider    TimeProvider
	logger          Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	catalogRepo CatalogRepository,
	publisher EventPublisher,
	metrics Metrics,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo: appointmentRepo,
		catalogRepo:     catalogRepo,
		publisher:       publisher,
		metrics:         metrics,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// GetByID получает запись по ID.
// Пользователь видит только свою запись, сотрудник учреждения видит все записи учреждения
func (s *Service) GetByID(ctx context.Context, id string, userID string) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%s for user=%s", id, userID)

	appointment, err := s.getAppointment(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	if err := s.checkUserAccess(ctx, appointment, userID); err != nil {
		s.logger.Warn("GetByID: access denied for user=%s to appointment id=%s", userID, id)
		return nil, err
	}

	return models.FromDomainAppointment(appointment), nil
}

// ListForUser возвращает историю записей пользователя: предстоящие и прошедшие.
// Разбиение пересчитывается при каждом чтении по дате и статусу
func (s *Service) ListForUser(ctx context.Context, req *models.ListForUserRequest) (*models.AppointmentListResponse, error) {
	userID := req.UserID
	if userID == "" {
		userID = req.ActorID
	}

	s.logger.Info("ListForUser: fetching appointments for user=%s by actor=%s", userID, req.ActorID)

	if userID != req.ActorID {
		s.logger.Warn("ListForUser: actor=%s tried to read appointments of user=%s", req.ActorID, userID)
		return nil, ErrAccessDenied
	}

	appointments, err := s.appointmentRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("ListForUser: repository error for user=%s: %v", userID, err)
		return nil, fmt.Errorf("%w: ListForUser - repository error: %v", ErrInternal, err)
	}

	upcoming, past := domain.PartitionAppointments(appointments, s.timeProvider.Now())

	s.logger.Info("ListForUser: user=%s has %d upcoming and %d past appointments", userID, len(upcoming), len(past))
	return &models.AppointmentListResponse{
		Upcoming: models.FromDomainAppointmentList(upcoming),
		Past:     models.FromDomainAppointmentList(past),
	}, nil
}

// Cancel отменяет запись и освобождает слот.
// Отменить может владелец записи или сотрудник учреждения
func (s *Service) Cancel(ctx context.Context, id string, req *models.CancelRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("Cancel: cancelling appointment id=%s by user=%s", id, req.UserID)

	// 1. Валидация причины
	if req.Reason != nil && len(*req.Reason) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidInput, domain.MaxCancellationReasonLength)
	}

	// 2. Получаем запись
	appointment, err := s.getAppointment(ctx, "Cancel", id)
	if err != nil {
		return nil, err
	}

	// 3. Проверяем права доступа
	if err := s.checkUserAccess(ctx, appointment, req.UserID); err != nil {
		s.logger.Warn("Cancel: access denied for user=%s to appointment id=%s", req.UserID, id)
		return nil, err
	}

	// 4. Проверяем переход статуса
	if !appointment.CanBeCancelled() {
		s.logger.Warn("Cancel: appointment id=%s cannot be cancelled, status=%s", id, appointment.Status)
		s.metrics.ObserveAppointment("cancel", "invalid_transition")
		return nil, fmt.Errorf("%w: cannot cancel %s appointment", ErrInvalidTransition, appointment.Status)
	}

	// 5. Условный UPDATE защищает от гонки с параллельным завершением
	cancelled, err := s.appointmentRepo.Cancel(ctx, id, req.Reason, s.timeProvider.Now())
	if err != nil {
		return nil, s.mapTransitionError("Cancel", "cancel", id, err)
	}

	s.metrics.ObserveAppointment("cancel", "success")
	s.publish(ctx, events.AppointmentCancelled, cancelled)

	s.logger.Info("Cancel: successfully cancelled appointment id=%s", id)
	return models.FromDomainAppointment(cancelled), nil
}

// Confirm подтверждает ожидающую запись. Доступно только сотрудникам учреждения
func (s *Service) Confirm(ctx context.Context, id string, userID string) (*models.AppointmentResponse, error) {
	s.logger.Info("Confirm: confirming appointment id=%s by user=%s", id, userID)

	appointment, err := s.getAppointment(ctx, "Confirm", id)
	if err != nil {
		return nil, err
	}

	if err := s.checkManagerAccess(ctx, appointment.InstitutionID, userID); err != nil {
		return nil, err
	}

	if !appointment.CanBeConfirmed() {
		s.logger.Warn("Confirm: appointment id=%s cannot be confirmed, status=%s", id, appointment.Status)
		s.metrics.ObserveAppointment("confirm", "invalid_transition")
		return nil, fmt.Errorf("%w: cannot confirm %s appointment", ErrInvalidTransition, appointment.Status)
	}

	confirmed, err := s.appointmentRepo.Confirm(ctx, id)
	if err != nil {
		return nil, s.mapTransitionError("Confirm", "confirm", id, err)
	}

	s.metrics.ObserveAppointment("confirm", "success")
	s.publish(ctx, events.AppointmentConfirmed, confirmed)

	s.logger.Info("Confirm: successfully confirmed appointment id=%s", id)
	return models.FromDomainAppointment(confirmed), nil
}

// Complete отмечает запись обслуженной. Доступно только сотрудникам учреждения.
// Если длительность не передана, она вычисляется как интервал с предыдущего
// завершения по той же услуге за тот же день
func (s *Service) Complete(ctx context.Context, id string, req *models.CompleteRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("Complete: completing appointment id=%s by user=%s", id, req.UserID)

	// 1. Валидация длительности
	if req.ServiceMinutes != nil && (*req.ServiceMinutes <= 0 || *req.ServiceMinutes > domain.MaxServiceMinutes) {
		return nil, fmt.Errorf("%w: serviceMinutes must be between 1 and %d", ErrInvalidInput, domain.MaxServiceMinutes)
	}

	// 2. Получаем запись
	appointment, err := s.getAppointment(ctx, "Complete", id)
	if err != nil {
		return nil, err
	}

	// 3. Проверяем права доступа (только сотрудник учреждения)
	if err := s.checkManagerAccess(ctx, appointment.InstitutionID, req.UserID); err != nil {
		return nil, err
	}

	// 4. Проверяем переход статуса
	if !appointment.CanBeCompleted() {
		s.logger.Warn("Complete: appointment id=%s cannot be completed, status=%s", id, appointment.Status)
		s.metrics.ObserveAppointment("complete", "invalid_transition")
		return nil, fmt.Errorf("%w: cannot complete %s appointment", ErrInvalidTransition, appointment.Status)
	}

	now := s.timeProvider.Now()

	// 5. Вычисляем длительность обслуживания, если она не передана
	serviceMinutes := req.ServiceMinutes
	if serviceMinutes == nil {
		serviceMinutes, err = s.deriveServiceMinutes(ctx, appointment, now)
		if err != nil {
			return nil, err
		}
	}

	// 6. Сохраняем завершение
	completed, err := s.appointmentRepo.Complete(ctx, id, serviceMinutes, now)
	if err != nil {
		return nil, s.mapTransitionError("Complete", "complete", id, err)
	}

	s.metrics.ObserveAppointment("complete", "success")
	s.publish(ctx, events.AppointmentCompleted, completed)

	s.logger.Info("Complete: successfully completed appointment id=%s, serviceMinutes=%v", id, serviceMinutes)
	return models.FromDomainAppointment(completed), nil
}

// Stats возвращает статистику записей учреждения. Доступно только сотрудникам учреждения
func (s *Service) Stats(ctx context.Context, req *models.StatsRequest) (*models.StatsResponse, error) {
	s.logger.Info("Stats: institution=%s by user=%s", req.InstitutionID, req.UserID)

	// 1. Определяем период
	today := domain.DateOnly(s.timeProvider.Now())
	to := today
	if req.To != nil {
		to = domain.DateOnly(*req.To)
	}
	from := to.AddDate(0, 0, -(defaultStatsDays - 1))
	if req.From != nil {
		from = domain.DateOnly(*req.From)
	}

	if from.After(to) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrInvalidInput)
	}
	if to.Sub(from) > time.Duration(domain.MaxStatsPeriodDays)*24*time.Hour {
		return nil, fmt.Errorf("%w: period must be at most %d days", ErrInvalidInput, domain.MaxStatsPeriodDays)
	}

	// 2. Проверяем права доступа
	if err := s.checkManagerAccess(ctx, req.InstitutionID, req.UserID); err != nil {
		return nil, err
	}

	// 3. Считаем записи по статусам за период
	byStatus, err := s.appointmentRepo.CountByStatus(ctx, req.InstitutionID, from, to)
	if err != nil {
		s.logger.Error("Stats: repository error for institution=%s: %v", req.InstitutionID, err)
		return nil, fmt.Errorf("%w: Stats - count by status: %v", ErrInternal, err)
	}

	// 4. Активные талоны считаются за сегодня
	todayByStatus, err := s.appointmentRepo.CountByStatus(ctx, req.InstitutionID, today, today)
	if err != nil {
		s.logger.Error("Stats: repository error for institution=%s: %v", req.InstitutionID, err)
		return nil, fmt.Errorf("%w: Stats - count today: %v", ErrInternal, err)
	}

	// 5. Дневная разбивка
	daily, err := s.appointmentRepo.CountByDay(ctx, req.InstitutionID, from, to)
	if err != nil {
		s.logger.Error("Stats: repository error for institution=%s: %v", req.InstitutionID, err)
		return nil, fmt.Errorf("%w: Stats - count by day: %v", ErrInternal, err)
	}

	stats := &domain.InstitutionStats{
		InstitutionID: req.InstitutionID,
		From:          from,
		To:            to,
		Cancelled:     byStatus[domain.StatusCancelled],
		Completed:     byStatus[domain.StatusCompleted],
		Daily:         fillDays(from, to, daily),
	}
	for status, count := range byStatus {
		if status != domain.StatusCancelled {
			stats.TotalBookings += count
		}
	}
	for _, status := range domain.OpenStatuses {
		stats.ActiveTokens += todayByStatus[status]
	}

	s.logger.Info("Stats: institution=%s, total=%d, active=%d", req.InstitutionID, stats.TotalBookings, stats.ActiveTokens)
	return models.FromDomainStats(stats), nil
}

// Вспомогательные методы

// getAppointment получает запись и переводит ошибки репозитория в ошибки сервиса
func (s *Service) getAppointment(ctx context.Context, op, id string) (*domain.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("%s: appointment id=%s not found", op, id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("%s: repository error for appointment id=%s: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return appointment, nil
}

// mapTransitionError переводит ошибки условного UPDATE
func (s *Service) mapTransitionError(op, metric, id string, err error) error {
	switch {
	case errors.Is(err, appointmentRepo.ErrAppointmentNotFound):
		s.logger.Warn("%s: appointment id=%s not found during update", op, id)
		return ErrAppointmentNotFound
	case errors.Is(err, appointmentRepo.ErrInvalidTransition):
		// Статус успели изменить параллельно
		s.logger.Warn("%s: concurrent status change for appointment id=%s: %v", op, id, err)
		s.metrics.ObserveAppointment(metric, "invalid_transition")
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	default:
		s.logger.Error("%s: repository error for appointment id=%s: %v", op, id, err)
		s.metrics.ObserveAppointment(metric, "error")
		return fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
}

// deriveServiceMinutes интервал с предыдущего завершения по услуге за день записи, nil для первого
func (s *Service) deriveServiceMinutes(ctx context.Context, a *domain.Appointment, now time.Time) (*int, error) {
	last, err := s.appointmentRepo.LastCompletedAt(ctx, a.ServiceID, a.Date)
	if err != nil {
		s.logger.Error("Complete: failed to get last completion for service=%s: %v", a.ServiceID, err)
		return nil, fmt.Errorf("%w: Complete - last completion: %v", ErrInternal, err)
	}
	if last == nil {
		return nil, nil
	}

	minutes := int(math.Round(now.Sub(*last).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	if minutes > domain.MaxServiceMinutes {
		// Перерыв в работе, а не длительность обслуживания
		return nil, nil
	}
	return &minutes, nil
}

// checkUserAccess владелец записи или сотрудник учреждения
func (s *Service) checkUserAccess(ctx context.Context, a *domain.Appointment, userID string) error {
	if a.UserID == userID {
		return nil
	}

	if err := s.checkManagerAccess(ctx, a.InstitutionID, userID); err != nil {
		if errors.Is(err, ErrInternal) {
			return err
		}
		return ErrAccessDenied
	}

	return nil
}

// checkManagerAccess проверяет, что пользователь является сотрудником учреждения
func (s *Service) checkManagerAccess(ctx context.Context, institutionID, userID string) error {
	institution, err := s.catalogRepo.GetInstitution(ctx, institutionID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrInstitutionNotFound) {
			s.logger.Warn("checkManagerAccess: institution id=%s not found", institutionID)
			return ErrInstitutionNotFound
		}
		s.logger.Error("checkManagerAccess: failed to get institution id=%s: %v", institutionID, err)
		return fmt.Errorf("%w: checkManagerAccess - failed to get institution: %v", ErrInternal, err)
	}

	if !institution.IsManager(userID) {
		s.logger.Warn("checkManagerAccess: user=%s is not a manager of institution=%s", userID, institutionID)
		return ErrAccessDenied
	}

	return nil
}

// publish отправляет событие; ошибка брокера не откатывает уже сохранённый переход
func (s *Service) publish(ctx context.Context, t events.Type, a *domain.Appointment) {
	if err := s.publisher.Publish(ctx, events.NewAppointmentEvent(t, a, s.timeProvider.Now())); err != nil {
		s.logger.Error("failed to publish %s for appointment id=%s: %v", t, a.ID, err)
	}
}

// fillDays дополняет дневную разбивку нулями, чтобы в ней были все дни периода
func fillDays(from, to time.Time, counted []domain.DailyBookings) []domain.DailyBookings {
	byDate := make(map[string]int, len(counted))
	for _, d := range counted {
		byDate[d.Date.Format(domain.DateFormat)] = d.Count
	}

	days := make([]domain.DailyBookings, 0)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.DailyBookings{Date: d, Count: byDate[d.Format(domain.DateFormat)]})
	}
	return days
}
