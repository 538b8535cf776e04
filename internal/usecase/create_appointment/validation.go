package create_appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/queueease/booking-service/internal/domain"
	"github.com/queueease/booking-service/pkg/types"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.InstitutionID) == "" {
		return fmt.Errorf("%w: institutionId is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.ServiceID) == "" {
		return fmt.Errorf("%w: serviceId is required", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.TimeSlotID) == "" {
		return fmt.Errorf("%w: timeSlotId is required", ErrInvalidInput)
	}

	if req.Notes != nil && len(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}

	return nil
}

// parseSlot разбирает ID слота и сверяет его с датой и услугой запроса
func parseSlot(req *Request) (domain.SlotRef, error) {
	ref, err := domain.ParseSlotID(req.TimeSlotID)
	if err != nil {
		return domain.SlotRef{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}

	if !ref.Date.Equal(domain.DateOnly(req.Date)) {
		return domain.SlotRef{}, fmt.Errorf("%w: slot date %s does not match %s",
			ErrInvalidSlot, ref.Date.Format(domain.DateFormat), req.Date.Format(domain.DateFormat))
	}

	if ref.ServiceID != req.ServiceID {
		return domain.SlotRef{}, fmt.Errorf("%w: slot belongs to service %s", ErrInvalidSlot, ref.ServiceID)
	}

	return ref, nil
}

// validateDate проверяет, что дата не в прошлом и попадает в окно записи
func validateDate(date time.Time, now time.Time, advanceBookingDays int) error {
	day := domain.DateOnly(date)
	today := domain.DateOnly(now)

	if day.Before(today) {
		return ErrPastDate
	}

	// Если advanceBookingDays = 0, нет ограничений на дату
	if advanceBookingDays == 0 {
		return nil
	}

	if day.After(today.AddDate(0, 0, advanceBookingDays)) {
		return fmt.Errorf("%w: can only book %d days in advance", ErrOutOfWindow, advanceBookingDays)
	}

	return nil
}

// resolveSlotEnd проверяет, что слот лежит на сетке расписания, и возвращает время окончания
func resolveSlotEnd(start types.TimeString, cfg *domain.ScheduleConfig, service *domain.Service) (types.TimeString, error) {
	granularity := cfg.Granularity(service)

	grid, err := domain.GenerateGrid(cfg.OpenTime, cfg.CloseTime, granularity)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate grid: %v", ErrInternal, err)
	}

	if !domain.OnGrid(start, grid) {
		return "", fmt.Errorf("%w: %s is not a slot start between %s and %s",
			ErrInvalidSlot, start, cfg.OpenTime, cfg.CloseTime)
	}

	end, err := start.AddMinutes(granularity)
	if err != nil {
		return "", fmt.Errorf("%w: failed to compute slot end: %v", ErrInternal, err)
	}

	return end, nil
}

// validateNotStarted проверяет, что сегодняшний слот ещё не начался
func validateNotStarted(date time.Time, start types.TimeString, now time.Time) error {
	if !domain.SameDay(domain.DateOnly(date), domain.DateOnly(now)) {
		return nil
	}

	if !types.NewTimeString(now).IsBefore(start) {
		return fmt.Errorf("%w: slot %s has already started", ErrSlotUnavailable, start)
	}

	return nil
}

// isSlotTaken проверяет, пересекается ли [start, end) с активной записью
func isSlotTaken(start, end types.TimeString, appointments []*domain.Appointment) bool {
	for _, a := range appointments {
		if a.IsActive() && a.Overlaps(start, end) {
			return true
		}
	}
	return false
}
