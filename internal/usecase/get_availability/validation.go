package get_availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/queueease/booking-service/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if strings.TrimSpace(req.ServiceID) == "" {
		return fmt.Errorf("%w: service is required", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	return nil
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
