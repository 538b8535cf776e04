package create_appointment

import "errors"

var (
	// ErrInstitutionNotFound возвращается, когда учреждение не найдено
	ErrInstitutionNotFound = errors.New("create_appointment: institution not found")

	// ErrServiceNotFound возвращается, когда услуга не найдена
	ErrServiceNotFound = errors.New("create_appointment: service not found")

	// ErrUserNotFound возвращается, когда пользователь не зарегистрирован
	ErrUserNotFound = errors.New("create_appointment: user not found")

	// ErrInvalidService возвращается, когда услуга принадлежит другому учреждению
	ErrInvalidService = errors.New("create_appointment: service is not offered by institution")

	// ErrInvalidSlot возвращается, когда ID слота не совпадает с запросом или не лежит на сетке
	ErrInvalidSlot = errors.New("create_appointment: invalid time slot")

	// ErrPastDate возвращается для дат раньше сегодняшней
	ErrPastDate = errors.New("create_appointment: date is in the past")

	// ErrOutOfWindow возвращается, когда дата дальше окна предварительной записи
	ErrOutOfWindow = errors.New("create_appointment: date is outside the booking window")

	// ErrSlotUnavailable возвращается, когда слот уже занят или уже начался
	ErrSlotUnavailable = errors.New("create_appointment: time slot is not available")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_appointment: internal error")
)
