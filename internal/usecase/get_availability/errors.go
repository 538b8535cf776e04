package get_availability

import "errors"

var (
	// ErrServiceNotFound возвращается, когда услуга не найдена
	ErrServiceNotFound = errors.New("get_availability: service not found")

	// ErrPastDate возвращается для дат раньше сегодняшней
	ErrPastDate = errors.New("get_availability: date is in the past")

	// ErrOutOfWindow возвращается, когда дата дальше окна предварительной записи
	ErrOutOfWindow = errors.New("get_availability: date is outside the booking window")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("get_availability: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("get_availability: internal error")
)
