package userservice

import "errors"

var (
	// ErrUserNotFound возвращается, когда пользователь не зарегистрирован в UserService
	ErrUserNotFound = errors.New("userservice client: user not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("userservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("userservice client: invalid response")

	// ErrServiceDegraded возвращается при применении graceful degradation.
	// Запись создается без контактных данных
	ErrServiceDegraded = errors.New("userservice unavailable: graceful degradation applied")
)
