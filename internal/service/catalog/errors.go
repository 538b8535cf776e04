package catalog

import "errors"

var (
	// ErrInstitutionNotFound возвращается, когда учреждение не найдено
	ErrInstitutionNotFound = errors.New("institution not found")

	// ErrServiceNotFound возвращается, когда услуга не найдена
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
