package queuesignal

import "errors"

var (
	// ErrSignalNotFound возвращается, когда для услуги нет сигнала персонала
	ErrSignalNotFound = errors.New("queuesignal.repository: signal not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("queuesignal.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("queuesignal.repository: failed to execute query")
)
