package events

import "errors"

var (
	// ErrConnect возвращается, когда не удалось подключиться к брокеру
	ErrConnect = errors.New("events: failed to connect to broker")

	// ErrPublish возвращается при ошибке публикации события
	ErrPublish = errors.New("events: failed to publish event")

	// ErrDisconnected возвращается, пока издатель переподключается к брокеру
	ErrDisconnected = errors.New("events: broker connection is down")
)
