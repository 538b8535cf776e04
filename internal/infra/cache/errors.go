package cache

import "errors"

var (
	// ErrSnapshotNotFound возвращается, когда снимка очереди нет или он истёк
	ErrSnapshotNotFound = errors.New("cache: queue snapshot not found")

	// ErrSnapshotStore возвращается при ошибке хранилища снимков
	ErrSnapshotStore = errors.New("cache: queue snapshot store error")
)
