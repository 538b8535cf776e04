package update_queue_signal

import (
	"context"

	"github.com/queueease/booking-service/internal/service/schedule/models"
)

type ScheduleService interface {
	UpdateSignal(ctx context.Context, req *models.UpdateSignalRequest) (*models.SignalResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
